package cmd

import (
	"github.com/OpenListTeam/tgdrive/internal/bootstrap"
	"github.com/OpenListTeam/tgdrive/internal/db"
)

func Init() {
	bootstrap.InitConfig()
	bootstrap.InitLog()
	bootstrap.InitDB()
}

func Release() {
	db.Close()
}
