package db

import (
	"github.com/OpenListTeam/tgdrive/internal/conf"
	"github.com/OpenListTeam/tgdrive/internal/model"
	"github.com/OpenListTeam/tgdrive/pkg/utils"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var db *gorm.DB

func Init(d *gorm.DB) error {
	db = d
	return errors.Wrap(AutoMigrate(new(model.Task), new(model.Session)), "failed migrate database")
}

func AutoMigrate(dst ...interface{}) error {
	var err error
	if conf.Conf != nil && conf.Conf.Database.Type == "mysql" {
		err = db.Set("gorm:table_options", "ENGINE=InnoDB CHARSET=utf8mb4").AutoMigrate(dst...)
	} else {
		err = db.AutoMigrate(dst...)
	}
	return err
}

func GetDb() *gorm.DB {
	return db
}

func Close() {
	utils.Log.Info("closing db")
	sqlDB, err := db.DB()
	if err != nil {
		utils.Log.Errorf("failed to get db: %s", err.Error())
		return
	}
	err = sqlDB.Close()
	if err != nil {
		utils.Log.Errorf("failed to close db: %s", err.Error())
		return
	}
}
