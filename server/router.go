package server

import (
	"github.com/OpenListTeam/tgdrive/internal/authserver"
	"github.com/OpenListTeam/tgdrive/pkg/utils"
	"github.com/OpenListTeam/tgdrive/server/handles"
	"github.com/OpenListTeam/tgdrive/server/middlewares"
	"github.com/gin-gonic/gin"
)

// Init mounts the OAuth callback and, when adminToken is set, the admin task
// API.
func Init(e *gin.Engine, broker *authserver.Broker, tasks handles.TaskService, adminToken string) {
	e.GET("/auth", authserver.Callback(broker))
	if adminToken == "" {
		utils.Log.Infof("admin token not set, admin api disabled")
		return
	}
	api := e.Group("/api/admin", middlewares.AdminToken(adminToken))
	handles.SetupTaskRoute(api.Group("/task"), tasks)
}
