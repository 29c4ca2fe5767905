package bootstrap

import (
	"context"
	"strings"

	"github.com/OpenListTeam/tgdrive/internal/authserver"
	"github.com/OpenListTeam/tgdrive/internal/chat"
	"github.com/OpenListTeam/tgdrive/internal/conf"
	"github.com/OpenListTeam/tgdrive/internal/intake"
	"github.com/OpenListTeam/tgdrive/internal/onedrive"
	"github.com/OpenListTeam/tgdrive/internal/tasker"
	"github.com/OpenListTeam/tgdrive/pkg/utils"
)

// Engine is everything a running server shares: one drive manager, one
// registry of live tasks, and the dispatcher and intake built on them.
type Engine struct {
	OneDrive   *onedrive.Manager
	Registry   *tasker.Registry
	Dispatcher *tasker.Dispatcher
	Intake     *intake.Service
	Broker     *authserver.Broker
}

// RedirectURI is where the identity provider sends the authorization code.
func RedirectURI(c conf.Server) string {
	return strings.TrimSuffix(c.ServerURI, "/") + "/auth"
}

// InitTaskManager builds the engine and restores the stored OneDrive user.
// Tasks stop when ctx is done.
func InitTaskManager(ctx context.Context, messenger chat.Messenger, media chat.MediaSource) *Engine {
	c := conf.Conf
	manager := onedrive.NewManager(c.OneDrive, RedirectURI(c.Server))
	if err := manager.AutoLogin(ctx); err != nil {
		utils.Log.Warnf("onedrive auto login failed, /auth is needed: %v", err)
	}
	registry := tasker.NewRegistry(ctx)
	driver := tasker.NewDriver(manager, registry, messenger, media, c.Tasks)
	broker := authserver.NewBroker()
	return &Engine{
		OneDrive:   manager,
		Registry:   registry,
		Dispatcher: tasker.NewDispatcher(driver, registry, c.Tasks),
		Intake:     intake.NewService(manager, registry, messenger, broker),
		Broker:     broker,
	}
}
