package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/OpenListTeam/tgdrive/cmd/flags"
	"github.com/OpenListTeam/tgdrive/internal/authserver"
	"github.com/OpenListTeam/tgdrive/internal/bootstrap"
	"github.com/OpenListTeam/tgdrive/internal/chat"
	"github.com/OpenListTeam/tgdrive/internal/conf"
	"github.com/OpenListTeam/tgdrive/pkg/utils"
	"github.com/OpenListTeam/tgdrive/server"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// consoleChat is the chat scope of authorization requests started by the
// server itself; the url ends up in the log.
const consoleChat = "console"

var ServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the transfer engine and the authorization server",
	RunE: func(cmd *cobra.Command, args []string) error {
		Init()
		defer Release()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		engine := bootstrap.InitTaskManager(ctx, chat.NewLogMessenger(), chat.NoMedia{})
		defer engine.Registry.Close()

		if !flags.Debug {
			gin.SetMode(gin.ReleaseMode)
		}
		r := gin.New()
		r.Use(gin.LoggerWithWriter(log.StandardLogger().Out), gin.RecoveryWithWriter(log.StandardLogger().Out))
		server.Init(r, engine.Broker, engine.Intake, conf.Conf.Server.AdminToken)
		srv, err := authserver.NewServer(conf.Conf.Server, r)
		if err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return engine.Dispatcher.Run(gctx)
		})
		g.Go(func() error {
			return srv.Run(gctx)
		})
		if !engine.OneDrive.IsAuthorized(gctx) {
			g.Go(func() error {
				username, err := engine.Intake.Authorize(gctx, consoleChat)
				if err != nil {
					utils.Log.Warnf("onedrive authorization failed: %v", err)
					return nil
				}
				utils.Log.Infof("onedrive authorized as %s", username)
				return nil
			})
		}
		err = g.Wait()
		utils.Log.Infof("shutting down, %d tasks left to resume", engine.Registry.Len())
		return err
	},
}

func init() {
	RootCmd.AddCommand(ServerCmd)
}
