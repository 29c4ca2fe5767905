package authserver

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/OpenListTeam/tgdrive/internal/conf"
	"github.com/OpenListTeam/tgdrive/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// Callback handles GET /auth?code=&state= redirects from the identity
// provider.
func Callback(b *Broker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if e := c.Query("error"); e != "" {
			utils.Log.Warnf("authorization refused: %s %s", e, c.Query("error_description"))
			c.String(http.StatusBadRequest, "Authorization failed: %s", e)
			return
		}
		code, state := c.Query("code"), c.Query("state")
		if code == "" {
			c.String(http.StatusBadRequest, "missing code")
			return
		}
		if err := b.Publish(state, code); err != nil {
			c.String(http.StatusNotFound, "authorization expired or unknown")
			return
		}
		c.String(http.StatusOK, "Authorization successful, you can close this page now.")
	}
}

// Server is the HTTPS listener for the OAuth redirect and the admin API.
type Server struct {
	srv *http.Server
}

func NewServer(c conf.Server, handler http.Handler) (*Server, error) {
	cert, err := LoadCertificate(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, err
	}
	return &Server{srv: &http.Server{
		Addr:              fmt.Sprintf("%s:%d", c.Address, c.HttpsPort),
		Handler:           handler,
		TLSConfig:         &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12},
		ReadHeaderTimeout: 10 * time.Second,
	}}, nil
}

// Run serves until ctx is done and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		utils.Log.Infof("start auth server @ %s", s.srv.Addr)
		errCh <- s.srv.ListenAndServeTLS("", "")
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "failed start auth server")
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "failed shutdown auth server")
	}
	return nil
}
