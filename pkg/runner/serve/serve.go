// Package serve runs the milestone HTTP API over the configured store.
package serve

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"tableflip.dev/pomo/pkg/server"
	"tableflip.dev/pomo/pkg/store"
)

const shutdownTimeout = 10 * time.Second

type Serve struct {
	Store store.Store
	Addr  string
	Log   *log.Logger
	// Ready, when set, receives the bound address once the listener is up.
	Ready chan<- string
}

func (n *Serve) Do(ctx context.Context) error {
	logger := n.Log
	if logger == nil {
		logger = log.StandardLogger()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	server.Register(e, n.Store, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(n.Addr)
	}()

	go n.announce(ctx, e, logger)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("serve.stopped")
	return nil
}

func (n *Serve) announce(ctx context.Context, e *echo.Echo, logger *log.Logger) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if addr := e.ListenerAddr(); addr != nil {
			logger.WithField("addr", addr.String()).Info("serve.listening")
			if n.Ready == nil {
				return
			}
			select {
			case n.Ready <- addr.String():
			case <-ctx.Done():
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
