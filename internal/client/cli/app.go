package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dpetrovs/stockkeeper/internal/client/config"
	"github.com/dpetrovs/stockkeeper/internal/client/queue"
	"github.com/dpetrovs/stockkeeper/internal/client/remote"
	"github.com/dpetrovs/stockkeeper/internal/client/services"
	"github.com/dpetrovs/stockkeeper/internal/client/store"
	"github.com/dpetrovs/stockkeeper/internal/common"
	"github.com/dpetrovs/stockkeeper/internal/logging"

	_ "modernc.org/sqlite"
)

// pinAttempts bounds interactive unlock tries per start. The store itself
// never wipes on failed attempts; this only ends the session.
const pinAttempts = 3

type App struct {
	config *config.Config
	store  *store.Store
	svc    *services.OfflineService
	log    logging.Logger
	reader *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	s, err := store.Open(ctx, c.DatabasePath, log)
	if err != nil {
		return nil, fmt.Errorf("error opening local store: %w", err)
	}

	apiClient, err := remote.NewHTTPClient(c.ServerEndpointAddr, c.AuthToken, c.SubmitTimeout)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	q := queue.New(s, c.MaxQueueItems, c.MaxQueueBytes)
	svc := services.NewOfflineService(s, q, apiClient, log, c.SubmitTimeout)

	return &App{
		config: c,
		store:  s,
		svc:    svc,
		log:    log,
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

// Run unlocks the store when a PIN is required, starts the background sync
// loop and hands control to the REPL. It returns when the operator exits.
func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()

	if err := a.unlock(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.StartSyncWatcher(ctx, a.config.SyncInterval)

	a.Root(ctx)
	return nil
}

func (a *App) unlock(ctx context.Context) error {
	if !a.svc.PinRequired() {
		return nil
	}

	for i := 0; i < pinAttempts; i++ {
		pin, err := GetPin(os.Stdout)
		if err != nil {
			return err
		}
		err = a.svc.VerifyPin(ctx, pin)
		common.WipeByteArray(pin)
		if err == nil {
			return nil
		}
		if errors.Is(err, common.ErrPinInvalid) {
			fmt.Println("Wrong PIN")
			continue
		}
		return err
	}
	return fmt.Errorf("too many failed PIN attempts")
}

// StartSyncWatcher drains the queue on a fixed interval until ctx is
// canceled. Drain failures are logged and retried on the next tick; the
// engine's own bookkeeping marks the queue blocked in between.
func (a *App) StartSyncWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := a.svc.SyncQueue(ctx)
			if err != nil {
				a.log.Warn(ctx, "background sync failed", "error", err.Error())
				continue
			}
			if res.Revoked {
				a.log.Warn(ctx, "device revoked during background sync")
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
