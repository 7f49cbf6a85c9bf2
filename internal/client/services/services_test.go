package services

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dpetrovs/stockkeeper/internal/client/models"
	"github.com/dpetrovs/stockkeeper/internal/client/queue"
	"github.com/dpetrovs/stockkeeper/internal/client/remote"
	"github.com/dpetrovs/stockkeeper/internal/client/store"
	"github.com/dpetrovs/stockkeeper/internal/logging"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// fakeRemote is a scriptable remote.Client. The zero behavior applies every
// submission; tests override submitFn to inject outcomes and failures.
type fakeRemote struct {
	mu       sync.Mutex
	submits  []models.Payload
	submitFn func(p models.Payload) (*remote.SubmitResult, error)

	resolved    map[string]models.ResolutionOption
	resolveErr  error
	revokedIDs  []string
	revokeErr   error
	registerErr error
	status      *models.OfflineStatus
	statusErr   error
}

var _ remote.Client = (*fakeRemote)(nil)

func newFakeRemote() *fakeRemote {
	return &fakeRemote{resolved: map[string]models.ResolutionOption{}}
}

func (f *fakeRemote) Submit(ctx context.Context, p models.Payload) (*remote.SubmitResult, error) {
	f.mu.Lock()
	f.submits = append(f.submits, p)
	fn := f.submitFn
	f.mu.Unlock()

	if fn != nil {
		return fn(p)
	}
	return &remote.SubmitResult{Outcome: remote.OutcomeApplied}, nil
}

func (f *fakeRemote) submitted() []models.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Payload(nil), f.submits...)
}

func (f *fakeRemote) setSubmitFn(fn func(p models.Payload) (*remote.SubmitResult, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitFn = fn
}

func (f *fakeRemote) RegisterDevice(ctx context.Context, req remote.RegisterDeviceRequest) (*models.DeviceRecord, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &models.DeviceRecord{
		ID:     req.DeviceID,
		Name:   req.DeviceName,
		UserID: req.UserID,
		Status: models.DeviceActive,
	}, nil
}

func (f *fakeRemote) RevokeDevice(ctx context.Context, deviceID string) error {
	f.mu.Lock()
	f.revokedIDs = append(f.revokedIDs, deviceID)
	f.mu.Unlock()
	return f.revokeErr
}

func (f *fakeRemote) Status(ctx context.Context, deviceID string) (*models.OfflineStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if f.status != nil {
		return f.status, nil
	}
	return &models.OfflineStatus{
		Device:         models.DeviceRecord{ID: deviceID, Status: models.DeviceActive},
		OfflineEnabled: true,
	}, nil
}

func (f *fakeRemote) ResolveConflict(ctx context.Context, actionID string, resolution models.ResolutionOption) error {
	f.mu.Lock()
	f.resolved[actionID] = resolution
	f.mu.Unlock()
	return f.resolveErr
}

func (f *fakeRemote) Ping(ctx context.Context) error { return nil }

type testEnv struct {
	store  *store.Store
	queue  *queue.Queue
	remote *fakeRemote
	svc    *OfflineService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "offline.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	q := queue.New(s, 100, 1<<20)
	r := newFakeRemote()
	return &testEnv{
		store:  s,
		queue:  q,
		remote: r,
		svc:    NewOfflineService(s, q, r, log, 2*time.Second),
	}
}

func (e *testEnv) enqueueCount(t *testing.T) *models.QueuedAction {
	t.Helper()
	a, err := e.svc.EnqueueStockCount(context.Background(), models.StockCount{
		ProductID:  "p-1",
		LocationID: "loc-1",
		Counted:    decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	return a
}

func (e *testEnv) enqueueSale(t *testing.T, localReceipt string) *models.QueuedAction {
	t.Helper()
	a, err := e.svc.EnqueueSale(context.Background(), models.Sale{
		LocationID: "loc-1",
		Lines: []models.SaleLine{
			{ProductID: "p-1", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("5.00")},
		},
		Total:              decimal.RequireFromString("10.00"),
		LocalReceiptNumber: localReceipt,
	})
	require.NoError(t, err)
	return a
}
