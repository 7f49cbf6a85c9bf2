package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dpetrovs/stockkeeper/internal/client/models"
	"github.com/dpetrovs/stockkeeper/internal/client/remote"
	"github.com/dpetrovs/stockkeeper/internal/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// conflictOn drives the fake remote to conflict once, runs a sync so the
// action lands in the conflicted set, and then restores the default
// apply-everything behavior for the resubmission.
func conflictOn(t *testing.T, env *testEnv, reason models.ConflictReason, details any) {
	t.Helper()
	raw, err := json.Marshal(details)
	require.NoError(t, err)

	env.remote.setSubmitFn(func(p models.Payload) (*remote.SubmitResult, error) {
		return &remote.SubmitResult{
			Outcome:  remote.OutcomeConflict,
			Conflict: &models.ConflictPayload{Reason: reason, Details: raw},
		}, nil
	})
	res, err := env.svc.SyncQueue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Conflicts)
	env.remote.setSubmitFn(nil)
}

func TestResolve_Retry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.enqueueCount(t)
	conflictOn(t, env, models.ConflictGeneric, nil)

	res, err := env.svc.Conflicts.Resolve(ctx, a.ID, models.ResolutionRetry)
	require.NoError(t, err)
	assert.Nil(t, res)

	got, err := env.queue.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Empty(t, got.ConflictReason)
}

func TestResolve_Dismiss(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.enqueueCount(t)
	conflictOn(t, env, models.ConflictGeneric, nil)

	res, err := env.svc.Conflicts.Resolve(ctx, a.ID, models.ResolutionDismiss)
	require.NoError(t, err)
	assert.Nil(t, res)

	_, err = env.queue.Get(ctx, a.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, models.ResolutionDismiss, env.remote.resolved[a.ID])
}

func TestResolve_DismissSurvivesRemoteFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.enqueueCount(t)
	conflictOn(t, env, models.ConflictGeneric, nil)
	env.remote.resolveErr = common.ErrUnavailable

	_, err := env.svc.Conflicts.Resolve(ctx, a.ID, models.ResolutionDismiss)
	require.NoError(t, err)

	_, err = env.queue.Get(ctx, a.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestResolve_OptionMustMatchReason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.enqueueCount(t)
	conflictOn(t, env, models.ConflictGeneric, nil)

	_, err := env.svc.Conflicts.Resolve(ctx, a.ID, models.ResolutionOverridePrice)
	assert.Error(t, err)

	// The action stays conflicted after a rejected resolution attempt.
	got, err := env.queue.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConflict, got.Status)
}

func TestResolve_RequiresConflictedAction(t *testing.T) {
	env := newTestEnv(t)
	a := env.enqueueCount(t)

	_, err := env.svc.Conflicts.Resolve(context.Background(), a.ID, models.ResolutionRetry)
	assert.Error(t, err)
}

func TestResolve_OverridePrice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.enqueueSale(t, "OFF-001")
	conflictOn(t, env, models.ConflictPriceVariance, models.PriceVarianceConflict{
		ProductID:      "p-1",
		SubmittedPrice: decimal.RequireFromString("5.00"),
		CurrentPrice:   decimal.RequireFromString("6.00"),
	})

	res, err := env.svc.Conflicts.Resolve(ctx, a.ID, models.ResolutionOverridePrice)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Submitted)

	// The resubmitted sale carries the authority's price and a recomputed
	// total, under the original idempotency key.
	submits := env.remote.submitted()
	last := submits[len(submits)-1]
	assert.Equal(t, a.ID, last.IdempotencyKey)

	body, err := last.Unwrap()
	require.NoError(t, err)
	sale, ok := body.(models.Sale)
	require.True(t, ok)
	require.Len(t, sale.Lines, 1)
	assert.True(t, sale.Lines[0].UnitPrice.Equal(decimal.RequireFromString("6.00")))
	assert.True(t, sale.Total.Equal(decimal.RequireFromString("12.00")))

	_, err = env.queue.Get(ctx, a.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestResolve_SyncApproval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.enqueueCount(t)
	conflictOn(t, env, models.ConflictApprovalRequired, models.ApprovalConflict{ApprovalID: "appr-7"})

	res, err := env.svc.Conflicts.Resolve(ctx, a.ID, models.ResolutionSyncApproval)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Submitted)

	submits := env.remote.submitted()
	last := submits[len(submits)-1]

	var details map[string]any
	require.NoError(t, json.Unmarshal(last.Details, &details))
	assert.Equal(t, "appr-7", details["approvalId"])

	_, err = env.queue.Get(ctx, a.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestResolve_ResubmissionCanConflictAgain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.enqueueCount(t)
	conflictOn(t, env, models.ConflictApprovalRequired, models.ApprovalConflict{ApprovalID: "appr-7"})

	// The authority rejects the approval as expired.
	raw, err := json.Marshal(models.ApprovalConflict{ApprovalID: "appr-8"})
	require.NoError(t, err)
	env.remote.setSubmitFn(func(p models.Payload) (*remote.SubmitResult, error) {
		return &remote.SubmitResult{
			Outcome:  remote.OutcomeConflict,
			Conflict: &models.ConflictPayload{Reason: models.ConflictApprovalRequired, Details: raw},
		}, nil
	})

	res, err := env.svc.Conflicts.Resolve(ctx, a.ID, models.ResolutionSyncApproval)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Conflicts)

	got, err := env.queue.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConflict, got.Status)
}
