package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dpetrovs/stockkeeper/internal/client/models"
	"github.com/dpetrovs/stockkeeper/internal/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := NewHTTPClient(server.URL, "token-1", 5*time.Second)
	require.NoError(t, err)
	return c
}

func makePayload(t *testing.T) models.Payload {
	t.Helper()
	payload, err := models.Wrap("dev-1", "idem-1", models.Sale{
		LocalReceiptNumber: "OFF-001",
		Lines: []models.SaleLine{
			{ProductID: "p-1", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("4.50")},
		},
		Total: decimal.RequireFromString("9.00"),
	})
	require.NoError(t, err)
	return payload
}

func TestNewHTTPClient_Validation(t *testing.T) {
	_, err := NewHTTPClient("", "", time.Second)
	assert.Error(t, err)

	_, err = NewHTTPClient("localhost:8080", "", time.Second)
	assert.Error(t, err)

	c, err := NewHTTPClient("http://localhost:8080/", "", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/ping", c.resolve("/ping"))
}

func TestSubmit_Applied(t *testing.T) {
	var gotDeviceID, gotIdemKey, gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/offline/actions/sale", r.URL.Path)
		gotDeviceID = r.Header.Get(common.DeviceIDHeaderName)
		gotIdemKey = r.Header.Get(common.IdempotencyKeyHeaderName)
		gotAuth = r.Header.Get("Authorization")

		var payload models.Payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, models.ActionTypeSale, payload.Type)

		json.NewEncoder(w).Encode(map[string]any{"id": "srv-1", "receiptNumber": "R-1042"})
	})

	res, err := c.Submit(context.Background(), makePayload(t))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, "R-1042", res.ReceiptNumber)
	assert.Equal(t, "dev-1", gotDeviceID)
	assert.Equal(t, "idem-1", gotIdemKey)
	assert.Equal(t, "Bearer token-1", gotAuth)
}

func TestSubmit_AlreadyApplied(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"receiptNumber": "R-1042", "alreadyApplied": true})
	})

	res, err := c.Submit(context.Background(), makePayload(t))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyApplied, res.Outcome)
	assert.Equal(t, "R-1042", res.ReceiptNumber)
}

func TestSubmit_Conflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"conflictReason":  "APPROVAL_REQUIRED",
			"conflictPayload": map[string]string{"approvalId": "appr-7"},
		})
	})

	res, err := c.Submit(context.Background(), makePayload(t))
	require.NoError(t, err)
	assert.Equal(t, OutcomeConflict, res.Outcome)
	require.NotNil(t, res.Conflict)
	assert.Equal(t, models.ConflictApprovalRequired, res.Conflict.Reason)

	details, err := res.Conflict.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalConflict{ApprovalID: "appr-7"}, details)
}

func TestSubmit_ConflictWithoutReason(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	res, err := c.Submit(context.Background(), makePayload(t))
	require.NoError(t, err)
	assert.Equal(t, OutcomeConflict, res.Outcome)
	require.NotNil(t, res.Conflict)
	assert.Equal(t, models.ConflictGeneric, res.Conflict.Reason)
}

func TestSubmit_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "unknown product p-1"})
	})

	res, err := c.Submit(context.Background(), makePayload(t))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, "unknown product p-1", res.Message)
}

func TestSubmit_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Submit(context.Background(), makePayload(t))
	assert.ErrorIs(t, err, common.ErrUnavailable)
}

func TestSubmit_DeviceRevoked(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"code": "DEVICE_REVOKED", "message": "device dev-1 revoked"})
	})

	_, err := c.Submit(context.Background(), makePayload(t))
	assert.ErrorIs(t, err, common.ErrDeviceRevoked)
}

func TestSubmit_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "bad token"})
	})

	_, err := c.Submit(context.Background(), makePayload(t))
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestSubmit_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	c, err := NewHTTPClient(server.URL, "", time.Second)
	require.NoError(t, err)

	_, err = c.Submit(context.Background(), makePayload(t))
	assert.ErrorIs(t, err, common.ErrUnavailable)
}

func TestSubmit_UnknownType(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	payload := makePayload(t)
	payload.Type = "RETURN"
	_, err := c.Submit(context.Background(), payload)
	assert.Error(t, err)
}

func TestRegisterDevice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/offline/register-device", r.URL.Path)
		var req RegisterDeviceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "till-3", req.DeviceName)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.DeviceRecord{
			ID:     req.DeviceID,
			Name:   req.DeviceName,
			UserID: req.UserID,
			Status: models.DeviceActive,
		})
	})

	record, err := c.RegisterDevice(context.Background(), RegisterDeviceRequest{
		DeviceName: "till-3",
		DeviceID:   "dev-1",
		UserID:     "u-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "dev-1", record.ID)
	assert.Equal(t, models.DeviceActive, record.Status)
}

func TestRevokeDevice(t *testing.T) {
	var gotBody map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/offline/revoke-device", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.RevokeDevice(context.Background(), "dev-1"))
	assert.Equal(t, "dev-1", gotBody["deviceId"])
}

func TestStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/offline/status", r.URL.Path)
		require.Equal(t, "dev-1", r.URL.Query().Get("deviceId"))
		json.NewEncoder(w).Encode(models.OfflineStatus{
			Device:         models.DeviceRecord{ID: "dev-1", Status: models.DeviceActive},
			OfflineEnabled: true,
			Limits:         models.OfflineLimits{MaxOfflineHours: 72, MaxPendingActions: 100},
			PendingCount:   4,
		})
	})

	status, err := c.Status(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.True(t, status.OfflineEnabled)
	assert.Equal(t, 72, status.Limits.MaxOfflineHours)
	assert.Equal(t, 4, status.PendingCount)
}

func TestResolveConflict(t *testing.T) {
	var gotBody map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/offline/conflicts/resolve", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.ResolveConflict(context.Background(), "a-1", models.ResolutionDismiss))
	assert.Equal(t, "a-1", gotBody["actionId"])
	assert.Equal(t, "DISMISS", gotBody["resolution"])
}

func TestPing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ping", r.URL.Path)
	})
	require.NoError(t, c.Ping(context.Background()))

	down := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	assert.ErrorIs(t, down.Ping(context.Background()), common.ErrUnavailable)
}
