package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dpetrovs/stockkeeper/internal/client/models"
	"github.com/dpetrovs/stockkeeper/internal/common"
)

// HTTPClient is a thin wrapper over the remote authority's HTTP API.
type HTTPClient struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates an authority API client. The token, when set, is
// sent as an opaque bearer credential; session management itself is the
// caller's concern.
func NewHTTPClient(rawURL, token string, timeout time.Duration) (*HTTPClient, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	// A bare "host:port" parses with the host as the scheme, so both parts
	// must be checked.
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base url must include scheme and host")
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	return &HTTPClient{
		baseURL: parsed,
		token:   token,
		http: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (c *HTTPClient) resolve(p string) string {
	return c.baseURL.String() + p
}

func (c *HTTPClient) decorate(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// errorBody is the structured error/conflict response shape.
type errorBody struct {
	Code            string          `json:"code"`
	Message         string          `json:"message"`
	ConflictReason  string          `json:"conflictReason"`
	ConflictPayload json.RawMessage `json:"conflictPayload"`
}

func decodeErrorBody(r io.Reader) errorBody {
	var body errorBody
	_ = json.NewDecoder(r).Decode(&body)
	return body
}

// classifyStatus maps non-2xx statuses shared by all endpoints.
// Transport errors are handled at call sites.
func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", common.ErrUnavailable, resp.Status)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		body := decodeErrorBody(resp.Body)
		if body.Code == "DEVICE_REVOKED" {
			return common.ErrDeviceRevoked
		}
		return fmt.Errorf("%w: %s", common.ErrUnauthorized, body.Message)
	default:
		body := decodeErrorBody(resp.Body)
		if body.Message != "" {
			return fmt.Errorf("remote error: %s", body.Message)
		}
		return fmt.Errorf("remote error: %s", resp.Status)
	}
}

func (c *HTTPClient) postJSON(ctx context.Context, path string, in any) (*http.Response, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	return resp, nil
}

// Ping checks authority reachability.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve("/ping"), nil)
	if err != nil {
		return err
	}
	c.decorate(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return classifyStatus(resp)
	}
	return nil
}

// RegisterDevice registers the device and returns the authority's record.
func (c *HTTPClient) RegisterDevice(ctx context.Context, reqBody RegisterDeviceRequest) (*models.DeviceRecord, error) {
	resp, err := c.postJSON(ctx, "/offline/register-device", reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, classifyStatus(resp)
	}
	var record models.DeviceRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, err
	}
	return &record, nil
}

// RevokeDevice revokes the device id with the authority.
func (c *HTTPClient) RevokeDevice(ctx context.Context, deviceID string) error {
	resp, err := c.postJSON(ctx, "/offline/revoke-device", map[string]string{"deviceId": deviceID})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return classifyStatus(resp)
	}
	return nil
}

// Status fetches the authority's offline report for the device.
func (c *HTTPClient) Status(ctx context.Context, deviceID string) (*models.OfflineStatus, error) {
	u := c.resolve("/offline/status") + "?" + url.Values{"deviceId": {deviceID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	c.decorate(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp)
	}
	var status models.OfflineStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}

// actionPath maps an action type to its submission endpoint.
func actionPath(t models.ActionType) (string, error) {
	switch t {
	case models.ActionTypeStockAdjustment:
		return "/offline/actions/stock-adjustment", nil
	case models.ActionTypeStockCount:
		return "/offline/actions/stock-count", nil
	case models.ActionTypeSale:
		return "/offline/actions/sale", nil
	default:
		return "", fmt.Errorf("unknown action type %q", t)
	}
}

// submitResponse is the committed-resource response shape.
type submitResponse struct {
	ID             string `json:"id"`
	ReceiptNumber  string `json:"receiptNumber"`
	AlreadyApplied bool   `json:"alreadyApplied"`
}

// Submit sends one action to its per-type endpoint and classifies the
// response. Conflicts (409) and validation rejections (400/422) come back
// as results, not errors, so the drain loop can continue past them.
func (c *HTTPClient) Submit(ctx context.Context, payload models.Payload) (*SubmitResult, error) {
	path, err := actionPath(payload.Type)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(common.DeviceIDHeaderName, payload.DeviceID)
	req.Header.Set(common.IdempotencyKeyHeaderName, payload.IdempotencyKey)
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var committed submitResponse
		if err := json.NewDecoder(resp.Body).Decode(&committed); err != nil {
			return nil, err
		}
		outcome := OutcomeApplied
		if committed.AlreadyApplied {
			outcome = OutcomeAlreadyApplied
		}
		return &SubmitResult{Outcome: outcome, ReceiptNumber: committed.ReceiptNumber}, nil

	case resp.StatusCode == http.StatusConflict:
		body := decodeErrorBody(resp.Body)
		reason := models.ConflictReason(body.ConflictReason)
		if reason == "" {
			reason = models.ConflictGeneric
		}
		return &SubmitResult{
			Outcome: OutcomeConflict,
			Conflict: &models.ConflictPayload{
				Reason:  reason,
				Details: body.ConflictPayload,
			},
		}, nil

	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		body := decodeErrorBody(resp.Body)
		msg := body.Message
		if msg == "" {
			msg = resp.Status
		}
		return &SubmitResult{Outcome: OutcomeRejected, Message: msg}, nil

	default:
		return nil, classifyStatus(resp)
	}
}

// ResolveConflict reports an operator decision for a conflicted action.
func (c *HTTPClient) ResolveConflict(ctx context.Context, actionID string, resolution models.ResolutionOption) error {
	resp, err := c.postJSON(ctx, "/offline/conflicts/resolve", map[string]string{
		"actionId":   actionID,
		"resolution": string(resolution),
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return classifyStatus(resp)
	}
	return nil
}
