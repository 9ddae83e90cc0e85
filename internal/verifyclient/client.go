// Package verifyclient is the operator-side HTTP client for the verify
// and approve server operations. It interprets server responses into a
// closed outcome taxonomy so callers never dispatch on HTTP status codes
// alone.
package verifyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"redeem/internal/models"
	"redeem/internal/validation"
)

// Outcome classifies a verification response.
type Outcome int

const (
	// OutcomeVerified means the record is pending/approved and not yet
	// consumed. The snapshot is attached.
	OutcomeVerified Outcome = iota
	// OutcomeAlreadyUsed is a normal informational outcome: the code was
	// consumed before, and the original snapshot is attached.
	OutcomeAlreadyUsed
	// OutcomeForeignMerchant means the code belongs to another merchant.
	// No snapshot is ever attached.
	OutcomeForeignMerchant
	// OutcomeRejected covers malformed codes and other server-side
	// validation failures.
	OutcomeRejected
	// OutcomeNetworkFailure covers transport errors, timeouts and 5xx
	// responses. Always retryable.
	OutcomeNetworkFailure
)

// Result is the interpreted verification response.
type Result struct {
	Outcome Outcome
	Record  *models.RedemptionSnapshot
	Reason  string
	Err     error
}

// ApproveOutcome classifies an approval response.
type ApproveOutcome int

const (
	ApproveFulfilled ApproveOutcome = iota
	// ApproveAlreadyFulfilled means the record was consumed before this
	// call. Idempotent: no side effect happened.
	ApproveAlreadyFulfilled
	ApproveRejected
	ApproveNetworkFailure
)

// ApproveResult is the interpreted approval response.
type ApproveResult struct {
	Outcome ApproveOutcome
	Record  *models.RedemptionSnapshot
	Reason  string
	Err     error
}

const defaultTimeout = 10 * time.Second

// Client talks to the redemption API on behalf of one operator.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client with a bounded per-call timeout so a stalled
// round-trip surfaces as a network failure instead of hanging the
// session.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type serverResponse struct {
	Error     string                     `json:"error"`
	ErrorCode string                     `json:"error_code"`
	Record    *models.RedemptionSnapshot `json:"record"`
}

// Verify classifies a normalized code. The code is checked once more
// before the call as defense in depth; a malformed code never reaches
// the network.
func (c *Client) Verify(ctx context.Context, code string) Result {
	if !validation.IsRedemptionCode(code) {
		return Result{Outcome: OutcomeRejected, Reason: "malformed redemption code"}
	}

	resp, err := c.post(ctx, "/api/redemptions/verify", map[string]string{
		"type": "redemption",
		"code": code,
	})
	if err != nil {
		return Result{Outcome: OutcomeNetworkFailure, Err: err}
	}

	if resp.status >= http.StatusInternalServerError {
		return Result{Outcome: OutcomeNetworkFailure, Reason: resp.body.Error}
	}

	switch classify(resp.body) {
	case "ALREADY_USED":
		return Result{Outcome: OutcomeAlreadyUsed, Record: resp.body.Record, Reason: resp.body.Error}
	case "FOREIGN_MERCHANT":
		// Never expose a foreign record, whatever the server sent.
		return Result{Outcome: OutcomeForeignMerchant, Reason: resp.body.Error}
	case "":
		if resp.body.Record != nil {
			return Result{Outcome: OutcomeVerified, Record: resp.body.Record}
		}
		return Result{Outcome: OutcomeRejected, Reason: "malformed server response"}
	default:
		reason := resp.body.Error
		if reason == "" {
			reason = "verification rejected"
		}
		return Result{Outcome: OutcomeRejected, Reason: reason}
	}
}

// Approve fulfils a verified record. It is never called automatically by
// verification; callers invoke it on explicit operator confirmation.
func (c *Client) Approve(ctx context.Context, code string) ApproveResult {
	if !validation.IsRedemptionCode(code) {
		return ApproveResult{Outcome: ApproveRejected, Reason: "malformed redemption code"}
	}

	resp, err := c.post(ctx, "/api/redemptions/approve", map[string]string{
		"code": code,
	})
	if err != nil {
		return ApproveResult{Outcome: ApproveNetworkFailure, Err: err}
	}

	if resp.status >= http.StatusInternalServerError {
		return ApproveResult{Outcome: ApproveNetworkFailure, Reason: resp.body.Error}
	}

	switch classify(resp.body) {
	case "ALREADY_FULFILLED":
		return ApproveResult{Outcome: ApproveAlreadyFulfilled, Reason: resp.body.Error}
	case "":
		if resp.body.Record != nil {
			return ApproveResult{Outcome: ApproveFulfilled, Record: resp.body.Record}
		}
		return ApproveResult{Outcome: ApproveRejected, Reason: "malformed server response"}
	default:
		reason := resp.body.Error
		if reason == "" {
			reason = "approval rejected"
		}
		return ApproveResult{Outcome: ApproveRejected, Reason: reason}
	}
}

// classify returns the structured error code when the server provides
// one. String matching on the error text is kept only for servers that
// predate structured codes.
func classify(body serverResponse) string {
	if body.ErrorCode != "" {
		return body.ErrorCode
	}
	if body.Error == "" {
		return ""
	}
	lower := strings.ToLower(body.Error)
	switch {
	case strings.Contains(lower, "already used"):
		return "ALREADY_USED"
	case strings.Contains(lower, "already fulfilled"):
		return "ALREADY_FULFILLED"
	case strings.Contains(lower, "not for your merchant"):
		return "FOREIGN_MERCHANT"
	default:
		return "REJECTED"
	}
}

type httpResponse struct {
	status int
	body   serverResponse
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (*httpResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	out := &httpResponse{status: resp.StatusCode}
	if len(raw) > 0 {
		// A body that fails to parse is only fatal for success statuses;
		// error statuses still classify by status alone.
		if err := json.Unmarshal(raw, &out.body); err != nil && resp.StatusCode < http.StatusBadRequest {
			return nil, err
		}
	}
	return out, nil
}
