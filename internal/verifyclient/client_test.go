package verifyclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"redeem/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotJSON(t *testing.T, status string, usedAt *time.Time) json.RawMessage {
	t.Helper()
	snap := models.RedemptionSnapshot{
		Code:      "RED-AB12CD34",
		Status:    status,
		UserName:  "Jane Doe",
		UserEmail: "jane.doe@example.com",
		Offer:     models.OfferSnapshot{Title: "Tasting Flight for Two"},
		Amount:    12.50,
		Pricing: models.PricingBreakdown{
			RegularPrice:       25,
			DiscountPercentage: 50,
			DiscountAmount:     12.50,
			DiscountPrice:      12.50,
		},
		RedeemedAt: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		UsedAt:     usedAt,
	}
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	return data
}

func respond(t *testing.T, status int, body map[string]interface{}) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func TestClient_Verify(t *testing.T) {
	t.Run("verified record", func(t *testing.T) {
		srv := httptest.NewServer(respond(t, http.StatusOK, map[string]interface{}{
			"record": snapshotJSON(t, models.RedemptionStatusPending, nil),
		}))
		defer srv.Close()

		c := New(srv.URL, "test-token", 0)
		res := c.Verify(context.Background(), "RED-AB12CD34")

		assert.Equal(t, OutcomeVerified, res.Outcome)
		require.NotNil(t, res.Record)
		assert.Equal(t, "RED-AB12CD34", res.Record.Code)
		assert.Equal(t, 12.50, res.Record.Pricing.DiscountPrice)
	})

	t.Run("already used via structured code", func(t *testing.T) {
		used := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
		srv := httptest.NewServer(respond(t, http.StatusOK, map[string]interface{}{
			"error":      "already used",
			"error_code": "ALREADY_USED",
			"record":     snapshotJSON(t, models.RedemptionStatusFulfilled, &used),
		}))
		defer srv.Close()

		c := New(srv.URL, "test-token", 0)
		res := c.Verify(context.Background(), "RED-AB12CD34")

		assert.Equal(t, OutcomeAlreadyUsed, res.Outcome)
		require.NotNil(t, res.Record)
		require.NotNil(t, res.Record.UsedAt)
		assert.Equal(t, used, res.Record.UsedAt.UTC())
	})

	t.Run("already used via legacy error text", func(t *testing.T) {
		srv := httptest.NewServer(respond(t, http.StatusOK, map[string]interface{}{
			"error":  "This code was already used on 2024-01-01",
			"record": snapshotJSON(t, models.RedemptionStatusFulfilled, nil),
		}))
		defer srv.Close()

		c := New(srv.URL, "test-token", 0)
		res := c.Verify(context.Background(), "RED-AB12CD34")

		assert.Equal(t, OutcomeAlreadyUsed, res.Outcome)
		assert.NotNil(t, res.Record)
	})

	t.Run("foreign merchant never exposes the record", func(t *testing.T) {
		srv := httptest.NewServer(respond(t, http.StatusForbidden, map[string]interface{}{
			"error":      "not for your merchant",
			"error_code": "FOREIGN_MERCHANT",
			"record":     snapshotJSON(t, models.RedemptionStatusPending, nil),
		}))
		defer srv.Close()

		c := New(srv.URL, "test-token", 0)
		res := c.Verify(context.Background(), "RED-AB12CD34")

		assert.Equal(t, OutcomeForeignMerchant, res.Outcome)
		assert.Nil(t, res.Record)
		assert.Equal(t, "not for your merchant", res.Reason)
	})

	t.Run("unknown code rejects with the server reason", func(t *testing.T) {
		srv := httptest.NewServer(respond(t, http.StatusNotFound, map[string]interface{}{
			"error":      "unknown redemption code",
			"error_code": "UNKNOWN_CODE",
		}))
		defer srv.Close()

		c := New(srv.URL, "test-token", 0)
		res := c.Verify(context.Background(), "RED-AB12CD34")

		assert.Equal(t, OutcomeRejected, res.Outcome)
		assert.Equal(t, "unknown redemption code", res.Reason)
	})

	t.Run("server errors are network failures", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := New(srv.URL, "test-token", 0)
		res := c.Verify(context.Background(), "RED-AB12CD34")
		assert.Equal(t, OutcomeNetworkFailure, res.Outcome)
	})

	t.Run("timeout is a network failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		c := New(srv.URL, "test-token", 10*time.Millisecond)
		res := c.Verify(context.Background(), "RED-AB12CD34")

		assert.Equal(t, OutcomeNetworkFailure, res.Outcome)
		assert.Error(t, res.Err)
	})

	t.Run("malformed code never reaches the network", func(t *testing.T) {
		var requests int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(&requests, 1)
		}))
		defer srv.Close()

		c := New(srv.URL, "test-token", 0)
		res := c.Verify(context.Background(), "BLUE-123")

		assert.Equal(t, OutcomeRejected, res.Outcome)
		assert.Equal(t, int64(0), atomic.LoadInt64(&requests))
	})
}

func TestClient_Approve(t *testing.T) {
	t.Run("fulfilled record", func(t *testing.T) {
		used := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
		srv := httptest.NewServer(respond(t, http.StatusOK, map[string]interface{}{
			"record": snapshotJSON(t, models.RedemptionStatusFulfilled, &used),
		}))
		defer srv.Close()

		c := New(srv.URL, "test-token", 0)
		res := c.Approve(context.Background(), "RED-AB12CD34")

		assert.Equal(t, ApproveFulfilled, res.Outcome)
		require.NotNil(t, res.Record)
		assert.Equal(t, models.RedemptionStatusFulfilled, res.Record.Status)
	})

	t.Run("already fulfilled is idempotent information", func(t *testing.T) {
		srv := httptest.NewServer(respond(t, http.StatusConflict, map[string]interface{}{
			"error":      "record was already fulfilled",
			"error_code": "ALREADY_FULFILLED",
		}))
		defer srv.Close()

		c := New(srv.URL, "test-token", 0)
		res := c.Approve(context.Background(), "RED-AB12CD34")

		assert.Equal(t, ApproveAlreadyFulfilled, res.Outcome)
		assert.Equal(t, "record was already fulfilled", res.Reason)
	})

	t.Run("server errors are network failures", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))
		defer srv.Close()

		c := New(srv.URL, "test-token", 0)
		res := c.Approve(context.Background(), "RED-AB12CD34")
		assert.Equal(t, ApproveNetworkFailure, res.Outcome)
	})

	t.Run("malformed code never reaches the network", func(t *testing.T) {
		var requests int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(&requests, 1)
		}))
		defer srv.Close()

		c := New(srv.URL, "test-token", 0)
		res := c.Approve(context.Background(), "red-lowercase")

		assert.Equal(t, ApproveRejected, res.Outcome)
		assert.Equal(t, int64(0), atomic.LoadInt64(&requests))
	})
}
