package redemption

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	domainErrors "redeem/internal/errors"
	"redeem/internal/models"
	"redeem/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRedemptionRepo struct {
	mock.Mock
}

func (m *MockRedemptionRepo) GetByCode(ctx context.Context, code string) (*models.RedemptionRecord, error) {
	args := m.Called(ctx, code)
	if rec := args.Get(0); rec != nil {
		return rec.(*models.RedemptionRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRedemptionRepo) Consume(ctx context.Context, code string, operatorID uint, usedAt time.Time) (*models.RedemptionRecord, error) {
	args := m.Called(ctx, code, operatorID, usedAt)
	if rec := args.Get(0); rec != nil {
		return rec.(*models.RedemptionRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeSnapshotCache is an in-memory set-if-absent cache.
type fakeSnapshotCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
}

func newFakeCache() *fakeSnapshotCache {
	return &fakeSnapshotCache{entries: make(map[string][]byte)}
}

func (c *fakeSnapshotCache) GetSnapshot(_ context.Context, code string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[code]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return data, nil
}

func (c *fakeSnapshotCache) SetSnapshot(_ context.Context, code string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if _, ok := c.entries[code]; ok {
		return nil
	}
	c.entries[code] = data
	return nil
}

const (
	testMerchantID = uint(7)
	testOperatorID = uint(42)
)

func pendingRecord() *models.RedemptionRecord {
	return &models.RedemptionRecord{
		EventID: "evt-1",
		Code:    "RED-AB12CD34",
		Offer: models.Offer{
			MerchantID: testMerchantID,
			Title:      "Tasting Flight for Two",
		},
		Purchaser: models.User{
			Name:  "Jane Doe",
			Email: "jane.doe@example.com",
		},
		Status: models.RedemptionStatusPending,
		Amount: 12.50,
		Pricing: models.PricingBreakdown{
			RegularPrice:       25,
			DiscountPercentage: 50,
			DiscountAmount:     12.50,
			DiscountPrice:      12.50,
		},
		RedeemedAt: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func fulfilledRecord() *models.RedemptionRecord {
	rec := pendingRecord()
	rec.Status = models.RedemptionStatusFulfilled
	usedAt := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	rec.UsedAt = &usedAt
	operator := testOperatorID
	rec.UsedByID = &operator
	return rec
}

func TestService_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("pending record verifies cleanly", func(t *testing.T) {
		repo := new(MockRedemptionRepo)
		repo.On("GetByCode", ctx, "RED-AB12CD34").Return(pendingRecord(), nil)
		svc := NewService(repo, newFakeCache())

		res, err := svc.Verify(ctx, testMerchantID, "RED-AB12CD34")
		require.NoError(t, err)
		assert.False(t, res.AlreadyUsed)

		var snap models.RedemptionSnapshot
		require.NoError(t, json.Unmarshal(res.Snapshot, &snap))
		assert.Equal(t, "RED-AB12CD34", snap.Code)
		assert.Equal(t, "Jane Doe", snap.UserName)
		assert.Equal(t, 12.50, snap.Pricing.DiscountPrice)
		repo.AssertExpectations(t)
	})

	t.Run("approved record is still verifiable", func(t *testing.T) {
		rec := pendingRecord()
		rec.Status = models.RedemptionStatusApproved
		repo := new(MockRedemptionRepo)
		repo.On("GetByCode", ctx, "RED-AB12CD34").Return(rec, nil)
		svc := NewService(repo, newFakeCache())

		res, err := svc.Verify(ctx, testMerchantID, "RED-AB12CD34")
		require.NoError(t, err)
		assert.False(t, res.AlreadyUsed)
	})

	t.Run("malformed code fails before any lookup", func(t *testing.T) {
		repo := new(MockRedemptionRepo)
		svc := NewService(repo, newFakeCache())

		_, err := svc.Verify(ctx, testMerchantID, "BLUE-123")
		assert.ErrorIs(t, err, domainErrors.ErrInvalidCode)
		repo.AssertNotCalled(t, "GetByCode")
	})

	t.Run("unknown code", func(t *testing.T) {
		repo := new(MockRedemptionRepo)
		repo.On("GetByCode", ctx, "RED-MISSING1").Return(nil, repositories.ErrRecordNotFound)
		svc := NewService(repo, newFakeCache())

		_, err := svc.Verify(ctx, testMerchantID, "RED-MISSING1")
		assert.ErrorIs(t, err, domainErrors.ErrUnknownCode)
	})

	t.Run("foreign record rejects before exposing its status", func(t *testing.T) {
		rec := fulfilledRecord()
		repo := new(MockRedemptionRepo)
		repo.On("GetByCode", ctx, "RED-AB12CD34").Return(rec, nil)
		svc := NewService(repo, newFakeCache())

		_, err := svc.Verify(ctx, testMerchantID+1, "RED-AB12CD34")
		assert.ErrorIs(t, err, domainErrors.ErrForeignMerchant)
	})

	t.Run("fulfilled record replays byte-identical snapshots", func(t *testing.T) {
		repo := new(MockRedemptionRepo)
		repo.On("GetByCode", ctx, "RED-AB12CD34").Return(fulfilledRecord(), nil)
		cache := newFakeCache()
		svc := NewService(repo, cache)

		first, err := svc.Verify(ctx, testMerchantID, "RED-AB12CD34")
		require.NoError(t, err)
		assert.True(t, first.AlreadyUsed)

		second, err := svc.Verify(ctx, testMerchantID, "RED-AB12CD34")
		require.NoError(t, err)
		assert.True(t, second.AlreadyUsed)
		assert.Equal(t, []byte(first.Snapshot), []byte(second.Snapshot))
		// The second read came from the cache, not a re-marshal.
		assert.Equal(t, 1, cache.sets)
	})

	t.Run("cached snapshot wins over a rebuilt one", func(t *testing.T) {
		cached := []byte(`{"code":"RED-AB12CD34","status":"fulfilled","frozen":true}`)
		cache := newFakeCache()
		cache.entries["RED-AB12CD34"] = cached

		repo := new(MockRedemptionRepo)
		repo.On("GetByCode", ctx, "RED-AB12CD34").Return(fulfilledRecord(), nil)
		svc := NewService(repo, cache)

		res, err := svc.Verify(ctx, testMerchantID, "RED-AB12CD34")
		require.NoError(t, err)
		assert.True(t, res.AlreadyUsed)
		assert.Equal(t, cached, []byte(res.Snapshot))
	})

	t.Run("cancelled record is not verifiable", func(t *testing.T) {
		rec := pendingRecord()
		rec.Status = "cancelled"
		repo := new(MockRedemptionRepo)
		repo.On("GetByCode", ctx, "RED-AB12CD34").Return(rec, nil)
		svc := NewService(repo, newFakeCache())

		_, err := svc.Verify(ctx, testMerchantID, "RED-AB12CD34")
		assert.ErrorIs(t, err, domainErrors.ErrNotVerifiable)
	})
}

func TestService_Approve(t *testing.T) {
	ctx := context.Background()

	t.Run("consumes the record once and caches its snapshot", func(t *testing.T) {
		repo := new(MockRedemptionRepo)
		repo.On("GetByCode", ctx, "RED-AB12CD34").Return(pendingRecord(), nil)
		repo.On("Consume", ctx, "RED-AB12CD34", testOperatorID, mock.AnythingOfType("time.Time")).
			Return(fulfilledRecord(), nil).Once()
		cache := newFakeCache()
		svc := NewService(repo, cache)

		snap, err := svc.Approve(ctx, testMerchantID, testOperatorID, "RED-AB12CD34")
		require.NoError(t, err)

		var decoded models.RedemptionSnapshot
		require.NoError(t, json.Unmarshal(snap, &decoded))
		assert.Equal(t, models.RedemptionStatusFulfilled, decoded.Status)
		require.NotNil(t, decoded.UsedAt)

		// Later verifications replay the exact approval bytes.
		res, err := svc.Verify(ctx, testMerchantID, "RED-AB12CD34")
		require.NoError(t, err)
		assert.True(t, res.AlreadyUsed)
		assert.Equal(t, []byte(snap), []byte(res.Snapshot))
		repo.AssertExpectations(t)
	})

	t.Run("already fulfilled passes through from storage", func(t *testing.T) {
		repo := new(MockRedemptionRepo)
		repo.On("GetByCode", ctx, "RED-AB12CD34").Return(fulfilledRecord(), nil)
		repo.On("Consume", ctx, "RED-AB12CD34", testOperatorID, mock.AnythingOfType("time.Time")).
			Return(nil, domainErrors.ErrAlreadyFulfilled)
		svc := NewService(repo, newFakeCache())

		_, err := svc.Approve(ctx, testMerchantID, testOperatorID, "RED-AB12CD34")
		assert.ErrorIs(t, err, domainErrors.ErrAlreadyFulfilled)
	})

	t.Run("foreign merchant cannot approve", func(t *testing.T) {
		repo := new(MockRedemptionRepo)
		repo.On("GetByCode", ctx, "RED-AB12CD34").Return(pendingRecord(), nil)
		svc := NewService(repo, newFakeCache())

		_, err := svc.Approve(ctx, testMerchantID+1, testOperatorID, "RED-AB12CD34")
		assert.ErrorIs(t, err, domainErrors.ErrForeignMerchant)
		repo.AssertNotCalled(t, "Consume")
	})

	t.Run("malformed code fails before any lookup", func(t *testing.T) {
		repo := new(MockRedemptionRepo)
		svc := NewService(repo, newFakeCache())

		_, err := svc.Approve(ctx, testMerchantID, testOperatorID, "not a code")
		assert.ErrorIs(t, err, domainErrors.ErrInvalidCode)
		repo.AssertNotCalled(t, "GetByCode")
	})
}
