// Package redemption implements the server side of code verification and
// check-in: classifying a code for a merchant and consuming it at most
// once.
package redemption

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	domainErrors "redeem/internal/errors"
	"redeem/internal/models"
	"redeem/internal/repositories"
	"redeem/internal/validation"
)

type service struct {
	repo  repositories.RedemptionRepository
	cache SnapshotCache
	now   func() time.Time
}

// NewService creates a new redemption service instance.
func NewService(repo repositories.RedemptionRepository, cache SnapshotCache) Service {
	if repo == nil {
		panic("redemption repository is required")
	}
	if cache == nil {
		panic("snapshot cache is required")
	}
	return &service{
		repo:  repo,
		cache: cache,
		now:   time.Now,
	}
}

func (s *service) Verify(ctx context.Context, merchantID uint, code string) (*VerifyResult, error) {
	if err := validation.ValidateRedemptionCode(code); err != nil {
		return nil, err
	}

	rec, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if err == repositories.ErrRecordNotFound {
			return nil, domainErrors.ErrUnknownCode
		}
		return nil, fmt.Errorf("failed to load redemption record: %w", err)
	}

	// Ownership check comes before any status classification so a foreign
	// record never leaks, not even its used/unused state detail.
	if rec.Offer.MerchantID != merchantID {
		return nil, domainErrors.ErrForeignMerchant
	}

	if rec.Consumed() {
		snap, err := s.consumedSnapshot(ctx, rec)
		if err != nil {
			return nil, err
		}
		return &VerifyResult{AlreadyUsed: true, Snapshot: snap}, nil
	}

	if rec.Status != models.RedemptionStatusPending && rec.Status != models.RedemptionStatusApproved {
		return nil, domainErrors.ErrNotVerifiable
	}

	snap, err := json.Marshal(rec.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	return &VerifyResult{Snapshot: snap}, nil
}

func (s *service) Approve(ctx context.Context, merchantID, operatorID uint, code string) (json.RawMessage, error) {
	if err := validation.ValidateRedemptionCode(code); err != nil {
		return nil, err
	}

	rec, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if err == repositories.ErrRecordNotFound {
			return nil, domainErrors.ErrUnknownCode
		}
		return nil, fmt.Errorf("failed to load redemption record: %w", err)
	}
	if rec.Offer.MerchantID != merchantID {
		return nil, domainErrors.ErrForeignMerchant
	}

	consumed, err := s.repo.Consume(ctx, code, operatorID, s.now().UTC())
	if err != nil {
		return nil, err
	}

	return s.consumedSnapshot(ctx, consumed)
}

// consumedSnapshot returns the serialized snapshot of a fulfilled record,
// preferring the bytes cached when the record was first consumed.
func (s *service) consumedSnapshot(ctx context.Context, rec *models.RedemptionRecord) (json.RawMessage, error) {
	if cached, err := s.cache.GetSnapshot(ctx, rec.Code); err == nil && len(cached) > 0 {
		return cached, nil
	}

	data, err := json.Marshal(rec.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	// SetSnapshot is set-if-absent, so a concurrent first writer wins and
	// every later reader replays the same bytes.
	if err := s.cache.SetSnapshot(ctx, rec.Code, data); err != nil {
		log.Printf("failed to cache snapshot for %s: %v", rec.Code, err)
	}
	return data, nil
}
