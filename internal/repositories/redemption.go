package repositories

import (
	"context"
	"errors"
	"time"

	domainErrors "redeem/internal/errors"
	"redeem/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrRecordNotFound = errors.New("redemption record not found")

// RedemptionRepository defines the interface for redemption record storage.
type RedemptionRepository interface {
	// GetByCode loads a record with its offer and purchaser.
	GetByCode(ctx context.Context, code string) (*models.RedemptionRecord, error)

	// Consume marks a record fulfilled exactly once. A record that is
	// already fulfilled yields ErrAlreadyFulfilled and no write.
	Consume(ctx context.Context, code string, operatorID uint, usedAt time.Time) (*models.RedemptionRecord, error)
}

type redemptionRepository struct {
	db *gorm.DB
}

func NewRedemptionRepository(db *gorm.DB) RedemptionRepository {
	return &redemptionRepository{db: db}
}

func (r *redemptionRepository) GetByCode(ctx context.Context, code string) (*models.RedemptionRecord, error) {
	var rec models.RedemptionRecord
	err := r.db.WithContext(ctx).
		Preload("Offer").
		Preload("Purchaser").
		Where("code = ?", code).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *redemptionRepository) Consume(ctx context.Context, code string, operatorID uint, usedAt time.Time) (*models.RedemptionRecord, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.RedemptionRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).
			First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}

		if rec.Status == models.RedemptionStatusFulfilled {
			return domainErrors.ErrAlreadyFulfilled
		}
		if rec.Status != models.RedemptionStatusPending && rec.Status != models.RedemptionStatusApproved {
			return domainErrors.ErrNotVerifiable
		}

		rec.Status = models.RedemptionStatusFulfilled
		rec.UsedAt = &usedAt
		rec.UsedByID = &operatorID
		return tx.Save(&rec).Error
	})
	if err != nil {
		return nil, err
	}

	return r.GetByCode(ctx, code)
}
