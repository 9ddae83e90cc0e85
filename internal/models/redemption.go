package models

import (
	"time"

	"gorm.io/gorm"
)

// Redemption record statuses. "already used" is never stored; it is the
// response classification for a record that reached StatusFulfilled.
const (
	RedemptionStatusPending   = "pending"
	RedemptionStatusApproved  = "approved"
	RedemptionStatusFulfilled = "fulfilled"
)

// PricingBreakdown is the monetary snapshot captured when the offer was
// purchased. It is embedded in the record and replayed verbatim on every
// already-used response.
type PricingBreakdown struct {
	RegularPrice       float64 `json:"regularPrice"`
	DiscountPercentage float64 `json:"discountPercentage"`
	DiscountAmount     float64 `json:"discountAmount"`
	DiscountPrice      float64 `json:"discountPrice"`
}

type RedemptionRecord struct {
	gorm.Model
	EventID     string `gorm:"uniqueIndex;not null"`
	Code        string `gorm:"uniqueIndex;not null"`
	OfferID     uint   `gorm:"not null;index"`
	Offer       Offer
	PurchaserID uint `gorm:"not null;index"`
	Purchaser   User
	Status      string           `gorm:"not null;default:'pending'"`
	Amount      float64          `gorm:"not null"`
	PointsSpent *int
	Pricing     PricingBreakdown `gorm:"embedded;embeddedPrefix:pricing_"`
	RedeemedAt  time.Time        `gorm:"not null"`
	UsedAt      *time.Time
	UsedByID    *uint
}

// Consumed reports whether the record has been fulfilled by an operator.
func (r *RedemptionRecord) Consumed() bool {
	return r.Status == RedemptionStatusFulfilled
}

// OfferSnapshot is the offer portion of a redemption snapshot.
type OfferSnapshot struct {
	Title string `json:"title"`
}

// RedemptionSnapshot is the read-only view of a record returned by the
// verify and approve operations. Field names are part of the wire
// contract consumed by operator clients.
type RedemptionSnapshot struct {
	Code        string           `json:"code"`
	Status      string           `json:"status"`
	UserName    string           `json:"user_name"`
	UserEmail   string           `json:"user_email"`
	Offer       OfferSnapshot    `json:"offer"`
	PointsSpent *int             `json:"points_spent,omitempty"`
	Amount      float64          `json:"amount"`
	Pricing     PricingBreakdown `json:"pricingBreakdown"`
	RedeemedAt  time.Time        `json:"redeemed_at"`
	UsedAt      *time.Time       `json:"used_at,omitempty"`
}

// Snapshot builds the wire view of the record. Timestamps are normalized
// to UTC so a rebuilt snapshot is identical to a cached one.
func (r *RedemptionRecord) Snapshot() RedemptionSnapshot {
	snap := RedemptionSnapshot{
		Code:        r.Code,
		Status:      r.Status,
		UserName:    r.Purchaser.Name,
		UserEmail:   r.Purchaser.Email,
		Offer:       OfferSnapshot{Title: r.Offer.Title},
		PointsSpent: r.PointsSpent,
		Amount:      r.Amount,
		Pricing:     r.Pricing,
		RedeemedAt:  r.RedeemedAt.UTC(),
	}
	if r.UsedAt != nil {
		t := r.UsedAt.UTC()
		snap.UsedAt = &t
	}
	return snap
}
