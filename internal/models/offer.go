package models

import "gorm.io/gorm"

type Offer struct {
	gorm.Model
	MerchantID         uint   `gorm:"not null;index"`
	Merchant           Merchant
	Title              string  `gorm:"not null"`
	Description        string
	RegularPrice       float64 `gorm:"not null"`
	DiscountPercentage float64 `gorm:"not null;default:0"`
	Status             string  `gorm:"default:'active'"`
}
