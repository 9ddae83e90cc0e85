package models

import "time"

type Merchant struct {
	ID              uint   `gorm:"primarykey"`
	BusinessName    string `gorm:"not null"`
	BusinessAddress string
	ContactEmail    string
	Status          string `gorm:"default:'active'"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
