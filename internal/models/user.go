package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null"`
	Password     string `gorm:"not null"`
	Name         string `gorm:"not null"`
	Role         string `gorm:"default:'operator'"`
	MerchantID   *uint  `gorm:"index"`
	Status       string `gorm:"default:'active'"`
	LastLoginAt  time.Time
	TokenVersion int `gorm:"default:1"`
}
