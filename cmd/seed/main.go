// Package main seeds a merchant, an operator account, offers and pending
// redemption records so the verification flow can be exercised without
// the external checkout system that normally creates records.
package main

import (
	"log"
	"os"
	"time"

	"redeem/internal/config"
	"redeem/internal/models"
	"redeem/internal/repositories"
	"redeem/internal/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	config.LoadEnv()

	operatorEmail := os.Getenv("SEED_OPERATOR_EMAIL")
	operatorPassword := os.Getenv("SEED_OPERATOR_PASSWORD")
	if operatorEmail == "" || operatorPassword == "" {
		log.Fatal("SEED_OPERATOR_EMAIL and SEED_OPERATOR_PASSWORD must be set in environment")
	}

	if err := repositories.InitDB(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer func() {
		if repositories.DB != nil {
			sqlDB, err := repositories.DB.DB()
			if err == nil {
				_ = sqlDB.Close()
			}
		}
		if repositories.CacheService != nil {
			_ = repositories.CacheService.Close()
		}
	}()

	db := repositories.DB

	var existing models.User
	if err := db.Where("email = ?", operatorEmail).First(&existing).Error; err == nil {
		log.Println("Operator account already exists, nothing to do")
		return
	}

	merchant := models.Merchant{
		BusinessName:    config.GetEnv("SEED_MERCHANT_NAME", "Corner Coffee Roasters"),
		BusinessAddress: "12 Market Street",
		ContactEmail:    operatorEmail,
	}
	if err := db.Create(&merchant).Error; err != nil {
		log.Fatal("Failed to create merchant:", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(operatorPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}

	operator := models.User{
		Email:        operatorEmail,
		Password:     string(hashedPassword),
		Name:         "Counter Operator",
		Role:         "operator",
		MerchantID:   &merchant.ID,
		TokenVersion: 1,
	}
	if err := db.Create(&operator).Error; err != nil {
		log.Fatal("Failed to create operator:", err)
	}

	purchaser := models.User{
		Email:        "jane.doe@example.com",
		Password:     string(hashedPassword),
		Name:         "Jane Doe",
		Role:         "customer",
		TokenVersion: 1,
	}
	if err := db.Create(&purchaser).Error; err != nil {
		log.Fatal("Failed to create purchaser:", err)
	}

	offer := models.Offer{
		MerchantID:         merchant.ID,
		Title:              "Tasting Flight for Two",
		Description:        "Three single-origin pours each, plus pastries",
		RegularPrice:       25.00,
		DiscountPercentage: 50,
	}
	if err := db.Create(&offer).Error; err != nil {
		log.Fatal("Failed to create offer:", err)
	}

	count := config.GetIntEnv("SEED_RECORD_COUNT", 5)
	for i := 0; i < count; i++ {
		discountAmount := offer.RegularPrice * offer.DiscountPercentage / 100
		rec := models.RedemptionRecord{
			EventID:     uuid.NewString(),
			Code:        utils.MustGenerateRedemptionCode(),
			OfferID:     offer.ID,
			PurchaserID: purchaser.ID,
			Status:      models.RedemptionStatusPending,
			Amount:      offer.RegularPrice - discountAmount,
			Pricing: models.PricingBreakdown{
				RegularPrice:       offer.RegularPrice,
				DiscountPercentage: offer.DiscountPercentage,
				DiscountAmount:     discountAmount,
				DiscountPrice:      offer.RegularPrice - discountAmount,
			},
			RedeemedAt: time.Now().UTC(),
		}
		if err := db.Create(&rec).Error; err != nil {
			log.Fatal("Failed to create redemption record:", err)
		}
		log.Printf("Seeded redemption code %s", rec.Code)
	}

	log.Println("✅ Seed data created successfully!")
}
