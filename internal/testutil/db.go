// Package testutil opens migrated sqlite databases and seeds fixtures for
// package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"dealership-backend/internal/database"
	"dealership-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NewDB returns a migrated sqlite database in a temp dir.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func DecPtr(s string) *decimal.Decimal {
	d := Dec(s)
	return &d
}

func Date(s string) time.Time {
	d, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		panic(err)
	}
	return d
}

func CreateUser(t *testing.T, db *gorm.DB, name string, role models.UserRole) models.User {
	t.Helper()

	u := models.User{
		Name:         name,
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: "x",
		Role:         role,
		Active:       true,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func CreateSale(t *testing.T, db *gorm.DB, id, salespersonID uint, price, profit, category, date string) models.Sale {
	t.Helper()

	s := models.Sale{
		ID:              id,
		SalespersonID:   salespersonID,
		SalePrice:       Dec(price),
		NetProfit:       Dec(profit),
		VehicleCategory: category,
		SaleDate:        Date(date),
		Status:          models.SaleStatusCompleted,
	}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("create sale %d: %v", id, err)
	}
	return s
}

func CreateFlatRule(t *testing.T, db *gorm.DB, code, amount string) models.CommissionRule {
	t.Helper()

	r := models.CommissionRule{
		Code:    code,
		Version: 1,
		Name:    code,
		Type:    models.CommissionTypeFlat,
		Params:  models.RuleParams{Amount: Dec(amount)},
		Active:  true,
	}
	if err := db.Create(&r).Error; err != nil {
		t.Fatalf("create rule %s: %v", code, err)
	}
	return r
}
