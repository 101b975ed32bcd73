package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SaleStatus string

const (
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusCancelled SaleStatus = "cancelled"
)

// Sale: satış modülünden gelen "satış tamamlandı" olayının kopyası.
// ID dış sistemdeki sale_id ile aynıdır.
type Sale struct {
	ID              uint            `gorm:"primaryKey;autoIncrement:false"`
	SalespersonID   uint            `gorm:"index;not null"`
	SalePrice       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	NetProfit       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	VehicleCategory string          `gorm:"size:50;index"`
	SaleDate        time.Time       `gorm:"index;not null"`
	Status          SaleStatus      `gorm:"size:20;not null;index"`
	CancelledAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
