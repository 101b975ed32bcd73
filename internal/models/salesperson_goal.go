package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalespersonGoal: dönem hedefi. Current* alanları türetilmiştir,
// sadece goal.Tracker günceller. Dönem günleri dahildir [start, end].
type SalespersonGoal struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      uint      `gorm:"index;not null"`
	User        User      `gorm:"foreignKey:UserID"`
	PeriodStart time.Time `gorm:"index;not null"`
	PeriodEnd   time.Time `gorm:"index;not null"`

	TargetSales   int             `gorm:"not null;default:0"`
	TargetRevenue decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	TargetProfit  decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`

	CurrentSales     int             `gorm:"not null;default:0"`
	CurrentRevenue   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CurrentProfit    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CommissionEarned decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"` // approved + paid
	CommissionPaid   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	RefreshedAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
