package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionAdjustment: sadece ekleme yapılan düzeltme defteri.
// Güncelleme ve silme yok; geri almak ters işaretli yeni kayıt demektir.
type CommissionAdjustment struct {
	ID            uint            `gorm:"primaryKey"`
	CommissionID  uint            `gorm:"index;not null"`
	DeltaAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Justification string          `gorm:"size:500;not null"`
	ActorID       uint            `gorm:"index;not null"`
	CreatedAt     time.Time
}
