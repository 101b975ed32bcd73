package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CommissionStatus string

const (
	CommissionStatusPending  CommissionStatus = "pending"
	CommissionStatusApproved CommissionStatus = "approved"
	CommissionStatusRejected CommissionStatus = "rejected"
	CommissionStatusPaid     CommissionStatus = "paid"
)

func (s CommissionStatus) Valid() bool {
	switch s {
	case CommissionStatusPending, CommissionStatusApproved, CommissionStatusRejected, CommissionStatusPaid:
		return true
	}
	return false
}

// Terminal: paid ve rejected durumlarından çıkış yok
func (s CommissionStatus) Terminal() bool {
	return s == CommissionStatusPaid || s == CommissionStatusRejected
}

// SaleCommission: (sale_id, user_id) başına en fazla bir reddedilmemiş kayıt.
// Bu kural veritabanında kısmi unique index ile de korunur (bkz. database.Migrate).
// Kayıtlar fiziksel olarak silinmez.
type SaleCommission struct {
	ID               uint            `gorm:"primaryKey"`
	SaleID           uint            `gorm:"index;not null"`
	Sale             Sale            `gorm:"foreignKey:SaleID"`
	UserID           uint            `gorm:"index;not null"`
	User             User            `gorm:"foreignKey:UserID"`
	CommissionRuleID uint            `gorm:"index;not null"`
	CommissionRule   CommissionRule  `gorm:"foreignKey:CommissionRuleID"`
	CalculatedAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ManualAdjustment decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	FinalAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null"` // = calculated + adjustment, sadece sunucu yazar

	Status          CommissionStatus `gorm:"size:20;not null;index"`
	Paid            bool             `gorm:"not null;default:false"`
	RejectionReason string           `gorm:"size:500"`
	Notes           string           `gorm:"size:500"`
	PaymentDueDate  *time.Time

	ApprovedBy *uint
	ApprovedAt *time.Time
	RejectedBy *uint
	RejectedAt *time.Time
	PaidBy     *uint
	PaidAt     *time.Time

	Adjustments []CommissionAdjustment `gorm:"foreignKey:CommissionID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
