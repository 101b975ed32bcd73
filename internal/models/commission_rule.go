package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CommissionType string

const (
	CommissionTypeFlat            CommissionType = "flat"
	CommissionTypePercentOfSale   CommissionType = "percent_of_sale"
	CommissionTypePercentOfProfit CommissionType = "percent_of_profit"
	CommissionTypeTiered          CommissionType = "tiered"
)

// TierBasis: kademeli kuralda bantların hangi tutar üzerinden hesaplanacağı
type TierBasis string

const (
	TierBasisProfit TierBasis = "profit"
	TierBasisSale   TierBasis = "sale"
)

// Tier: UpTo nil ise son bant (sınırsız)
type Tier struct {
	UpTo *decimal.Decimal `json:"up_to,omitempty"`
	Rate decimal.Decimal  `json:"rate"`
}

// RuleParams: tipe göre dolu olan alanlar değişir, yükleme sırasında doğrulanır.
type RuleParams struct {
	Amount decimal.Decimal `json:"amount"` // flat
	Rate   decimal.Decimal `json:"rate"`   // percent_of_sale / percent_of_profit (0.05 = %5)
	Basis  TierBasis       `json:"basis,omitempty"`
	Tiers  []Tier          `json:"tiers,omitempty"`
}

// CommissionRule: (code, version) başına değişmez. Değişiklik = yeni versiyon.
type CommissionRule struct {
	ID      uint           `gorm:"primaryKey"`
	Code    string         `gorm:"size:50;not null;uniqueIndex:idx_rule_code_version"`
	Version int            `gorm:"not null;uniqueIndex:idx_rule_code_version"`
	Name    string         `gorm:"size:100;not null"`
	Type    CommissionType `gorm:"size:30;not null"`
	Params  RuleParams     `gorm:"serializer:json;type:text;not null"`

	MinAmount *decimal.Decimal `gorm:"type:decimal(12,2)"` // alt sınır
	MaxAmount *decimal.Decimal `gorm:"type:decimal(12,2)"` // üst sınır

	// Uygulanabilirlik: boş kategori = tüm kategoriler, aralık [min, max)
	VehicleCategory string           `gorm:"size:50;index"`
	MinSaleValue    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	MaxSaleValue    *decimal.Decimal `gorm:"type:decimal(12,2)"`

	Active    bool `gorm:"not null;index"`
	CreatedAt time.Time
}
