package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dealership-backend/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrNoApplicableRule = errors.New("uygulanabilir komisyon kuralı yok")
	ErrInvalidRule      = errors.New("geçersiz komisyon kuralı")
	ErrNegativeAmount   = errors.New("komisyon tutarı negatif olamaz")
)

// SaleFacts: çözümleme için gereken satış bilgileri.
type SaleFacts struct {
	SaleID          uint
	SalespersonID   uint
	SalePrice       decimal.Decimal
	NetProfit       decimal.Decimal
	VehicleCategory string
	SaleDate        time.Time
}

func FactsFromSale(s models.Sale) SaleFacts {
	return SaleFacts{
		SaleID:          s.ID,
		SalespersonID:   s.SalespersonID,
		SalePrice:       s.SalePrice,
		NetProfit:       s.NetProfit,
		VehicleCategory: s.VehicleCategory,
		SaleDate:        s.SaleDate,
	}
}

// Resolve picks the most specific active rule for the sale and computes the
// calculated amount. Specificity: category+range > category > range > default;
// ties go to the lowest rule id.
func Resolve(candidates []models.CommissionRule, sale SaleFacts) (models.CommissionRule, decimal.Decimal, error) {
	var (
		best      *models.CommissionRule
		bestScore = -1
	)

	for i := range candidates {
		r := &candidates[i]
		if !r.Active {
			continue
		}
		score, ok := match(r, sale)
		if !ok {
			continue
		}
		if score > bestScore || (score == bestScore && r.ID < best.ID) {
			best = r
			bestScore = score
		}
	}

	if best == nil {
		return models.CommissionRule{}, decimal.Zero, fmt.Errorf("%w: satış #%d (%s, %s)", ErrNoApplicableRule, sale.SaleID, sale.VehicleCategory, sale.SalePrice.StringFixed(2))
	}

	amount, err := Calculate(*best, sale)
	if err != nil {
		return *best, decimal.Zero, err
	}
	return *best, amount, nil
}

func match(r *models.CommissionRule, sale SaleFacts) (int, bool) {
	score := 0

	if r.VehicleCategory != "" {
		if !strings.EqualFold(strings.TrimSpace(r.VehicleCategory), strings.TrimSpace(sale.VehicleCategory)) {
			return 0, false
		}
		score += 2
	}

	if r.MinSaleValue != nil || r.MaxSaleValue != nil {
		if r.MinSaleValue != nil && sale.SalePrice.LessThan(*r.MinSaleValue) {
			return 0, false
		}
		if r.MaxSaleValue != nil && !sale.SalePrice.LessThan(*r.MaxSaleValue) {
			return 0, false
		}
		score++
	}

	return score, true
}

// Calculate evaluates one rule against a sale. Result is clamped to the
// rule caps and rounded to cents.
func Calculate(r models.CommissionRule, sale SaleFacts) (decimal.Decimal, error) {
	var amount decimal.Decimal

	switch r.Type {
	case models.CommissionTypeFlat:
		amount = r.Params.Amount
	case models.CommissionTypePercentOfSale:
		amount = r.Params.Rate.Mul(sale.SalePrice)
	case models.CommissionTypePercentOfProfit:
		amount = r.Params.Rate.Mul(sale.NetProfit)
	case models.CommissionTypeTiered:
		base := sale.NetProfit
		if r.Params.Basis == models.TierBasisSale {
			base = sale.SalePrice
		}
		amount = tiered(r.Params.Tiers, base)
	default:
		return decimal.Zero, fmt.Errorf("%w: kural #%d bilinmeyen tip %q", ErrInvalidRule, r.ID, r.Type)
	}

	if r.MinAmount != nil && amount.LessThan(*r.MinAmount) {
		amount = *r.MinAmount
	}
	if r.MaxAmount != nil && amount.GreaterThan(*r.MaxAmount) {
		amount = *r.MaxAmount
	}

	amount = amount.Round(2)
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: kural #%d sonucu %s", ErrNegativeAmount, r.ID, amount.StringFixed(2))
	}
	return amount, nil
}

// tiered: her bandın marjinal tutarı toplanır.
func tiered(tiers []models.Tier, base decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	lower := decimal.Zero

	for _, t := range tiers {
		if !base.GreaterThan(lower) {
			break
		}
		upper := base
		if t.UpTo != nil && t.UpTo.LessThan(base) {
			upper = *t.UpTo
		}
		total = total.Add(upper.Sub(lower).Mul(t.Rate))
		if t.UpTo == nil {
			break
		}
		lower = *t.UpTo
	}
	return total
}
