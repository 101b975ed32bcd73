package rules

import (
	"fmt"

	"dealership-backend/internal/models"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Validate rejects rule shapes that cannot be evaluated. Runs at load time so
// a bad configuration never reaches a commission calculation.
func Validate(r models.CommissionRule) error {
	key := fmt.Sprintf("%s@%d", r.Code, r.Version)
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalidRule, key, fmt.Sprintf(format, args...))
	}

	if r.Code == "" {
		return fmt.Errorf("%w: code zorunlu", ErrInvalidRule)
	}
	if r.Version <= 0 {
		return invalid("version pozitif olmalı")
	}
	if r.Name == "" {
		return invalid("name zorunlu")
	}

	p := r.Params
	switch r.Type {
	case models.CommissionTypeFlat:
		if p.Amount.IsNegative() {
			return invalid("amount negatif olamaz")
		}
		if !p.Rate.IsZero() || len(p.Tiers) > 0 {
			return invalid("flat kural sadece amount alır")
		}

	case models.CommissionTypePercentOfSale, models.CommissionTypePercentOfProfit:
		if err := checkRate(p.Rate); err != nil {
			return invalid("rate %v", err)
		}
		if !p.Amount.IsZero() || len(p.Tiers) > 0 {
			return invalid("%s kural sadece rate alır", r.Type)
		}

	case models.CommissionTypeTiered:
		if p.Basis != models.TierBasisProfit && p.Basis != models.TierBasisSale {
			return invalid("basis 'profit' veya 'sale' olmalı")
		}
		if len(p.Tiers) == 0 {
			return invalid("en az bir bant gerekli")
		}
		prev := decimal.Zero
		for i, t := range p.Tiers {
			if err := checkRate(t.Rate); err != nil {
				return invalid("bant %d rate %v", i+1, err)
			}
			last := i == len(p.Tiers)-1
			if t.UpTo == nil {
				if !last {
					return invalid("sadece son bant sınırsız olabilir")
				}
				continue
			}
			if !t.UpTo.GreaterThan(prev) {
				return invalid("bant sınırları artan olmalı")
			}
			prev = *t.UpTo
		}

	default:
		return invalid("bilinmeyen tip %q", r.Type)
	}

	if r.MinAmount != nil && r.MinAmount.IsNegative() {
		return invalid("min_amount negatif olamaz")
	}
	if r.MaxAmount != nil && r.MaxAmount.IsNegative() {
		return invalid("max_amount negatif olamaz")
	}
	if r.MinAmount != nil && r.MaxAmount != nil && r.MinAmount.GreaterThan(*r.MaxAmount) {
		return invalid("min_amount > max_amount")
	}
	if r.MinSaleValue != nil && r.MaxSaleValue != nil && !r.MinSaleValue.LessThan(*r.MaxSaleValue) {
		return invalid("min_sale_value < max_sale_value olmalı")
	}
	return nil
}

func checkRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(one) {
		return fmt.Errorf("0 ile 1 arasında olmalı (%s)", rate.String())
	}
	return nil
}
