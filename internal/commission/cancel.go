package commission

import (
	"context"
	"errors"
	"fmt"

	"dealership-backend/internal/models"
)

const SaleCancelledReason = "sale cancelled"

// SaleCancelled rejects the pending commissions of a cancelled sale. Approved
// and paid commissions are returned untouched: reversing them needs a
// compensating payment, not a status change.
func (s *Service) SaleCancelled(ctx context.Context, saleID uint, actor Actor) (rejected, compensate []models.SaleCommission, err error) {
	if !actor.is(models.RoleAdmin, models.RoleManager) {
		return nil, nil, ErrForbidden
	}

	var live []models.SaleCommission
	if err := s.db.WithContext(ctx).
		Where("sale_id = ? AND status <> ?", saleID, models.CommissionStatusRejected).
		Order("id asc").
		Find(&live).Error; err != nil {
		return nil, nil, fmt.Errorf("satış komisyonları yüklenemedi: %w", err)
	}

	for _, c := range live {
		if c.Status == models.CommissionStatusPending {
			r, err := s.reject(ctx, c, SaleCancelledReason, actor)
			if err == nil {
				rejected = append(rejected, r)
				continue
			}
			if !errors.Is(err, ErrConcurrentModification) {
				return rejected, compensate, err
			}
			// arada onaylanmış olabilir
			if c, err = s.load(ctx, c.ID); err != nil {
				return rejected, compensate, err
			}
			if c.Status == models.CommissionStatusRejected {
				continue
			}
		}
		compensate = append(compensate, c)
	}
	return rejected, compensate, nil
}
