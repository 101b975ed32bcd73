// Package sales records completed sales coming from the sales module and
// hands them to the commission engine.
package sales

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"dealership-backend/internal/audit"
	"dealership-backend/internal/commission"
	"dealership-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Completed: "satış tamamlandı" olayı.
type Completed struct {
	SaleID          uint
	SalespersonID   uint
	SalePrice       decimal.Decimal
	NetProfit       decimal.Decimal
	VehicleCategory string
	SaleDate        time.Time
}

// Outcome: satış her zaman kaydedilir; komisyon oluşturulamadıysa
// CommissionErr dolu, Commission nil olur (eksik komisyon listesine düşer).
type Outcome struct {
	Sale          models.Sale
	Commission    *models.SaleCommission
	Created       bool
	CommissionErr error
}

type CancelOutcome struct {
	Sale                 models.Sale
	Rejected             []models.SaleCommission
	RequiresCompensation []models.SaleCommission
}

type Service struct {
	db          *gorm.DB
	commissions *commission.Service
}

func NewService(db *gorm.DB, commissions *commission.Service) *Service {
	return &Service{db: db, commissions: commissions}
}

// Complete stores the sale and creates its commission. A redelivered event for
// a known sale does not change the stored sale; it returns the live commission
// or retries creation when there is none.
func (s *Service) Complete(ctx context.Context, in Completed, actorID uint) (Outcome, error) {
	if err := validateCompleted(in); err != nil {
		return Outcome{}, err
	}

	db := s.db.WithContext(ctx)

	var seller models.User
	if err := db.First(&seller, in.SalespersonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Outcome{}, fmt.Errorf("%w: satış temsilcisi #%d bulunamadı", commission.ErrValidation, in.SalespersonID)
		}
		return Outcome{}, err
	}

	var sale models.Sale
	err := db.First(&sale, in.SaleID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		sale = models.Sale{
			ID:              in.SaleID,
			SalespersonID:   in.SalespersonID,
			SalePrice:       in.SalePrice.Round(2),
			NetProfit:       in.NetProfit.Round(2),
			VehicleCategory: in.VehicleCategory,
			SaleDate:        in.SaleDate,
			Status:          models.SaleStatusCompleted,
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&sale).Error; err != nil {
				return fmt.Errorf("satış kaydedilemedi: %w", err)
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      actorID,
				UserName:    audit.UserName(tx, actorID),
				EntityType:  audit.EntitySale,
				EntityID:    sale.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Satış kaydedildi: %s %s", sale.VehicleCategory, sale.SalePrice.StringFixed(2)),
				After:       sale,
			})
		})
		if err != nil {
			return Outcome{}, err
		}
	case err != nil:
		return Outcome{}, err
	default:
		if sale.Status == models.SaleStatusCancelled {
			return Outcome{Sale: sale}, fmt.Errorf("%w: satış #%d iptal edilmiş", commission.ErrInvalidTransition, sale.ID)
		}
		if sale.SalespersonID != in.SalespersonID || !sale.SalePrice.Equal(in.SalePrice.Round(2)) || !sale.NetProfit.Equal(in.NetProfit.Round(2)) {
			log.Printf("Uyarı: satış #%d tekrar geldi, farklı değerler yok sayıldı", sale.ID)
		}

		var live models.SaleCommission
		err := db.Where("sale_id = ? AND user_id = ? AND status <> ?", sale.ID, sale.SalespersonID, models.CommissionStatusRejected).
			First(&live).Error
		if err == nil {
			return Outcome{Sale: sale, Commission: &live}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return Outcome{}, err
		}
	}

	c, err := s.commissions.CreateFromSale(ctx, sale, actorID)
	if err != nil {
		if _, _, known := commission.HTTPError(err); !known {
			return Outcome{}, err
		}
		log.Printf("Satış #%d için komisyon oluşturulamadı: %v", sale.ID, err)
		return Outcome{Sale: sale, CommissionErr: err}, nil
	}
	return Outcome{Sale: sale, Commission: &c, Created: true}, nil
}

// Cancel marks the sale cancelled and rejects its pending commissions.
// Calling it again on a cancelled sale only repeats the commission step.
func (s *Service) Cancel(ctx context.Context, saleID uint, actor commission.Actor) (CancelOutcome, error) {
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleManager {
		return CancelOutcome{}, commission.ErrForbidden
	}

	db := s.db.WithContext(ctx)

	var sale models.Sale
	if err := db.First(&sale, saleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CancelOutcome{}, fmt.Errorf("%w: satış #%d", commission.ErrNotFound, saleID)
		}
		return CancelOutcome{}, err
	}

	if sale.Status == models.SaleStatusCompleted {
		now := time.Now()
		err := db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Sale{}).
				Where("id = ? AND status = ?", saleID, models.SaleStatusCompleted).
				Updates(map[string]interface{}{
					"status":       models.SaleStatusCancelled,
					"cancelled_at": now,
					"updated_at":   now,
				})
			if res.Error != nil {
				return fmt.Errorf("satış güncellenemedi: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				// başka bir istek zaten iptal etti
				return nil
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      actor.ID,
				UserName:    audit.UserName(tx, actor.ID),
				EntityType:  audit.EntitySale,
				EntityID:    saleID,
				Action:      models.AuditActionCancel,
				Description: fmt.Sprintf("Satış iptal edildi: #%d", saleID),
				Before:      map[string]interface{}{"status": models.SaleStatusCompleted},
				After:       map[string]interface{}{"status": models.SaleStatusCancelled},
			})
		})
		if err != nil {
			return CancelOutcome{}, err
		}
		if err := db.First(&sale, saleID).Error; err != nil {
			return CancelOutcome{}, err
		}
	}

	rejected, compensate, err := s.commissions.SaleCancelled(ctx, saleID, actor)
	if err != nil {
		return CancelOutcome{Sale: sale, Rejected: rejected, RequiresCompensation: compensate}, err
	}
	if len(compensate) > 0 {
		log.Printf("Uyarı: iptal edilen satış #%d için %d komisyon telafi gerektiriyor", saleID, len(compensate))
	}
	return CancelOutcome{Sale: sale, Rejected: rejected, RequiresCompensation: compensate}, nil
}

func validateCompleted(in Completed) error {
	switch {
	case in.SaleID == 0:
		return fmt.Errorf("%w: sale_id zorunlu", commission.ErrValidation)
	case in.SalespersonID == 0:
		return fmt.Errorf("%w: salesperson_id zorunlu", commission.ErrValidation)
	case !in.SalePrice.IsPositive():
		return fmt.Errorf("%w: sale_price pozitif olmalı", commission.ErrValidation)
	case in.SaleDate.IsZero():
		return fmt.Errorf("%w: sale_date zorunlu", commission.ErrValidation)
	}
	return nil
}
