package commission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dealership-backend/internal/audit"
	"dealership-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Filter struct {
	Status *models.CommissionStatus
	UserID *uint
	SaleID *uint
	From   *time.Time // created_at >= From
	To     *time.Time // created_at < To
	Limit  int
	Offset int
}

func (s *Service) List(ctx context.Context, f Filter) ([]models.SaleCommission, error) {
	dbq := s.db.WithContext(ctx).Model(&models.SaleCommission{})

	if f.Status != nil {
		dbq = dbq.Where("status = ?", *f.Status)
	}
	if f.UserID != nil {
		dbq = dbq.Where("user_id = ?", *f.UserID)
	}
	if f.SaleID != nil {
		dbq = dbq.Where("sale_id = ?", *f.SaleID)
	}
	if f.From != nil {
		dbq = dbq.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		dbq = dbq.Where("created_at < ?", *f.To)
	}
	if f.Limit > 0 {
		dbq = dbq.Limit(f.Limit)
	}
	if f.Offset > 0 {
		dbq = dbq.Offset(f.Offset)
	}

	var rows []models.SaleCommission
	if err := dbq.Order("created_at desc, id desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("komisyonlar listelenemedi: %w", err)
	}
	return rows, nil
}

type Detail struct {
	Commission  models.SaleCommission
	Sale        models.Sale
	Rule        models.CommissionRule
	Adjustments []models.CommissionAdjustment
	History     []models.AuditLog
}

// LedgerTotal: düzeltme olaylarının toplamı, manual_adjustment ile eşit olmalı.
func (d Detail) LedgerTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range d.Adjustments {
		total = total.Add(a.DeltaAmount)
	}
	return total
}

func (s *Service) Get(ctx context.Context, id uint) (Detail, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return Detail{}, err
	}

	db := s.db.WithContext(ctx)
	d := Detail{Commission: c}

	if err := db.First(&d.Sale, c.SaleID).Error; err != nil {
		return Detail{}, fmt.Errorf("satış yüklenemedi: %w", err)
	}
	if err := db.First(&d.Rule, c.CommissionRuleID).Error; err != nil {
		return Detail{}, fmt.Errorf("kural yüklenemedi: %w", err)
	}
	if err := db.Where("commission_id = ?", id).Order("created_at asc, id asc").Find(&d.Adjustments).Error; err != nil {
		return Detail{}, fmt.Errorf("düzeltmeler yüklenemedi: %w", err)
	}
	d.History, err = audit.List(db, audit.Filter{EntityType: audit.EntitySaleCommission, EntityID: id})
	if err != nil {
		return Detail{}, err
	}
	return d, nil
}

// Gaps: reddedilmemiş komisyonu olmayan tamamlanmış satışlar
// (kural bulunamadı ya da komisyon reddedildi ve yeniden oluşturulmadı).
func (s *Service) Gaps(ctx context.Context) ([]models.Sale, error) {
	var sales []models.Sale
	err := s.db.WithContext(ctx).
		Where("status = ?", models.SaleStatusCompleted).
		Where(`NOT EXISTS (
			SELECT 1 FROM sale_commissions sc
			WHERE sc.sale_id = sales.id
			AND sc.user_id = sales.salesperson_id
			AND sc.status <> ?
		)`, models.CommissionStatusRejected).
		Order("sale_date asc, id asc").
		Find(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("eksik komisyonlar listelenemedi: %w", err)
	}
	return sales, nil
}

// Recreate: canlı komisyonu olmayan bir satış için kural çözümlemesini yeniden çalıştırır.
func (s *Service) Recreate(ctx context.Context, saleID uint, actor Actor) (models.SaleCommission, error) {
	if !actor.is(models.RoleAdmin, models.RoleManager) {
		return models.SaleCommission{}, ErrForbidden
	}

	var sale models.Sale
	if err := s.db.WithContext(ctx).First(&sale, saleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.SaleCommission{}, fmt.Errorf("%w: satış #%d", ErrNotFound, saleID)
		}
		return models.SaleCommission{}, err
	}
	return s.CreateFromSale(ctx, sale, actor.ID)
}
