// Package goal keeps the salesperson goal read model. Current figures are
// always recomputed from sales and commissions; the tracker never changes
// commission state.
package goal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"dealership-backend/internal/audit"
	"dealership-backend/internal/commission"
	"dealership-backend/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var ErrOverlap = errors.New("bu dönem için kullanıcının zaten bir hedefi var")

const refreshConcurrency = 4

type Tracker struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTracker(db *gorm.DB) *Tracker {
	return &Tracker{db: db, now: time.Now}
}

type NewGoal struct {
	UserID        uint
	PeriodStart   time.Time
	PeriodEnd     time.Time // dahil
	TargetSales   int
	TargetRevenue decimal.Decimal
	TargetProfit  decimal.Decimal
	CreatedBy     uint
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (t *Tracker) Create(ctx context.Context, in NewGoal) (models.SalespersonGoal, error) {
	start, end := day(in.PeriodStart), day(in.PeriodEnd)
	switch {
	case in.UserID == 0:
		return models.SalespersonGoal{}, fmt.Errorf("%w: user_id zorunlu", commission.ErrValidation)
	case end.Before(start):
		return models.SalespersonGoal{}, fmt.Errorf("%w: period_end period_start'tan önce olamaz", commission.ErrValidation)
	case in.TargetSales < 0 || in.TargetRevenue.IsNegative() || in.TargetProfit.IsNegative():
		return models.SalespersonGoal{}, fmt.Errorf("%w: hedefler negatif olamaz", commission.ErrValidation)
	}

	g := models.SalespersonGoal{
		UserID:        in.UserID,
		PeriodStart:   start,
		PeriodEnd:     end,
		TargetSales:   in.TargetSales,
		TargetRevenue: in.TargetRevenue.Round(2),
		TargetProfit:  in.TargetProfit.Round(2),
	}

	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, in.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: kullanıcı #%d bulunamadı", commission.ErrValidation, in.UserID)
			}
			return err
		}

		var overlapping int64
		if err := tx.Model(&models.SalespersonGoal{}).
			Where("user_id = ? AND period_start <= ? AND period_end >= ?", in.UserID, end, start).
			Count(&overlapping).Error; err != nil {
			return err
		}
		if overlapping > 0 {
			return fmt.Errorf("%w: %w", commission.ErrValidation, ErrOverlap)
		}

		if err := tx.Create(&g).Error; err != nil {
			return fmt.Errorf("hedef kaydedilemedi: %w", err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      in.CreatedBy,
			UserName:    audit.UserName(tx, in.CreatedBy),
			EntityType:  audit.EntitySalespersonGoal,
			EntityID:    g.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("%s için hedef: %s - %s", user.Name, start.Format("2006-01-02"), end.Format("2006-01-02")),
			After: map[string]interface{}{
				"user_id":        g.UserID,
				"period_start":   start.Format("2006-01-02"),
				"period_end":     end.Format("2006-01-02"),
				"target_sales":   g.TargetSales,
				"target_revenue": g.TargetRevenue.StringFixed(2),
				"target_profit":  g.TargetProfit.StringFixed(2),
			},
		})
	})
	if err != nil {
		return models.SalespersonGoal{}, err
	}

	return t.RefreshGoal(ctx, g.ID)
}

// Refresh recomputes the user's goal whose period covers at.
func (t *Tracker) Refresh(ctx context.Context, userID uint, at time.Time) (models.SalespersonGoal, error) {
	d := day(at)

	var g models.SalespersonGoal
	err := t.db.WithContext(ctx).
		Where("user_id = ? AND period_start <= ? AND period_end >= ?", userID, d, d).
		First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return g, fmt.Errorf("%w: kullanıcı #%d için %s tarihini kapsayan hedef yok", commission.ErrNotFound, userID, d.Format("2006-01-02"))
		}
		return g, err
	}
	return t.RefreshGoal(ctx, g.ID)
}

type saleTotals struct {
	Count   int64
	Revenue decimal.Decimal
	Profit  decimal.Decimal
}

type commissionTotals struct {
	Earned decimal.Decimal
	Paid   decimal.Decimal
}

// RefreshGoal is idempotent: running it twice without new sales writes the
// same figures.
func (t *Tracker) RefreshGoal(ctx context.Context, goalID uint) (models.SalespersonGoal, error) {
	db := t.db.WithContext(ctx)

	var g models.SalespersonGoal
	if err := db.First(&g, goalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return g, fmt.Errorf("%w: hedef #%d", commission.ErrNotFound, goalID)
		}
		return g, err
	}

	from := g.PeriodStart
	until := g.PeriodEnd.AddDate(0, 0, 1)

	var st saleTotals
	if err := db.Model(&models.Sale{}).
		Select("COUNT(*) AS count, COALESCE(SUM(sale_price), 0) AS revenue, COALESCE(SUM(net_profit), 0) AS profit").
		Where("salesperson_id = ? AND status = ?", g.UserID, models.SaleStatusCompleted).
		Where("sale_date >= ? AND sale_date < ?", from, until).
		Scan(&st).Error; err != nil {
		return g, fmt.Errorf("satış toplamları hesaplanamadı: %w", err)
	}

	// ödenmiş komisyon satış sonradan iptal edilse de kazanılmış sayılır
	var ct commissionTotals
	if err := db.Table("sale_commissions AS sc").
		Joins("JOIN sales s ON s.id = sc.sale_id").
		Select(`
			COALESCE(SUM(CASE WHEN sc.status IN (?, ?) THEN sc.final_amount ELSE 0 END), 0) AS earned,
			COALESCE(SUM(CASE WHEN sc.status = ? THEN sc.final_amount ELSE 0 END), 0) AS paid`,
			models.CommissionStatusApproved, models.CommissionStatusPaid, models.CommissionStatusPaid).
		Where("sc.user_id = ?", g.UserID).
		Where("s.sale_date >= ? AND s.sale_date < ?", from, until).
		Scan(&ct).Error; err != nil {
		return g, fmt.Errorf("komisyon toplamları hesaplanamadı: %w", err)
	}

	now := t.now()
	updates := map[string]interface{}{
		"current_sales":     st.Count,
		"current_revenue":   st.Revenue.Round(2),
		"current_profit":    st.Profit.Round(2),
		"commission_earned": ct.Earned.Round(2),
		"commission_paid":   ct.Paid.Round(2),
		"refreshed_at":      now,
		"updated_at":        now,
	}
	if err := db.Model(&models.SalespersonGoal{}).Where("id = ?", g.ID).Updates(updates).Error; err != nil {
		return g, fmt.Errorf("hedef güncellenemedi: %w", err)
	}

	if err := db.First(&g, goalID).Error; err != nil {
		return g, err
	}
	return g, nil
}

// RefreshAll recomputes every goal whose period covers at. Failures are
// logged and joined; one failing goal does not stop the others.
func (t *Tracker) RefreshAll(ctx context.Context, at time.Time) (int, error) {
	d := day(at)

	var ids []uint
	if err := t.db.WithContext(ctx).Model(&models.SalespersonGoal{}).
		Where("period_start <= ? AND period_end >= ?", d, d).
		Order("id asc").
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("hedefler listelenemedi: %w", err)
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(refreshConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if _, err := t.RefreshGoal(ctx, id); err != nil {
				log.Printf("Hedef #%d yenilenemedi: %v", id, err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("hedef #%d: %w", id, err))
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	return len(ids) - len(errs), errors.Join(errs...)
}

type Progress struct {
	Goal       models.SalespersonGoal
	SalesPct   *decimal.Decimal // hedef 0 ise nil
	RevenuePct *decimal.Decimal
	ProfitPct  *decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

func pct(current, target decimal.Decimal) *decimal.Decimal {
	if !target.IsPositive() {
		return nil
	}
	p := current.Div(target).Mul(hundred).Round(2)
	return &p
}

func ProgressOf(g models.SalespersonGoal) Progress {
	return Progress{
		Goal:       g,
		SalesPct:   pct(decimal.NewFromInt(int64(g.CurrentSales)), decimal.NewFromInt(int64(g.TargetSales))),
		RevenuePct: pct(g.CurrentRevenue, g.TargetRevenue),
		ProfitPct:  pct(g.CurrentProfit, g.TargetProfit),
	}
}
