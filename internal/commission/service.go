package commission

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"dealership-backend/internal/audit"
	"dealership-backend/internal/events"
	"dealership-backend/internal/models"
	"dealership-backend/internal/rules"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RuleSource: aktif komisyon kuralları (rules.Store).
type RuleSource interface {
	ActiveRules(ctx context.Context) ([]models.CommissionRule, error)
}

// Actor: işlemi tetikleyen kullanıcı.
type Actor struct {
	ID   uint
	Role models.UserRole
}

func (a Actor) is(roles ...models.UserRole) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

type Service struct {
	db              *gorm.DB
	rules           RuleSource
	publisher       events.Publisher
	paymentTermDays int

	now    func() time.Time
	onLoad func(models.SaleCommission) // testlerde yarış senaryoları için
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithPaymentTermDays(days int) Option {
	return func(s *Service) { s.paymentTermDays = days }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db *gorm.DB, rs RuleSource, opts ...Option) *Service {
	s := &Service{
		db:              db,
		rules:           rs,
		publisher:       events.Nop{},
		paymentTermDays: 30,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// -------------------------
// Oluşturma
// -------------------------

// CreateFromSale resolves the rule for a completed sale and stores a pending
// commission. A missing rule returns rules.ErrNoApplicableRule and stores nothing;
// the sale itself is never affected.
func (s *Service) CreateFromSale(ctx context.Context, sale models.Sale, actorID uint) (models.SaleCommission, error) {
	if sale.Status != models.SaleStatusCompleted {
		return models.SaleCommission{}, fmt.Errorf("%w: satış #%d tamamlanmamış (%s)", ErrValidation, sale.ID, sale.Status)
	}

	active, err := s.rules.ActiveRules(ctx)
	if err != nil {
		return models.SaleCommission{}, err
	}

	rule, amount, err := rules.Resolve(active, rules.FactsFromSale(sale))
	if err != nil {
		if errors.Is(err, rules.ErrNoApplicableRule) {
			e := events.New(events.CommissionGap)
			e.SaleID = sale.ID
			e.UserID = sale.SalespersonID
			e.ActorID = actorID
			s.publish(ctx, e)
		}
		if errors.Is(err, rules.ErrNegativeAmount) {
			return models.SaleCommission{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return models.SaleCommission{}, err
	}

	var live int64
	if err := s.db.WithContext(ctx).Model(&models.SaleCommission{}).
		Where("sale_id = ? AND user_id = ? AND status <> ?", sale.ID, sale.SalespersonID, models.CommissionStatusRejected).
		Count(&live).Error; err != nil {
		return models.SaleCommission{}, err
	}
	if live > 0 {
		return models.SaleCommission{}, fmt.Errorf("%w: satış #%d", ErrDuplicate, sale.ID)
	}

	due := sale.SaleDate.AddDate(0, 0, s.paymentTermDays)
	c := models.SaleCommission{
		SaleID:           sale.ID,
		UserID:           sale.SalespersonID,
		CommissionRuleID: rule.ID,
		CalculatedAmount: amount,
		ManualAdjustment: decimal.Zero,
		FinalAmount:      amount,
		Status:           models.CommissionStatusPending,
		PaymentDueDate:   &due,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&c).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: satış #%d", ErrDuplicate, sale.ID)
			}
			return fmt.Errorf("komisyon kaydedilemedi: %w", err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actorID,
			UserName:    audit.UserName(tx, actorID),
			EntityType:  audit.EntitySaleCommission,
			EntityID:    c.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Komisyon oluşturuldu: satış #%d, kural %s@%d, %s", sale.ID, rule.Code, rule.Version, amount.StringFixed(2)),
			After:       snapshot(c),
		})
	})
	if err != nil {
		return models.SaleCommission{}, err
	}

	s.publishCommission(ctx, events.CommissionCreated, c, actorID)
	return c, nil
}

// -------------------------
// Durum geçişleri
// -------------------------

func (s *Service) Approve(ctx context.Context, id uint, actor Actor) (models.SaleCommission, error) {
	if !actor.is(models.RoleAdmin, models.RoleManager) {
		return models.SaleCommission{}, ErrForbidden
	}

	c, err := s.load(ctx, id)
	if err != nil {
		return c, err
	}
	if c.Status != models.CommissionStatusPending {
		return c, fmt.Errorf("%w: %s → approved", ErrInvalidTransition, c.Status)
	}
	if c.UserID == actor.ID {
		return c, fmt.Errorf("%w: kendi komisyonunuzu onaylayamazsınız", ErrForbidden)
	}

	now := s.now()
	err = s.transition(ctx, c, models.CommissionStatusPending, map[string]interface{}{
		"status":      models.CommissionStatusApproved,
		"approved_by": actor.ID,
		"approved_at": now,
		"updated_at":  now,
	}, actor, models.AuditActionApprove, fmt.Sprintf("Komisyon onaylandı: %s", c.FinalAmount.StringFixed(2)))
	if err != nil {
		return c, err
	}

	return s.reloadAndPublish(ctx, id, events.CommissionApproved, actor.ID)
}

func (s *Service) Reject(ctx context.Context, id uint, reason string, actor Actor) (models.SaleCommission, error) {
	if !actor.is(models.RoleAdmin, models.RoleManager) {
		return models.SaleCommission{}, ErrForbidden
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.SaleCommission{}, fmt.Errorf("%w: ret sebebi zorunlu", ErrValidation)
	}

	c, err := s.load(ctx, id)
	if err != nil {
		return c, err
	}
	if c.Status != models.CommissionStatusPending {
		return c, fmt.Errorf("%w: %s → rejected", ErrInvalidTransition, c.Status)
	}

	return s.reject(ctx, c, reason, actor)
}

func (s *Service) reject(ctx context.Context, c models.SaleCommission, reason string, actor Actor) (models.SaleCommission, error) {
	now := s.now()
	err := s.transition(ctx, c, models.CommissionStatusPending, map[string]interface{}{
		"status":           models.CommissionStatusRejected,
		"rejection_reason": reason,
		"rejected_by":      actor.ID,
		"rejected_at":      now,
		"updated_at":       now,
	}, actor, models.AuditActionReject, fmt.Sprintf("Komisyon reddedildi: %s", reason))
	if err != nil {
		return c, err
	}

	return s.reloadAndPublish(ctx, c.ID, events.CommissionRejected, actor.ID)
}

// Pay moves an approved commission to paid. The update is guarded by the
// approved status, so at most one call can ever succeed; a repeat call on a
// paid commission returns ErrAlreadyPaid together with the stored record.
func (s *Service) Pay(ctx context.Context, id uint, actor Actor) (models.SaleCommission, error) {
	if !actor.is(models.RoleAdmin, models.RoleFinance) {
		return models.SaleCommission{}, ErrForbidden
	}

	c, err := s.load(ctx, id)
	if err != nil {
		return c, err
	}
	if c.Status == models.CommissionStatusPaid {
		return c, ErrAlreadyPaid
	}
	if c.Status != models.CommissionStatusApproved || c.ApprovedAt == nil {
		return c, fmt.Errorf("%w: %s → paid", ErrInvalidTransition, c.Status)
	}

	paidAt := s.now()
	if !paidAt.After(*c.ApprovedAt) {
		paidAt = c.ApprovedAt.Add(time.Microsecond)
	}

	err = s.transition(ctx, c, models.CommissionStatusApproved, map[string]interface{}{
		"status":     models.CommissionStatusPaid,
		"paid":       true,
		"paid_by":    actor.ID,
		"paid_at":    paidAt,
		"updated_at": paidAt,
	}, actor, models.AuditActionPay, fmt.Sprintf("Komisyon ödendi: %s", c.FinalAmount.StringFixed(2)))
	if err != nil {
		return c, err
	}

	return s.reloadAndPublish(ctx, id, events.CommissionPaid, actor.ID)
}

// ApproveAndPay runs two separate transitions so the audit trail records both
// an approval and a payment. If Pay fails the commission stays approved.
func (s *Service) ApproveAndPay(ctx context.Context, id uint, actor Actor) (models.SaleCommission, error) {
	c, err := s.Approve(ctx, id, actor)
	if err != nil {
		return c, err
	}
	paid, err := s.Pay(ctx, id, actor)
	if err != nil {
		return c, fmt.Errorf("onaylandı ancak ödenemedi: %w", err)
	}
	return paid, nil
}

// transition: UPDATE ... WHERE id = ? AND status = ? ; etkilenen satır yoksa
// yarışı başka bir istek kazanmıştır.
func (s *Service) transition(ctx context.Context, c models.SaleCommission, from models.CommissionStatus, updates map[string]interface{}, actor Actor, action models.AuditAction, description string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.SaleCommission{}).Where("id = ? AND status = ?", c.ID, from)
		if from == models.CommissionStatusApproved {
			q = q.Where("approved_at IS NOT NULL")
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("komisyon güncellenemedi: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: #%d artık %s değil", ErrConcurrentModification, c.ID, from)
		}

		after := snapshot(c)
		for k, v := range updates {
			after[k] = v
		}
		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    audit.UserName(tx, actor.ID),
			EntityType:  audit.EntitySaleCommission,
			EntityID:    c.ID,
			Action:      action,
			Description: description,
			Before:      snapshot(c),
			After:       after,
		})
	})
}

// -------------------------
// Düzeltme defteri
// -------------------------

// Adjust appends a ledger event and moves manual_adjustment/final_amount by
// delta in the same transaction. Increments commute, so concurrent
// adjustments cannot lose each other.
func (s *Service) Adjust(ctx context.Context, id uint, delta decimal.Decimal, justification string, actor Actor) (models.SaleCommission, error) {
	if !actor.is(models.RoleAdmin, models.RoleManager) {
		return models.SaleCommission{}, ErrForbidden
	}
	justification = strings.TrimSpace(justification)
	if justification == "" {
		return models.SaleCommission{}, fmt.Errorf("%w: düzeltme gerekçesi zorunlu", ErrValidation)
	}
	delta = delta.Round(2)
	if delta.IsZero() {
		return models.SaleCommission{}, fmt.Errorf("%w: düzeltme tutarı sıfır olamaz", ErrValidation)
	}

	c, err := s.load(ctx, id)
	if err != nil {
		return c, err
	}
	if c.Status != models.CommissionStatusPending {
		return c, fmt.Errorf("%w: %s durumundaki komisyon düzeltilemez", ErrInvalidTransition, c.Status)
	}
	if c.UserID == actor.ID {
		return c, fmt.Errorf("%w: kendi komisyonunuzu düzeltemezsiniz", ErrForbidden)
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.SaleCommission{}).
			Where("id = ? AND status = ?", id, models.CommissionStatusPending).
			Where("ROUND(calculated_amount + manual_adjustment + ?, 2) >= 0", delta).
			Updates(map[string]interface{}{
				"manual_adjustment": gorm.Expr("ROUND(manual_adjustment + ?, 2)", delta),
				"final_amount":      gorm.Expr("ROUND(calculated_amount + manual_adjustment + ?, 2)", delta),
				"updated_at":        now,
			})
		if res.Error != nil {
			return fmt.Errorf("komisyon güncellenemedi: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var cur models.SaleCommission
			if err := tx.First(&cur, id).Error; err != nil {
				return err
			}
			if cur.Status != models.CommissionStatusPending {
				return fmt.Errorf("%w: #%d artık pending değil", ErrConcurrentModification, id)
			}
			return fmt.Errorf("%w: nihai tutar negatif olamaz (%s %s)", ErrValidation, cur.FinalAmount.StringFixed(2), delta.StringFixed(2))
		}

		event := models.CommissionAdjustment{
			CommissionID:  id,
			DeltaAmount:   delta,
			Justification: justification,
			ActorID:       actor.ID,
			CreatedAt:     now,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("düzeltme kaydedilemedi: %w", err)
		}

		return audit.WriteLog(tx, audit.LogOptions{
			UserID:      actor.ID,
			UserName:    audit.UserName(tx, actor.ID),
			EntityType:  audit.EntitySaleCommission,
			EntityID:    id,
			Action:      models.AuditActionAdjust,
			Description: fmt.Sprintf("Komisyon düzeltildi: %s (%s)", delta.StringFixed(2), justification),
			Before:      snapshot(c),
			After: map[string]interface{}{
				"adjustment_id": event.ID,
				"delta_amount":  delta.StringFixed(2),
				"justification": justification,
			},
		})
	})
	if err != nil {
		return c, err
	}

	return s.reloadAndPublish(ctx, id, events.CommissionAdjusted, actor.ID)
}

// -------------------------
// Yardımcılar
// -------------------------

func (s *Service) load(ctx context.Context, id uint) (models.SaleCommission, error) {
	var c models.SaleCommission
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c, fmt.Errorf("%w: #%d", ErrNotFound, id)
		}
		return c, err
	}
	if s.onLoad != nil {
		s.onLoad(c)
	}
	return c, nil
}

func (s *Service) reloadAndPublish(ctx context.Context, id uint, t events.Type, actorID uint) (models.SaleCommission, error) {
	var c models.SaleCommission
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return c, err
	}
	s.publishCommission(ctx, t, c, actorID)
	return c, nil
}

func (s *Service) publishCommission(ctx context.Context, t events.Type, c models.SaleCommission, actorID uint) {
	e := events.New(t)
	e.CommissionID = c.ID
	e.SaleID = c.SaleID
	e.UserID = c.UserID
	e.ActorID = actorID
	e.Status = string(c.Status)
	e.FinalAmount = c.FinalAmount.StringFixed(2)
	s.publish(ctx, e)
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		// olay kritik değil, durum zaten commit edildi
		log.Printf("Komisyon olayı yayınlanamadı: %v", err)
	}
}

func snapshot(c models.SaleCommission) map[string]interface{} {
	return map[string]interface{}{
		"id":                c.ID,
		"sale_id":           c.SaleID,
		"user_id":           c.UserID,
		"status":            c.Status,
		"calculated_amount": c.CalculatedAmount.StringFixed(2),
		"manual_adjustment": c.ManualAdjustment.StringFixed(2),
		"final_amount":      c.FinalAmount.StringFixed(2),
	}
}
