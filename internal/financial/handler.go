package financial

import (
	"context"
	"fmt"
	"time"

	"dealership-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StatusTotal struct {
	Status models.CommissionStatus `json:"status"`
	Count  int64                   `json:"count"`
	Total  decimal.Decimal         `json:"total"`
}

type SalespersonTotal struct {
	UserID      uint            `json:"user_id"`
	Name        string          `json:"name"`
	Commissions int64           `json:"commissions"`
	Pending     decimal.Decimal `json:"pending"`
	Earned      decimal.Decimal `json:"earned"` // approved + paid
	Paid        decimal.Decimal `json:"paid"`
}

type MonthlyCommissionSummaryResponse struct {
	Year             int                `json:"year"`
	Month            int                `json:"month"`
	ByStatus         []StatusTotal      `json:"by_status"`
	PaidInMonth      decimal.Decimal    `json:"paid_in_month"`
	AdjustmentsTotal decimal.Decimal    `json:"adjustments_total"`
	OutstandingTotal decimal.Decimal    `json:"outstanding_total"` // onaylı, ödenmemiş (tüm aylar)
	OverdueCount     int64              `json:"overdue_count"`
	BySalesperson    []SalespersonTotal `json:"by_salesperson"`
}

// Summarize: ay içinde gerçekleşen satışların komisyonları, ay içinde yapılan
// ödemeler ve düzeltmeler. now vade aşımı için kullanılır.
func Summarize(ctx context.Context, db *gorm.DB, year, month int, now time.Time) (MonthlyCommissionSummaryResponse, error) {
	db = db.WithContext(ctx)

	loc := now.Location()
	firstDay := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	nextMonth := firstDay.AddDate(0, 1, 0)

	resp := MonthlyCommissionSummaryResponse{Year: year, Month: month}

	// ---------------------------
	// 1) Durum bazlı toplamlar
	// ---------------------------

	var statusRows []StatusTotal
	if err := db.Table("sale_commissions AS sc").
		Joins("JOIN sales s ON s.id = sc.sale_id").
		Select("sc.status AS status, COUNT(*) AS count, COALESCE(SUM(sc.final_amount), 0) AS total").
		Where("s.sale_date >= ? AND s.sale_date < ?", firstDay, nextMonth).
		Group("sc.status").
		Order("sc.status").
		Scan(&statusRows).Error; err != nil {
		return resp, fmt.Errorf("durum toplamları hesaplanamadı: %w", err)
	}
	for i := range statusRows {
		statusRows[i].Total = statusRows[i].Total.Round(2)
	}
	resp.ByStatus = statusRows

	// ---------------------------
	// 2) Ay içindeki ödemeler ve düzeltmeler
	// ---------------------------

	var err error
	resp.PaidInMonth, err = sum(db.Model(&models.SaleCommission{}).
		Where("status = ? AND paid_at >= ? AND paid_at < ?", models.CommissionStatusPaid, firstDay, nextMonth), "final_amount")
	if err != nil {
		return resp, fmt.Errorf("ödemeler hesaplanamadı: %w", err)
	}

	resp.AdjustmentsTotal, err = sum(db.Model(&models.CommissionAdjustment{}).
		Where("created_at >= ? AND created_at < ?", firstDay, nextMonth), "delta_amount")
	if err != nil {
		return resp, fmt.Errorf("düzeltmeler hesaplanamadı: %w", err)
	}

	// ---------------------------
	// 3) Ödenmeyi bekleyen onaylı komisyonlar
	// ---------------------------

	resp.OutstandingTotal, err = sum(db.Model(&models.SaleCommission{}).
		Where("status = ?", models.CommissionStatusApproved), "final_amount")
	if err != nil {
		return resp, fmt.Errorf("bekleyen ödemeler hesaplanamadı: %w", err)
	}
	if err := db.Model(&models.SaleCommission{}).
		Where("status = ? AND payment_due_date < ?", models.CommissionStatusApproved, now).
		Count(&resp.OverdueCount).Error; err != nil {
		return resp, fmt.Errorf("vadesi geçenler hesaplanamadı: %w", err)
	}

	// ---------------------------
	// 4) Satış temsilcisi bazlı
	// ---------------------------

	var people []SalespersonTotal
	if err := db.Table("sale_commissions AS sc").
		Joins("JOIN sales s ON s.id = sc.sale_id").
		Joins("JOIN users u ON u.id = sc.user_id").
		Select(`u.id AS user_id, u.name AS name, COUNT(*) AS commissions,
			COALESCE(SUM(CASE WHEN sc.status = ? THEN sc.final_amount ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN sc.status IN (?, ?) THEN sc.final_amount ELSE 0 END), 0) AS earned,
			COALESCE(SUM(CASE WHEN sc.status = ? THEN sc.final_amount ELSE 0 END), 0) AS paid`,
			models.CommissionStatusPending,
			models.CommissionStatusApproved, models.CommissionStatusPaid,
			models.CommissionStatusPaid).
		Where("s.sale_date >= ? AND s.sale_date < ? AND sc.status <> ?", firstDay, nextMonth, models.CommissionStatusRejected).
		Group("u.id, u.name").
		Order("u.name asc").
		Scan(&people).Error; err != nil {
		return resp, fmt.Errorf("satış temsilcisi toplamları hesaplanamadı: %w", err)
	}
	for i := range people {
		people[i].Pending = people[i].Pending.Round(2)
		people[i].Earned = people[i].Earned.Round(2)
		people[i].Paid = people[i].Paid.Round(2)
	}
	resp.BySalesperson = people

	return resp, nil
}

func sum(q *gorm.DB, column string) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	if err := q.Select("COALESCE(SUM(" + column + "), 0) AS total").Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

func yearMonth(c *fiber.Ctx) (int, int, error) {
	yearStr := c.Query("year")
	monthStr := c.Query("month")
	if yearStr == "" || monthStr == "" {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "year ve month zorunlu")
	}

	var year, month int
	if _, err := fmt.Sscan(yearStr, &year); err != nil || year < 2000 {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "year geçersiz")
	}
	if _, err := fmt.Sscan(monthStr, &month); err != nil || month < 1 || month > 12 {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "month geçersiz")
	}
	return year, month, nil
}

// -----------------------------------
// GET /api/financial-summary/monthly?year=2025&month=12
// -----------------------------------
func MonthlyCommissionSummaryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		year, month, err := yearMonth(c)
		if err != nil {
			return err
		}

		resp, err := Summarize(c.UserContext(), db, year, month, time.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Komisyon özeti hesaplanamadı")
		}
		return c.JSON(resp)
	}
}
