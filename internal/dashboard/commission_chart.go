package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"dealership-backend/internal/auth"
	"dealership-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CommissionChartPoint struct {
	Label    string          `json:"label"` // tarih / hafta başlangıcı / ay başlangıcı
	Approved decimal.Decimal `json:"approved"`
	Paid     decimal.Decimal `json:"paid"`
}

type CommissionChartGrandTotals struct {
	Approved decimal.Decimal `json:"approved"`
	Paid     decimal.Decimal `json:"paid"`
}

type CommissionChartResponse struct {
	UserID      *uint                      `json:"user_id,omitempty"`
	Period      string                     `json:"period"` // daily | weekly | monthly
	From        string                     `json:"from"`
	To          string                     `json:"to"`
	Points      []CommissionChartPoint     `json:"points"`
	GrandTotals CommissionChartGrandTotals `json:"grand_totals"`
}

// bucketStart: haftalar pazartesi başlar
func bucketStart(t time.Time, period string) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	switch period {
	case "weekly":
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case "monthly":
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	}
	return day
}

// Range: son count kovanın başlangıcı ve bitişi (bitiş hariç).
func Range(period string, count int, now time.Time) (time.Time, time.Time) {
	end := bucketStart(now, period)
	switch period {
	case "weekly":
		return end.AddDate(0, 0, -7*(count-1)), end.AddDate(0, 0, 7)
	case "monthly":
		return end.AddDate(0, -(count - 1), 0), end.AddDate(0, 1, 0)
	}
	return end.AddDate(0, 0, -(count - 1)), end.AddDate(0, 0, 1)
}

// Build: onay tarihine göre onaylanan ve ödeme tarihine göre ödenen tutarlar.
// Kovalama Go tarafında yapılır, sorgular postgres ve sqlite'ta aynıdır.
func Build(ctx context.Context, db *gorm.DB, period string, count int, userID *uint, now time.Time) (CommissionChartResponse, error) {
	start, end := Range(period, count, now)
	db = db.WithContext(ctx)

	load := func(column string) ([]models.SaleCommission, error) {
		var rows []models.SaleCommission
		q := db.Select("id", column, "final_amount").
			Where(column+" >= ? AND "+column+" < ?", start, end).
			Where("status <> ?", models.CommissionStatusRejected)
		if userID != nil {
			q = q.Where("user_id = ?", *userID)
		}
		if err := q.Find(&rows).Error; err != nil {
			return nil, err
		}
		return rows, nil
	}

	approvedRows, err := load("approved_at")
	if err != nil {
		return CommissionChartResponse{}, fmt.Errorf("onaylar toplanamadı: %w", err)
	}
	paidRows, err := load("paid_at")
	if err != nil {
		return CommissionChartResponse{}, fmt.Errorf("ödemeler toplanamadı: %w", err)
	}

	// bucket bazlı toplama
	buckets := make(map[time.Time]*CommissionChartPoint)
	point := func(at time.Time) *CommissionChartPoint {
		b := bucketStart(at.In(now.Location()), period)
		p, ok := buckets[b]
		if !ok {
			p = &CommissionChartPoint{Label: b.Format("2006-01-02")}
			buckets[b] = p
		}
		return p
	}

	grand := CommissionChartGrandTotals{}
	for _, r := range approvedRows {
		p := point(*r.ApprovedAt)
		p.Approved = p.Approved.Add(r.FinalAmount)
		grand.Approved = grand.Approved.Add(r.FinalAmount)
	}
	for _, r := range paidRows {
		p := point(*r.PaidAt)
		p.Paid = p.Paid.Add(r.FinalAmount)
		grand.Paid = grand.Paid.Add(r.FinalAmount)
	}

	keys := make([]time.Time, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	points := make([]CommissionChartPoint, 0, len(keys))
	for _, k := range keys {
		p := buckets[k]
		p.Approved = p.Approved.Round(2)
		p.Paid = p.Paid.Round(2)
		points = append(points, *p)
	}
	grand.Approved = grand.Approved.Round(2)
	grand.Paid = grand.Paid.Round(2)

	return CommissionChartResponse{
		UserID:      userID,
		Period:      period,
		From:        start.Format("2006-01-02"),
		To:          end.AddDate(0, 0, -1).Format("2006-01-02"),
		Points:      points,
		GrandTotals: grand,
	}, nil
}

// GET /api/dashboard/commission-chart?period=daily&count=7[&user_id=3]
func CommissionChartHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		currentID, role, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		period := c.Query("period", "daily") // daily | weekly | monthly
		countStr := c.Query("count", "")

		var count int
		if countStr == "" {
			switch period {
			case "weekly":
				count = 8
			case "monthly":
				count = 12
			default:
				period = "daily"
				count = 7
			}
		} else {
			if _, err := fmt.Sscan(countStr, &count); err != nil || count <= 0 || count > 366 {
				return fiber.NewError(fiber.StatusBadRequest, "count geçersiz")
			}
			if period != "weekly" && period != "monthly" {
				period = "daily"
			}
		}

		var userID *uint
		if role == models.RoleSalesperson {
			userID = &currentID
		} else if s := c.Query("user_id"); s != "" {
			var id uint
			if _, err := fmt.Sscan(s, &id); err != nil || id == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "user_id geçersiz")
			}
			userID = &id
		}

		resp, err := Build(c.UserContext(), db, period, count, userID, time.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Veri toplanırken hata oluştu")
		}
		return c.JSON(resp)
	}
}
