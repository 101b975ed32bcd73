package goal

import (
	"fmt"
	"time"

	"dealership-backend/internal/auth"
	"dealership-backend/internal/commission"
	"dealership-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var validate = validator.New()

type CreateGoalRequest struct {
	UserID        uint            `json:"user_id" validate:"required"`
	PeriodStart   string          `json:"period_start" validate:"required,datetime=2006-01-02"`
	PeriodEnd     string          `json:"period_end" validate:"required,datetime=2006-01-02"`
	TargetSales   int             `json:"target_sales" validate:"gte=0"`
	TargetRevenue decimal.Decimal `json:"target_revenue"`
	TargetProfit  decimal.Decimal `json:"target_profit"`
}

type GoalResponse struct {
	ID               uint    `json:"id"`
	UserID           uint    `json:"user_id"`
	PeriodStart      string  `json:"period_start"`
	PeriodEnd        string  `json:"period_end"`
	TargetSales      int     `json:"target_sales"`
	TargetRevenue    string  `json:"target_revenue"`
	TargetProfit     string  `json:"target_profit"`
	CurrentSales     int     `json:"current_sales"`
	CurrentRevenue   string  `json:"current_revenue"`
	CurrentProfit    string  `json:"current_profit"`
	CommissionEarned string  `json:"commission_earned"`
	CommissionPaid   string  `json:"commission_paid"`
	SalesProgress    *string `json:"sales_progress_pct"`
	RevenueProgress  *string `json:"revenue_progress_pct"`
	ProfitProgress   *string `json:"profit_progress_pct"`
	RefreshedAt      *string `json:"refreshed_at"`
}

func pctString(p *decimal.Decimal) *string {
	if p == nil {
		return nil
	}
	s := p.StringFixed(2)
	return &s
}

func ToResponse(g models.SalespersonGoal) GoalResponse {
	p := ProgressOf(g)
	resp := GoalResponse{
		ID:               g.ID,
		UserID:           g.UserID,
		PeriodStart:      g.PeriodStart.Format("2006-01-02"),
		PeriodEnd:        g.PeriodEnd.Format("2006-01-02"),
		TargetSales:      g.TargetSales,
		TargetRevenue:    g.TargetRevenue.StringFixed(2),
		TargetProfit:     g.TargetProfit.StringFixed(2),
		CurrentSales:     g.CurrentSales,
		CurrentRevenue:   g.CurrentRevenue.StringFixed(2),
		CurrentProfit:    g.CurrentProfit.StringFixed(2),
		CommissionEarned: g.CommissionEarned.StringFixed(2),
		CommissionPaid:   g.CommissionPaid.StringFixed(2),
		SalesProgress:    pctString(p.SalesPct),
		RevenueProgress:  pctString(p.RevenuePct),
		ProfitProgress:   pctString(p.ProfitPct),
	}
	if g.RefreshedAt != nil {
		s := g.RefreshedAt.Format(time.RFC3339)
		resp.RefreshedAt = &s
	}
	return resp
}

// POST /api/goals
func CreateHandler(t *Tracker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actorID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var body CreateGoalRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if err := validate.Struct(body); err != nil {
			return fmt.Errorf("%w: %v", commission.ErrValidation, err)
		}

		start, _ := time.ParseInLocation("2006-01-02", body.PeriodStart, time.Local)
		end, _ := time.ParseInLocation("2006-01-02", body.PeriodEnd, time.Local)

		g, err := t.Create(c.UserContext(), NewGoal{
			UserID:        body.UserID,
			PeriodStart:   start,
			PeriodEnd:     end,
			TargetSales:   body.TargetSales,
			TargetRevenue: body.TargetRevenue,
			TargetProfit:  body.TargetProfit,
			CreatedBy:     actorID,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ToResponse(g))
	}
}

// GET /api/goals?user_id=3
func ListHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, role, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		dbq := db.WithContext(c.UserContext()).Model(&models.SalespersonGoal{})
		if role == models.RoleSalesperson {
			dbq = dbq.Where("user_id = ?", userID)
		} else if s := c.Query("user_id"); s != "" {
			var filter uint
			if _, err := fmt.Sscan(s, &filter); err != nil || filter == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "user_id geçersiz")
			}
			dbq = dbq.Where("user_id = ?", filter)
		}

		var goals []models.SalespersonGoal
		if err := dbq.Order("period_start desc, id desc").Find(&goals).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Hedefler listelenemedi")
		}

		resp := make([]GoalResponse, 0, len(goals))
		for _, g := range goals {
			resp = append(resp, ToResponse(g))
		}
		return c.JSON(resp)
	}
}

// GET /api/goals/:id
// Okunurken yeniden hesaplanır
func GetHandler(t *Tracker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, role, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz id")
		}

		g, err := t.RefreshGoal(c.UserContext(), uint(id))
		if err != nil {
			return err
		}
		if role == models.RoleSalesperson && g.UserID != userID {
			return commission.ErrForbidden
		}
		return c.JSON(ToResponse(g))
	}
}

// POST /api/goals/refresh
// İçinde bulunulan dönemin tüm hedefleri
func RefreshAllHandler(t *Tracker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := t.RefreshAll(c.UserContext(), time.Now())
		resp := fiber.Map{"refreshed": n}
		if err != nil {
			resp["error"] = err.Error()
		}
		return c.JSON(resp)
	}
}

func Routes(r fiber.Router, db *gorm.DB, t *Tracker) {
	managers := auth.RequireRole(models.RoleAdmin, models.RoleManager)

	r.Get("/goals", ListHandler(db))
	r.Post("/goals", managers, CreateHandler(t))
	r.Post("/goals/refresh", managers, RefreshAllHandler(t))
	r.Get("/goals/:id", GetHandler(t))
}
