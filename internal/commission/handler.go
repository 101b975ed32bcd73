package commission

import (
	"errors"
	"fmt"
	"time"

	"dealership-backend/internal/audit"
	"dealership-backend/internal/auth"
	"dealership-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

type CommissionResponse struct {
	ID               uint    `json:"id"`
	SaleID           uint    `json:"sale_id"`
	UserID           uint    `json:"user_id"`
	CommissionRuleID uint    `json:"commission_rule_id"`
	CalculatedAmount string  `json:"calculated_amount"`
	ManualAdjustment string  `json:"manual_adjustment"`
	FinalAmount      string  `json:"final_amount"`
	Status           string  `json:"status"`
	Paid             bool    `json:"paid"`
	RejectionReason  string  `json:"rejection_reason,omitempty"`
	PaymentDueDate   *string `json:"payment_due_date,omitempty"`
	ApprovedBy       *uint   `json:"approved_by,omitempty"`
	ApprovedAt       *string `json:"approved_at,omitempty"`
	PaidBy           *uint   `json:"paid_by,omitempty"`
	PaidAt           *string `json:"paid_at,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

type AdjustmentResponse struct {
	ID            uint   `json:"id"`
	DeltaAmount   string `json:"delta_amount"`
	Justification string `json:"justification"`
	ActorID       uint   `json:"actor_id"`
	CreatedAt     string `json:"created_at"`
}

type CommissionDetailResponse struct {
	Commission  CommissionResponse       `json:"commission"`
	Sale        SaleResponse             `json:"sale"`
	RuleCode    string                   `json:"rule_code"`
	RuleVersion int                      `json:"rule_version"`
	Adjustments []AdjustmentResponse     `json:"adjustments"`
	LedgerTotal string                   `json:"ledger_total"`
	History     []audit.AuditLogResponse `json:"history"`
}

type SaleResponse struct {
	ID              uint   `json:"id"`
	SalespersonID   uint   `json:"salesperson_id"`
	SalePrice       string `json:"sale_price"`
	NetProfit       string `json:"net_profit"`
	VehicleCategory string `json:"vehicle_category"`
	SaleDate        string `json:"sale_date"`
	Status          string `json:"status"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// final_amount alanı yok; istemci nihai tutarı yazamaz.
type AdjustRequest struct {
	DeltaAmount   decimal.Decimal `json:"delta_amount"`
	Justification string          `json:"justification" validate:"required,max=500"`
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func ToResponse(c models.SaleCommission) CommissionResponse {
	resp := CommissionResponse{
		ID:               c.ID,
		SaleID:           c.SaleID,
		UserID:           c.UserID,
		CommissionRuleID: c.CommissionRuleID,
		CalculatedAmount: c.CalculatedAmount.StringFixed(2),
		ManualAdjustment: c.ManualAdjustment.StringFixed(2),
		FinalAmount:      c.FinalAmount.StringFixed(2),
		Status:           string(c.Status),
		Paid:             c.Paid,
		RejectionReason:  c.RejectionReason,
		ApprovedBy:       c.ApprovedBy,
		ApprovedAt:       formatTime(c.ApprovedAt),
		PaidBy:           c.PaidBy,
		PaidAt:           formatTime(c.PaidAt),
		CreatedAt:        c.CreatedAt.Format(time.RFC3339),
	}
	if c.PaymentDueDate != nil {
		d := c.PaymentDueDate.Format("2006-01-02")
		resp.PaymentDueDate = &d
	}
	return resp
}

func ToSaleResponse(s models.Sale) SaleResponse {
	return SaleResponse{
		ID:              s.ID,
		SalespersonID:   s.SalespersonID,
		SalePrice:       s.SalePrice.StringFixed(2),
		NetProfit:       s.NetProfit.StringFixed(2),
		VehicleCategory: s.VehicleCategory,
		SaleDate:        s.SaleDate.Format("2006-01-02"),
		Status:          string(s.Status),
	}
}

// -------------------------
// Yardımcılar
// -------------------------

func actorFrom(c *fiber.Ctx) (Actor, error) {
	userID, role, err := auth.CurrentUser(c)
	if err != nil {
		return Actor{}, err
	}
	return Actor{ID: userID, Role: role}, nil
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Geçersiz id")
	}
	return uint(id), nil
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

func uintQuery(c *fiber.Ctx, key string) (*uint, error) {
	s := c.Query(key)
	if s == "" {
		return nil, nil
	}
	var v uint
	if _, err := fmt.Sscan(s, &v); err != nil || v == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, key+" geçersiz")
	}
	return &v, nil
}

// -------------------------
// Sorgular
// -------------------------

// GET /api/commissions?status=pending&user_id=3&sale_id=10&from=2025-01-01&to=2025-01-31
func ListHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorFrom(c)
		if err != nil {
			return err
		}

		f := Filter{Limit: c.QueryInt("limit", 200), Offset: c.QueryInt("offset", 0)}
		if f.Limit <= 0 || f.Limit > 1000 {
			return fiber.NewError(fiber.StatusBadRequest, "limit geçersiz")
		}

		if s := c.Query("status"); s != "" {
			st := models.CommissionStatus(s)
			if !st.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "status geçersiz")
			}
			f.Status = &st
		}
		if f.UserID, err = uintQuery(c, "user_id"); err != nil {
			return err
		}
		if f.SaleID, err = uintQuery(c, "sale_id"); err != nil {
			return err
		}
		if s := c.Query("from"); s != "" {
			t, err := time.ParseInLocation("2006-01-02", s, time.Local)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "from formatı YYYY-MM-DD olmalı")
			}
			f.From = &t
		}
		if s := c.Query("to"); s != "" {
			t, err := time.ParseInLocation("2006-01-02", s, time.Local)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "to formatı YYYY-MM-DD olmalı")
			}
			end := t.AddDate(0, 0, 1)
			f.To = &end
		}

		// satış temsilcisi sadece kendi komisyonlarını görür
		if actor.Role == models.RoleSalesperson {
			f.UserID = &actor.ID
		}

		rows, err := svc.List(c.UserContext(), f)
		if err != nil {
			return err
		}

		resp := make([]CommissionResponse, 0, len(rows))
		for _, r := range rows {
			resp = append(resp, ToResponse(r))
		}
		return c.JSON(resp)
	}
}

func GetHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorFrom(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		d, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		if actor.Role == models.RoleSalesperson && d.Commission.UserID != actor.ID {
			return ErrForbidden
		}

		resp := CommissionDetailResponse{
			Commission:  ToResponse(d.Commission),
			Sale:        ToSaleResponse(d.Sale),
			RuleCode:    d.Rule.Code,
			RuleVersion: d.Rule.Version,
			Adjustments: make([]AdjustmentResponse, 0, len(d.Adjustments)),
			LedgerTotal: d.LedgerTotal().StringFixed(2),
			History:     make([]audit.AuditLogResponse, 0, len(d.History)),
		}
		for _, a := range d.Adjustments {
			resp.Adjustments = append(resp.Adjustments, AdjustmentResponse{
				ID:            a.ID,
				DeltaAmount:   a.DeltaAmount.StringFixed(2),
				Justification: a.Justification,
				ActorID:       a.ActorID,
				CreatedAt:     a.CreatedAt.Format(time.RFC3339),
			})
		}
		for _, l := range d.History {
			resp.History = append(resp.History, audit.ToResponse(l))
		}
		return c.JSON(resp)
	}
}

// GET /api/commissions/gaps
func GapsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sales, err := svc.Gaps(c.UserContext())
		if err != nil {
			return err
		}
		resp := make([]SaleResponse, 0, len(sales))
		for _, s := range sales {
			resp = append(resp, ToSaleResponse(s))
		}
		return c.JSON(resp)
	}
}

// -------------------------
// Komutlar
// -------------------------

func ApproveHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorFrom(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		res, err := svc.Approve(c.UserContext(), id, actor)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(res))
	}
}

func RejectHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorFrom(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body RejectRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}

		res, err := svc.Reject(c.UserContext(), id, body.Reason, actor)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(res))
	}
}

// Tekrarlanan ödeme isteği hata değildir: 200 + already_paid ile
// mevcut kayıt döner, ikinci bir ödeme yapılmaz.
func PayHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorFrom(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		res, err := svc.Pay(c.UserContext(), id, actor)
		if errors.Is(err, ErrAlreadyPaid) {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"code":       CodeAlreadyPaid,
				"commission": ToResponse(res),
			})
		}
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(res))
	}
}

func ApproveAndPayHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorFrom(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}

		res, err := svc.ApproveAndPay(c.UserContext(), id, actor)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(res))
	}
}

func AdjustHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorFrom(c)
		if err != nil {
			return err
		}
		id, err := paramID(c)
		if err != nil {
			return err
		}
		var body AdjustRequest
		if err := parseBody(c, &body); err != nil {
			return err
		}

		res, err := svc.Adjust(c.UserContext(), id, body.DeltaAmount, body.Justification, actor)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(res))
	}
}

// POST /api/sales/:id/commission
// Kural bulunamayan ya da komisyonu reddedilen satış için yeniden hesaplama.
func RecreateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorFrom(c)
		if err != nil {
			return err
		}
		saleID, err := paramID(c)
		if err != nil {
			return err
		}

		res, err := svc.Recreate(c.UserContext(), saleID, actor)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ToResponse(res))
	}
}

// Routes registers the commission API on an authenticated router. guards run
// before the role check on every command route (ör. kullanıcı başına hız sınırı).
func Routes(r fiber.Router, svc *Service, guards ...fiber.Handler) {
	command := func(h fiber.Handler, roles ...models.UserRole) []fiber.Handler {
		hs := make([]fiber.Handler, 0, len(guards)+2)
		hs = append(hs, guards...)
		return append(hs, auth.RequireRole(roles...), h)
	}

	r.Get("/commissions", ListHandler(svc))
	r.Get("/commissions/gaps", auth.RequireRole(models.RoleAdmin, models.RoleManager, models.RoleFinance), GapsHandler(svc))
	r.Get("/commissions/:id", GetHandler(svc))

	r.Post("/commissions/:id/approve", command(ApproveHandler(svc), models.RoleAdmin, models.RoleManager)...)
	r.Post("/commissions/:id/reject", command(RejectHandler(svc), models.RoleAdmin, models.RoleManager)...)
	r.Post("/commissions/:id/adjust", command(AdjustHandler(svc), models.RoleAdmin, models.RoleManager)...)
	r.Post("/commissions/:id/pay", command(PayHandler(svc), models.RoleAdmin, models.RoleFinance)...)
	r.Post("/commissions/:id/approve-and-pay", command(ApproveAndPayHandler(svc), models.RoleAdmin)...)
	r.Post("/sales/:id/commission", command(RecreateHandler(svc), models.RoleAdmin, models.RoleManager)...)
}
