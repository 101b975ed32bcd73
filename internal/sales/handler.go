package sales

import (
	"fmt"
	"time"

	"dealership-backend/internal/auth"
	"dealership-backend/internal/commission"
	"dealership-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

type CompletedSaleRequest struct {
	SaleID          uint            `json:"sale_id" validate:"required"`
	SalespersonID   uint            `json:"salesperson_id" validate:"required"`
	SalePrice       decimal.Decimal `json:"sale_price"`
	NetProfit       decimal.Decimal `json:"net_profit"`
	VehicleCategory string          `json:"vehicle_category" validate:"max=50"`
	SaleDate        string          `json:"sale_date" validate:"required,datetime=2006-01-02"`
}

type CompletedSaleResponse struct {
	Sale       commission.SaleResponse        `json:"sale"`
	Commission *commission.CommissionResponse `json:"commission"`
	Gap        bool                           `json:"gap"`
	Code       string                         `json:"code,omitempty"`
	Error      string                         `json:"error,omitempty"`
}

type CancelSaleResponse struct {
	Sale                 commission.SaleResponse         `json:"sale"`
	Rejected             []commission.CommissionResponse `json:"rejected"`
	RequiresCompensation []commission.CommissionResponse `json:"requires_compensation"`
}

func toResponses(rows []models.SaleCommission) []commission.CommissionResponse {
	out := make([]commission.CommissionResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, commission.ToResponse(r))
	}
	return out
}

// POST /api/sales/completed
// Satış her durumda kaydedilir. Kural bulunamazsa yine 201 döner, gap=true.
func CompleteHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var body CompletedSaleRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if err := validate.Struct(body); err != nil {
			return fmt.Errorf("%w: %v", commission.ErrValidation, err)
		}
		saleDate, err := time.ParseInLocation("2006-01-02", body.SaleDate, time.Local)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "sale_date formatı YYYY-MM-DD olmalı")
		}

		out, err := svc.Complete(c.UserContext(), Completed{
			SaleID:          body.SaleID,
			SalespersonID:   body.SalespersonID,
			SalePrice:       body.SalePrice,
			NetProfit:       body.NetProfit,
			VehicleCategory: body.VehicleCategory,
			SaleDate:        saleDate,
		}, userID)
		if err != nil {
			return err
		}

		resp := CompletedSaleResponse{Sale: commission.ToSaleResponse(out.Sale)}
		if out.Commission != nil {
			cr := commission.ToResponse(*out.Commission)
			resp.Commission = &cr
		}
		if out.CommissionErr != nil {
			_, code, _ := commission.HTTPError(out.CommissionErr)
			resp.Gap = true
			resp.Code = code
			resp.Error = out.CommissionErr.Error()
		}

		status := fiber.StatusCreated
		if out.Commission != nil && !out.Created {
			status = fiber.StatusOK
		}
		return c.Status(status).JSON(resp)
	}
}

// POST /api/sales/:id/cancel
func CancelHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, role, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz id")
		}

		out, err := svc.Cancel(c.UserContext(), uint(id), commission.Actor{ID: userID, Role: role})
		if err != nil {
			return err
		}

		return c.JSON(CancelSaleResponse{
			Sale:                 commission.ToSaleResponse(out.Sale),
			Rejected:             toResponses(out.Rejected),
			RequiresCompensation: toResponses(out.RequiresCompensation),
		})
	}
}

func Routes(r fiber.Router, svc *Service, guards ...fiber.Handler) {
	complete := append(append([]fiber.Handler{}, guards...), auth.RequireRole(models.RoleAdmin, models.RoleManager), CompleteHandler(svc))
	cancel := append(append([]fiber.Handler{}, guards...), auth.RequireRole(models.RoleAdmin, models.RoleManager), CancelHandler(svc))

	r.Post("/sales/completed", complete...)
	r.Post("/sales/:id/cancel", cancel...)
}
