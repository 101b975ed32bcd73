package rules

import (
	"dealership-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type RuleResponse struct {
	ID              uint                  `json:"id"`
	Code            string                `json:"code"`
	Version         int                   `json:"version"`
	Name            string                `json:"name"`
	Type            models.CommissionType `json:"type"`
	Params          models.RuleParams     `json:"params"`
	MinAmount       *decimal.Decimal      `json:"min_amount,omitempty"`
	MaxAmount       *decimal.Decimal      `json:"max_amount,omitempty"`
	VehicleCategory string                `json:"vehicle_category,omitempty"`
	MinSaleValue    *decimal.Decimal      `json:"min_sale_value,omitempty"`
	MaxSaleValue    *decimal.Decimal      `json:"max_sale_value,omitempty"`
	Active          bool                  `json:"active"`
}

func toRuleResponse(r models.CommissionRule) RuleResponse {
	return RuleResponse{
		ID:              r.ID,
		Code:            r.Code,
		Version:         r.Version,
		Name:            r.Name,
		Type:            r.Type,
		Params:          r.Params,
		MinAmount:       r.MinAmount,
		MaxAmount:       r.MaxAmount,
		VehicleCategory: r.VehicleCategory,
		MinSaleValue:    r.MinSaleValue,
		MaxSaleValue:    r.MaxSaleValue,
		Active:          r.Active,
	}
}

// GET /api/admin/commission-rules
func ListHandler(s *Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := s.List(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kurallar listelenemedi")
		}
		resp := make([]RuleResponse, 0, len(rows))
		for _, r := range rows {
			resp = append(resp, toRuleResponse(r))
		}
		return c.JSON(resp)
	}
}

// POST /api/admin/commission-rules/reload
// Geçersiz dosya mevcut kurallara dokunmaz.
func ReloadHandler(s *Store, path string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := s.LoadFile(c.UserContext(), path); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		rows, err := s.ActiveRules(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kurallar listelenemedi")
		}
		return c.JSON(fiber.Map{"active_rules": len(rows)})
	}
}
