package audit

import (
	"fmt"

	"dealership-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	UserID      uint               `json:"user_id"`
	UserName    string             `json:"user_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	BeforeData  string             `json:"before_data"`
	AfterData   string             `json:"after_data"`
}

func ToResponse(l models.AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:          l.ID,
		CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
		UserID:      l.UserID,
		UserName:    l.UserName,
		EntityType:  l.EntityType,
		EntityID:    l.EntityID,
		Action:      l.Action,
		Description: l.Description,
		BeforeData:  l.BeforeData,
		AfterData:   l.AfterData,
	}
}

// GET /api/audit-logs?entity_type=sale_commission&entity_id=1&user_id=2&limit=100
func ListAuditLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := Filter{EntityType: c.Query("entity_type"), Limit: 500}

		if s := c.Query("entity_id"); s != "" {
			if _, err := fmt.Sscan(s, &f.EntityID); err != nil || f.EntityID == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "entity_id geçersiz")
			}
		}
		if s := c.Query("user_id"); s != "" {
			if _, err := fmt.Sscan(s, &f.UserID); err != nil || f.UserID == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "user_id geçersiz")
			}
		}
		if s := c.Query("limit"); s != "" {
			if _, err := fmt.Sscan(s, &f.Limit); err != nil || f.Limit <= 0 || f.Limit > 5000 {
				return fiber.NewError(fiber.StatusBadRequest, "limit geçersiz")
			}
		}

		logs, err := List(db.WithContext(c.UserContext()), f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Loglar listelenemedi")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, ToResponse(l))
		}
		return c.JSON(resp)
	}
}
