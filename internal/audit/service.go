package audit

import (
	"encoding/json"
	"fmt"

	"dealership-backend/internal/models"

	"gorm.io/gorm"
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

const (
	EntitySaleCommission  = "sale_commission"
	EntitySale            = "sale"
	EntitySalespersonGoal = "salesperson_goal"
)

// WriteLog: çağıranın transaction'ı içinde yazılır, böylece durum geçişi ile
// denetim kaydı birlikte commit edilir ya da birlikte geri alınır.
func WriteLog(tx *gorm.DB, opts LogOptions) error {
	// PostgreSQL jsonb için boş string yerine "null" JSON string'i kullanmalıyız
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	log := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := tx.Create(&log).Error; err != nil {
		return fmt.Errorf("audit log kaydedilemedi: %w", err)
	}

	return nil
}

// UserName: denormalize edilen kullanıcı adı; bulunamazsa boş döner.
func UserName(tx *gorm.DB, userID uint) string {
	if userID == 0 {
		return "system"
	}
	var user models.User
	if err := tx.Select("name").First(&user, "id = ?", userID).Error; err != nil {
		return ""
	}
	return user.Name
}

type Filter struct {
	EntityType string
	EntityID   uint
	UserID     uint
	Limit      int
}

func List(tx *gorm.DB, f Filter) ([]models.AuditLog, error) {
	dbq := tx.Model(&models.AuditLog{})

	if f.EntityType != "" {
		dbq = dbq.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID > 0 {
		dbq = dbq.Where("entity_id = ?", f.EntityID)
	}
	if f.UserID > 0 {
		dbq = dbq.Where("user_id = ?", f.UserID)
	}
	if f.Limit > 0 {
		dbq = dbq.Limit(f.Limit)
	}

	var logs []models.AuditLog
	if err := dbq.Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("loglar listelenemedi: %w", err)
	}
	return logs, nil
}
