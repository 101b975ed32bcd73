package financial

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"dealership-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	commissionSheet = "Komisyonlar"
	summarySheet    = "Özet"
)

var commissionHeader = []interface{}{
	"Komisyon ID", "Satış ID", "Satış Temsilcisi", "Satış Tarihi", "Durum",
	"Hesaplanan", "Düzeltme", "Nihai Tutar", "Vade", "Ödeme Tarihi",
}

var summaryHeader = []interface{}{
	"Satış Temsilcisi", "Komisyon Sayısı", "Bekleyen", "Kazanılan", "Ödenen",
}

func dateCell(t *time.Time) interface{} {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// ExportMonth: ayın satışlarına ait reddedilmemiş komisyonları ve temsilci
// toplamlarını bordro için xlsx olarak yazar.
func ExportMonth(ctx context.Context, db *gorm.DB, year, month int, now time.Time) (*bytes.Buffer, error) {
	summary, err := Summarize(ctx, db, year, month, now)
	if err != nil {
		return nil, err
	}

	firstDay := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, now.Location())
	nextMonth := firstDay.AddDate(0, 1, 0)

	var saleIDs []uint
	if err := db.WithContext(ctx).Model(&models.Sale{}).
		Where("sale_date >= ? AND sale_date < ?", firstDay, nextMonth).
		Pluck("id", &saleIDs).Error; err != nil {
		return nil, fmt.Errorf("satışlar okunamadı: %w", err)
	}

	var rows []models.SaleCommission
	if len(saleIDs) > 0 {
		if err := db.WithContext(ctx).
			Preload("Sale").Preload("User").
			Where("sale_id IN ? AND status <> ?", saleIDs, models.CommissionStatusRejected).
			Order("user_id asc, id asc").
			Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("komisyonlar okunamadı: %w", err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", commissionSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(commissionSheet, "A1", &commissionHeader); err != nil {
		return nil, err
	}
	for i, c := range rows {
		saleDate := c.Sale.SaleDate
		row := []interface{}{
			c.ID, c.SaleID, c.User.Name, dateCell(&saleDate), string(c.Status),
			c.CalculatedAmount.StringFixed(2), c.ManualAdjustment.StringFixed(2), c.FinalAmount.StringFixed(2),
			dateCell(c.PaymentDueDate), dateCell(c.PaidAt),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(commissionSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	if err := f.SetSheetRow(summarySheet, "A1", &summaryHeader); err != nil {
		return nil, err
	}
	for i, p := range summary.BySalesperson {
		row := []interface{}{
			p.Name, p.Commissions, p.Pending.StringFixed(2), p.Earned.StringFixed(2), p.Paid.StringFixed(2),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("excel dosyası yazılamadı: %w", err)
	}
	return buf, nil
}

// GET /api/financial-summary/monthly/export?year=2025&month=12
func MonthlyCommissionExportHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		year, month, err := yearMonth(c)
		if err != nil {
			return err
		}

		buf, err := ExportMonth(c.UserContext(), db, year, month, time.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Komisyon raporu oluşturulamadı")
		}

		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="komisyon-%04d-%02d.xlsx"`, year, month))
		return c.Send(buf.Bytes())
	}
}
