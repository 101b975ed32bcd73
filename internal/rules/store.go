package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"dealership-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Definition: konfigürasyon dosyasındaki tek kural.
type Definition struct {
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
	Active          *bool                 `json:"active,omitempty"` // varsayılan true
}

func (d Definition) IsActive() bool {
	return d.Active == nil || *d.Active
}

func (d Definition) Rule() models.CommissionRule {
	return models.CommissionRule{
		Code:            strings.TrimSpace(d.Code),
		Version:         d.Version,
		Name:            strings.TrimSpace(d.Name),
		Type:            d.Type,
		Params:          d.Params,
		MinAmount:       d.MinAmount,
		MaxAmount:       d.MaxAmount,
		VehicleCategory: strings.TrimSpace(d.VehicleCategory),
		MinSaleValue:    d.MinSaleValue,
		MaxSaleValue:    d.MaxSaleValue,
		Active:          d.IsActive(),
	}
}

// Store: aktif kuralların okunduğu yer (komisyon servisi sadece okur).
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ActiveRules(ctx context.Context) ([]models.CommissionRule, error) {
	var rows []models.CommissionRule
	if err := s.db.WithContext(ctx).Where("active = ?", true).Order("id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("kurallar okunamadı: %w", err)
	}
	return rows, nil
}

func (s *Store) List(ctx context.Context) ([]models.CommissionRule, error) {
	var rows []models.CommissionRule
	if err := s.db.WithContext(ctx).Order("code asc, version asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("kurallar okunamadı: %w", err)
	}
	return rows, nil
}

// LoadFile okur, doğrular ve veritabanıyla eşitler.
func (s *Store) LoadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("kural dosyası okunamadı: %w", err)
	}

	var defs []Definition
	if err := json.Unmarshal(data, &defs); err != nil {
		return fmt.Errorf("kural dosyası çözümlenemedi: %w", err)
	}

	return s.Sync(ctx, defs)
}

// Sync: yeni (code, version) çiftlerini ekler, dosyada olmayanları pasif yapar.
// Var olan bir versiyonun içeriği değişmişse hata verir; kurallar versiyonlanır, güncellenmez.
func (s *Store) Sync(ctx context.Context, defs []Definition) error {
	activeCodes := make(map[string]int)
	seen := make(map[string]bool)
	for _, d := range defs {
		r := d.Rule()
		if err := Validate(r); err != nil {
			return err
		}
		key := fmt.Sprintf("%s@%d", r.Code, r.Version)
		if seen[key] {
			return fmt.Errorf("%w: %s dosyada birden fazla kez tanımlı", ErrInvalidRule, key)
		}
		seen[key] = true
		if r.Active {
			if v, ok := activeCodes[r.Code]; ok {
				return fmt.Errorf("%w: %s için hem v%d hem v%d aktif", ErrInvalidRule, r.Code, v, r.Version)
			}
			activeCodes[r.Code] = r.Version
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []models.CommissionRule
		if err := tx.Find(&existing).Error; err != nil {
			return err
		}
		byKey := make(map[string]models.CommissionRule, len(existing))
		for _, r := range existing {
			byKey[fmt.Sprintf("%s@%d", r.Code, r.Version)] = r
		}

		for _, d := range defs {
			r := d.Rule()
			key := fmt.Sprintf("%s@%d", r.Code, r.Version)
			cur, ok := byKey[key]
			if !ok {
				if err := tx.Create(&r).Error; err != nil {
					return fmt.Errorf("kural %s eklenemedi: %w", key, err)
				}
				log.Printf("Komisyon kuralı eklendi: %s (%s)", key, r.Type)
				continue
			}
			if fingerprint(cur) != fingerprint(r) {
				return fmt.Errorf("%w: %s değiştirilmiş, yeni versiyon tanımlanmalı", ErrInvalidRule, key)
			}
			if cur.Active != r.Active {
				if err := tx.Model(&models.CommissionRule{}).Where("id = ?", cur.ID).Update("active", r.Active).Error; err != nil {
					return err
				}
			}
			delete(byKey, key)
		}

		// dosyada olmayan kurallar pasif
		for key, r := range byKey {
			if !r.Active {
				continue
			}
			if err := tx.Model(&models.CommissionRule{}).Where("id = ?", r.ID).Update("active", false).Error; err != nil {
				return err
			}
			log.Printf("Komisyon kuralı pasif yapıldı: %s", key)
		}
		return nil
	})
}

func fingerprint(r models.CommissionRule) string {
	b, _ := json.Marshal(struct {
		Name     string
		Type     models.CommissionType
		Params   models.RuleParams
		Min, Max *string
		Category string
		Lo, Hi   *string
	}{
		Name:     r.Name,
		Type:     r.Type,
		Params:   r.Params, // decimal JSON çıktısı "0.050" ile "0.05"i eşitler
		Min:      decStr(r.MinAmount),
		Max:      decStr(r.MaxAmount),
		Category: strings.ToLower(r.VehicleCategory),
		Lo:       decStr(r.MinSaleValue),
		Hi:       decStr(r.MaxSaleValue),
	})
	return string(b)
}

func decStr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
