package database

import (
	"fmt"
	"log"

	"dealership-backend/internal/config"
	"dealership-backend/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Veritabanına bağlanılamadı: %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("Migration hatası: %v", err)
	}

	log.Println("Veritabanı bağlantısı başarılı. Migration tamamlandı.")
}

// Open: postgres production, sqlite yerel geliştirme ve testler için.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("bilinmeyen veritabanı sürücüsü: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		// sqlite tek yazıcı; havuzu tek bağlantıya indir
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Sale{},
		&models.CommissionRule{},
		&models.SaleCommission{},
		&models.CommissionAdjustment{},
		&models.SalespersonGoal{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("AutoMigrate hatası: %w", err)
	}

	// (sale_id, user_id) başına tek reddedilmemiş komisyon.
	// Kısmi index hem postgres hem sqlite'ta geçerli.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_sale_commissions_live
		ON sale_commissions (sale_id, user_id)
		WHERE status <> 'rejected'
	`).Error; err != nil {
		return fmt.Errorf("uniq_sale_commissions_live oluşturulamadı: %w", err)
	}

	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_sale_commissions_status_created ON sale_commissions (status, created_at)").Error; err != nil {
		return fmt.Errorf("idx_sale_commissions_status_created oluşturulamadı: %w", err)
	}

	if db.Dialector.Name() == "postgres" {
		if err := addPostgresChecks(db); err != nil {
			return err
		}
	}

	return nil
}

// addPostgresChecks: durum invariant'larını CHECK constraint olarak ekler.
// sqlite ALTER TABLE ADD CONSTRAINT desteklemediği için sadece postgres.
func addPostgresChecks(db *gorm.DB) error {
	checks := []struct {
		name string
		expr string
	}{
		{"chk_sale_commissions_final_amount", "final_amount = calculated_amount + manual_adjustment"},
		{"chk_sale_commissions_paid", "(status = 'paid') = paid"},
		{"chk_sale_commissions_paid_after_approval", "status <> 'paid' OR (approved_at IS NOT NULL AND paid_at IS NOT NULL AND approved_at < paid_at)"},
		{"chk_sale_commissions_rejection_reason", "status <> 'rejected' OR btrim(rejection_reason) <> ''"},
	}

	for _, chk := range checks {
		var exists bool
		db.Raw(`
			SELECT EXISTS (
				SELECT 1
				FROM information_schema.table_constraints
				WHERE table_name = 'sale_commissions'
				AND constraint_name = ?
			)
		`, chk.name).Scan(&exists)
		if exists {
			continue
		}

		log.Printf("sale_commissions için %s constraint'i ekleniyor...", chk.name)
		if err := db.Exec(fmt.Sprintf("ALTER TABLE sale_commissions ADD CONSTRAINT %s CHECK (%s)", chk.name, chk.expr)).Error; err != nil {
			return fmt.Errorf("%s eklenemedi: %w", chk.name, err)
		}
	}
	return nil
}
