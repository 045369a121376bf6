package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/Altinn/altinn-notifications-sub006/internal/repository"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createOrdersTables(),
		createStatusFeedTables(),
	})

	return m.Migrate()
}

func createOrdersTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_orders",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(
				&repository.OrderModel{},
				&repository.OrderRecipientModel{},
				&repository.OrderTemplateModel{},
			); err != nil {
				return err
			}
			indexes := []string{
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_creator_idempotency_key ON orders (creator, idempotency_key) WHERE idempotency_key IS NOT NULL`,
				`CREATE INDEX IF NOT EXISTS idx_orders_status_requested ON orders (status, requested_send_time)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(
				&repository.OrderTemplateModel{},
				&repository.OrderRecipientModel{},
				&repository.OrderModel{},
			)
		},
	}
}

func createStatusFeedTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_status_feed",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(
				&repository.StatusFeedModel{},
				&repository.RecipientStatusModel{},
			); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_status_feed_order_id ON status_feed (order_id)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(
				&repository.RecipientStatusModel{},
				&repository.StatusFeedModel{},
			)
		},
	}
}
