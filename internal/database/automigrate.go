package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"progman-api/internal/domain"
)

// Models lists every persisted domain model
func Models() []interface{} {
	return []interface{}{
		&domain.Project{},
		&domain.Schedule{},
		&domain.CommentPage{},
		&domain.Comment{},
		&domain.CategoryProgress{},
		&domain.MilestoneEstimate{},
		&domain.ScheduleImport{},
	}
}

// AutoMigrate creates or updates the tables, unique keys and indexes of all models
func AutoMigrate(db *gorm.DB, logger *zap.Logger) error {
	migrator := db.Migrator()

	for _, model := range Models() {
		existed := migrator.HasTable(model)
		if err := db.AutoMigrate(model); err != nil {
			logger.Error("Failed to migrate table",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Bool("table_existed", existed),
				zap.Error(err),
			)
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
		logger.Debug("Migrated table",
			zap.String("model", fmt.Sprintf("%T", model)),
			zap.Bool("was_existing", existed),
		)
	}

	logger.Info("Database migrations completed", zap.Int("tables", len(Models())))
	return nil
}
