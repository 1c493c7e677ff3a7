package database

import (
	"rentledger/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection opens the postgres pool and migrates the schema.
func NewConnection(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&model.Plan{},
		&model.Feature{},
		&model.PlanFeature{},
		&model.PlanFeatureLimit{},
		&model.Organization{},
		&model.Profile{},
		&model.ObjectPermission{},
		&model.FieldPermission{},
		&model.User{},
		&model.Notification{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Warn("failed to auto-migrate models", zap.Error(err))
	}

	return db, nil
}
