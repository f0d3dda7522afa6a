package database

import (
	"log/slog"
	"os"

	"squadup-backend/internal/config"
	"squadup-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := Migrate(DB); err != nil {
		slog.Error("AutoMigrate failed", "error", err)
		os.Exit(1)
	}

	slog.Info("database connection established, migrations complete")
}

// Migrate creates or updates the schema. Split out from Init so tests can run
// it against their own database handle.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.Expense{},
		&models.DebtRecord{},
		&models.Payment{},
		&models.Poll{},
		&models.PollOption{},
		&models.PollVote{},
		&models.ActivityLog{},
	)
}
