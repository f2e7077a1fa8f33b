package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/habitlink/habitlink-backend/internal/logger"
	"github.com/habitlink/habitlink-backend/internal/types"
	"github.com/habitlink/habitlink-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "habitlink", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	log.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		log.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.Plan{},
		&types.Recommendation{},
		&types.Connection{},
		&types.ActivityLog{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	constraints := []struct {
		table, name, sql string
	}{
		{"plan", "fk_plan_user_id", `
			ALTER TABLE "plan"
			ADD CONSTRAINT "fk_plan_user_id"
			FOREIGN KEY ("user_id")
			REFERENCES "user"("id")
			ON DELETE CASCADE`},
		{"recommendation", "fk_recommendation_user_id", `
			ALTER TABLE "recommendation"
			ADD CONSTRAINT "fk_recommendation_user_id"
			FOREIGN KEY ("user_id")
			REFERENCES "user"("id")
			ON DELETE CASCADE`},
		{"activity_log", "fk_activity_log_user_id", `
			ALTER TABLE "activity_log"
			ADD CONSTRAINT "fk_activity_log_user_id"
			FOREIGN KEY ("user_id")
			REFERENCES "user"("id")
			ON DELETE CASCADE`},
	}
	for _, c := range constraints {
		if s.db.Migrator().HasConstraint(c.table, c.name) {
			continue
		}
		if err := s.db.Exec(c.sql).Error; err != nil {
			return fmt.Errorf("failed to add %s: %w", c.name, err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
