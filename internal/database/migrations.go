package database

import (
	"errors"
	"time"

	"github.com/mayursapkal41/MindNest/internal/challenge"
	"github.com/mayursapkal41/MindNest/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationNormalizeAccountEmails = "2025-06-01_normalize_account_emails"
	migrationClampChallengeDays     = "2025-06-14_clamp_challenge_days"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationNormalizeAccountEmails, apply: normalizeAccountEmails},
		{name: migrationClampChallengeDays, apply: clampChallengeDays},
	}

	for _, migration := range migrations {
		applied, err := migrationApplied(db, migration.name)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		// The data change and its record commit together so a failed step reruns next start.
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := migration.apply(tx); err != nil {
				return err
			}
			return tx.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: time.Now().UTC().Unix()}).Error
		})
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

func migrationApplied(db *gorm.DB, name string) (bool, error) {
	var record migrationRecord
	err := db.Where("name = ?", name).Take(&record).Error
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	default:
		return false, err
	}
}

// normalizeAccountEmails lowercases emails stored before sign-in became case-insensitive.
func normalizeAccountEmails(db *gorm.DB) error {
	return db.Model(&users.Account{}).
		Where("email <> LOWER(TRIM(email))").
		Update("email", gorm.Expr("LOWER(TRIM(email))")).Error
}

// clampChallengeDays caps progress rows that advanced past the last challenge day.
func clampChallengeDays(db *gorm.DB) error {
	return db.Model(&challenge.Progress{}).
		Where("current_day > ?", challenge.ChallengeDays).
		Update("current_day", challenge.ChallengeDays).Error
}
