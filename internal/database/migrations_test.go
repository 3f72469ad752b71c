package database

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/mayursapkal41/MindNest/internal/challenge"
	"github.com/mayursapkal41/MindNest/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsNormalizesLegacyRows(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&users.Account{}, &challenge.Progress{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	account := users.Account{UserID: "user-1", Email: " Member@Example.COM ", PasswordHash: "hash"}
	if err := database.Create(&account).Error; err != nil {
		testContext.Fatalf("failed to insert account: %v", err)
	}
	progress := challenge.Progress{ID: "progress-1", UserID: "user-1", CurrentDay: 31, Streak: 30}
	if err := database.Create(&progress).Error; err != nil {
		testContext.Fatalf("failed to insert progress: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var storedAccount users.Account
	if err := database.Where("user_id = ?", account.UserID).Take(&storedAccount).Error; err != nil {
		testContext.Fatalf("failed to reload account: %v", err)
	}
	if storedAccount.Email != "member@example.com" {
		testContext.Fatalf("expected normalized email, got %q", storedAccount.Email)
	}

	var storedProgress challenge.Progress
	if err := database.Where("user_id = ?", progress.UserID).Take(&storedProgress).Error; err != nil {
		testContext.Fatalf("failed to reload progress: %v", err)
	}
	if storedProgress.CurrentDay != challenge.ChallengeDays {
		testContext.Fatalf("expected current day clamped to %d, got %d", challenge.ChallengeDays, storedProgress.CurrentDay)
	}

	for _, name := range []string{migrationNormalizeAccountEmails, migrationClampChallengeDays} {
		var record migrationRecord
		if err := database.Where("name = ?", name).Take(&record).Error; err != nil {
			testContext.Fatalf("expected migration record %s to be created: %v", name, err)
		}
		if record.AppliedAtSeconds == 0 {
			testContext.Fatalf("expected migration timestamp to be set for %s", name)
		}
	}

	// A second run must skip applied migrations.
	if err := database.Model(&users.Account{}).Where("user_id = ?", account.UserID).Update("email", "Again@Example.com").Error; err != nil {
		testContext.Fatalf("failed to update account: %v", err)
	}
	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to reapply migrations: %v", err)
	}
	if err := database.Where("user_id = ?", account.UserID).Take(&storedAccount).Error; err != nil {
		testContext.Fatalf("failed to reload account: %v", err)
	}
	if storedAccount.Email != "Again@Example.com" {
		testContext.Fatalf("expected applied migration to be skipped, got %q", storedAccount.Email)
	}
}

func TestOpenSQLiteCreatesSchema(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "mindnest.db")
	database, err := Open(Options{Driver: DriverSQLite, Path: databasePath}, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}

	for _, table := range []string{"accounts", "profiles", "community_messages", "message_likes", "message_replies", "challenge_progress", "daily_task_completions", "db_migrations"} {
		if !database.Migrator().HasTable(table) {
			testContext.Fatalf("expected table %s to exist", table)
		}
	}
}

func TestOpenRejectsIncompleteOptions(testContext *testing.T) {
	testCases := map[string]Options{
		"sqlite-without-path":  {Driver: DriverSQLite},
		"postgres-without-dsn": {Driver: DriverPostgres},
		"unknown-driver":       {Driver: "mysql", Path: "x"},
	}
	for name, options := range testCases {
		testContext.Run(name, func(testContext *testing.T) {
			if _, err := Open(options, nil); err == nil {
				testContext.Fatalf("expected open error")
			}
		})
	}
}
