// Package challenge tracks the 30-day wellbeing challenge: daily tasks, streaks, and the
// midnight gate between days.
package challenge

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mayursapkal41/MindNest/internal/identifier"
	"github.com/mayursapkal41/MindNest/internal/svcerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUnknownTask = errors.New("challenge: unknown task")
	// ErrDayLocked reports a toggle while the completed day waits for midnight.
	ErrDayLocked = errors.New("challenge: next day unlocks at midnight")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingUserID     = errors.New("user identifier is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew         = "challenge.service.new"
	opLoad               = "challenge.load"
	opToggleTask         = "challenge.toggle_task"
	opResetLapsedStreaks = "challenge.reset_lapsed_streaks"
)

// ServiceConfig wires the challenge service.
type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider identifier.Provider
	Location   *time.Location
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Service persists challenge progress and applies the streak rules.
type Service struct {
	db         *gorm.DB
	idProvider identifier.Provider
	location   *time.Location
	clock      func() time.Time
	logger     *zap.Logger
}

// NewService constructs the challenge service. The location defines "today" and midnight.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, svcerr.New(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, svcerr.New(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	location := cfg.Location
	if location == nil {
		location = time.UTC
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:         cfg.Database,
		idProvider: cfg.IDProvider,
		location:   location,
		clock:      clock,
		logger:     logger,
	}, nil
}

// Load returns the member's challenge state, creating it on first visit and zeroing a lapsed streak.
func (s *Service) Load(ctx context.Context, userID string) (Snapshot, error) {
	if strings.TrimSpace(userID) == "" {
		return Snapshot{}, svcerr.New(opLoad, "missing_user_id", errMissingUserID)
	}
	now := s.clock()
	today := DateOf(now, s.location)

	var snapshot Snapshot
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		progress, err := s.reconciledProgress(tx, opLoad, userID, today)
		if err != nil {
			return err
		}
		snapshot, err = s.snapshot(tx, opLoad, progress, today, now)
		return err
	})
	if txErr != nil {
		return Snapshot{}, txErr
	}
	return snapshot, nil
}

// ToggleTask flips today's completion of a task. Completing the last open task completes the day.
func (s *Service) ToggleTask(ctx context.Context, userID, taskID string) (ToggleResult, error) {
	if strings.TrimSpace(userID) == "" {
		return ToggleResult{}, svcerr.New(opToggleTask, "missing_user_id", errMissingUserID)
	}
	if !knownTask(taskID) {
		return ToggleResult{}, svcerr.New(opToggleTask, "unknown_task", ErrUnknownTask)
	}
	now := s.clock()
	today := DateOf(now, s.location)

	result := ToggleResult{TaskID: taskID}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		progress, err := s.reconciledProgress(tx, opToggleTask, userID, today)
		if err != nil {
			return err
		}
		if waitingForNextDay(progress, now, s.location) {
			return svcerr.New(opToggleTask, "day_locked", ErrDayLocked)
		}

		deleted := tx.Where("user_id = ? AND task_id = ? AND completed_date = ?", userID, taskID, today).
			Delete(&TaskCompletion{})
		if deleted.Error != nil {
			s.logError(opToggleTask, "completion_delete_failed", deleted.Error, zap.String("user_id", userID))
			return svcerr.New(opToggleTask, "completion_delete_failed", deleted.Error)
		}

		if deleted.RowsAffected == 0 {
			completionID, err := s.idProvider.NewID()
			if err != nil {
				s.logError(opToggleTask, "id_generation_failed", err)
				return svcerr.New(opToggleTask, "id_generation_failed", err)
			}
			completion := TaskCompletion{ID: completionID, UserID: userID, TaskID: taskID, CompletedDate: today}
			if err := tx.Create(&completion).Error; err != nil {
				s.logError(opToggleTask, "completion_insert_failed", err, zap.String("user_id", userID))
				return svcerr.New(opToggleTask, "completion_insert_failed", err)
			}
			result.Completed = true

			var completedCount int64
			if err := tx.Model(&TaskCompletion{}).
				Where("user_id = ? AND completed_date = ?", userID, today).
				Count(&completedCount).Error; err != nil {
				s.logError(opToggleTask, "completion_count_failed", err, zap.String("user_id", userID))
				return svcerr.New(opToggleTask, "completion_count_failed", err)
			}
			if int(completedCount) == len(dailyTasks) {
				advanced, changed := ApplyCompletion(progress, today, now)
				if changed {
					if err := s.saveProgress(tx, opToggleTask, advanced); err != nil {
						return err
					}
					progress = advanced
					result.DayCompleted = true
				}
			}
		}

		snapshot, err := s.snapshot(tx, opToggleTask, progress, today, now)
		if err != nil {
			return err
		}
		result.Snapshot = snapshot
		return nil
	})
	if txErr != nil {
		return ToggleResult{}, txErr
	}

	if result.DayCompleted {
		s.logger.Info("challenge day completed",
			zap.String("user_id", userID),
			zap.Int("current_day", result.CurrentDay),
			zap.Int("streak", result.Streak))
	}
	return result, nil
}

// ResetLapsedStreaks zeroes every streak whose last completion is more than one day old.
func (s *Service) ResetLapsedStreaks(ctx context.Context, now time.Time) (int64, error) {
	yesterday := DateOf(NextMidnight(now, s.location).AddDate(0, 0, -2), s.location)
	updated := s.db.WithContext(ctx).Model(&Progress{}).
		Where("last_completed_date <> '' AND last_completed_date < ? AND streak <> 0", yesterday).
		Update("streak", 0)
	if updated.Error != nil {
		s.logError(opResetLapsedStreaks, "update_failed", updated.Error)
		return 0, svcerr.New(opResetLapsedStreaks, "update_failed", updated.Error)
	}
	return updated.RowsAffected, nil
}

// progressForUpdate selects a member's progress row under a row lock, so concurrent toggles
// for the same member serialize and the last one sees every completion. SQLite has no row
// locks and drops the clause; its single connection already serializes writers.
func progressForUpdate(tx *gorm.DB, userID string) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID)
}

func (s *Service) reconciledProgress(tx *gorm.DB, operation, userID, today string) (Progress, error) {
	var progress Progress
	err := progressForUpdate(tx, userID).Take(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		progressID, idErr := s.idProvider.NewID()
		if idErr != nil {
			s.logError(operation, "id_generation_failed", idErr)
			return Progress{}, svcerr.New(operation, "id_generation_failed", idErr)
		}
		progress = Progress{ID: progressID, UserID: userID, CurrentDay: 1, Streak: 0}
		if err := tx.Create(&progress).Error; err != nil {
			s.logError(operation, "progress_insert_failed", err, zap.String("user_id", userID))
			return Progress{}, svcerr.New(operation, "progress_insert_failed", err)
		}
		return progress, nil
	}
	if err != nil {
		s.logError(operation, "progress_select_failed", err, zap.String("user_id", userID))
		return Progress{}, svcerr.New(operation, "progress_select_failed", err)
	}

	reconciled, changed := ReconcileOnLoad(progress, today)
	if !changed {
		return progress, nil
	}
	if err := s.saveProgress(tx, operation, reconciled); err != nil {
		return Progress{}, err
	}
	return reconciled, nil
}

func (s *Service) saveProgress(tx *gorm.DB, operation string, progress Progress) error {
	if err := tx.Model(&Progress{}).Where("id = ?", progress.ID).Updates(map[string]interface{}{
		"current_day":         progress.CurrentDay,
		"streak":              progress.Streak,
		"last_completed_date": progress.LastCompletedDate,
		"completed_at":        progress.CompletedAt,
	}).Error; err != nil {
		s.logError(operation, "progress_update_failed", err, zap.String("user_id", progress.UserID))
		return svcerr.New(operation, "progress_update_failed", err)
	}
	return nil
}

func (s *Service) snapshot(tx *gorm.DB, operation string, progress Progress, today string, now time.Time) (Snapshot, error) {
	var completedTaskIDs []string
	if err := tx.Model(&TaskCompletion{}).
		Where("user_id = ? AND completed_date = ?", progress.UserID, today).
		Pluck("task_id", &completedTaskIDs).Error; err != nil {
		s.logError(operation, "completion_select_failed", err, zap.String("user_id", progress.UserID))
		return Snapshot{}, svcerr.New(operation, "completion_select_failed", err)
	}
	done := make(map[string]bool, len(completedTaskIDs))
	for _, taskID := range completedTaskIDs {
		done[taskID] = true
	}

	tasks := make([]TaskState, 0, len(dailyTasks))
	allDone := true
	for _, task := range dailyTasks {
		tasks = append(tasks, TaskState{Task: task, Completed: done[task.ID]})
		allDone = allDone && done[task.ID]
	}

	completedDays := make([]bool, ChallengeDays)
	for index := 0; index < progress.CurrentDay-1 && index < ChallengeDays; index++ {
		completedDays[index] = true
	}

	midnight := NextMidnight(now, s.location)
	snapshot := Snapshot{
		CurrentDay:        progress.CurrentDay,
		Streak:            progress.Streak,
		LastCompletedDate: progress.LastCompletedDate,
		Today:             today,
		Tasks:             tasks,
		TodayCompleted:    allDone,
		CompletedDays:     completedDays,
		TimeUntilMidnight: FormatUntil(midnight.Sub(now)),
	}
	if waitingForNextDay(progress, now, s.location) {
		unlocksAt := NextMidnight(*progress.CompletedAt, s.location).UTC()
		snapshot.WaitingForNextDay = true
		snapshot.UnlocksAt = &unlocksAt
	}
	return snapshot, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("challenge service error", attrs...)
}
