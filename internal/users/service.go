package users

import (
	"context"
	"errors"
	"sync"

	"github.com/mayursapkal41/MindNest/internal/auth"
	"github.com/mayursapkal41/MindNest/internal/identifier"
	"github.com/mayursapkal41/MindNest/internal/svcerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrEmailRegistered indicates an account already exists for the email.
	ErrEmailRegistered = errors.New("users: email already registered")
	// ErrInvalidCredentials hides whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("users: invalid email or password")
	// ErrProfileNotFound indicates no profile exists for the user id.
	ErrProfileNotFound = errors.New("users: profile not found")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingUserID     = errors.New("user identifier is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew     = "users.service.new"
	opSignUp         = "users.sign_up"
	opSignIn         = "users.sign_in"
	opProfile        = "users.profile"
	opAnonymousName  = "users.anonymous_name"
	reasonValidation = "invalid_request"
)

// ServiceConfig describes the dependencies required for account management.
type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider identifier.Provider
	Logger     *zap.Logger
}

// Service manages accounts and profiles.
type Service struct {
	db         *gorm.DB
	idProvider identifier.Provider
	logger     *zap.Logger
	cache      sync.Map
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, svcerr.New(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, svcerr.New(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:         cfg.Database,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// SignUp validates the request, creates the account and its profile, and returns the profile.
func (s *Service) SignUp(ctx context.Context, request SignUpRequest) (Profile, error) {
	request = request.normalized()
	if err := request.validate(); err != nil {
		return Profile{}, svcerr.New(opSignUp, reasonValidation, err)
	}

	passwordHash, err := auth.HashPassword(request.Password)
	if err != nil {
		s.logError(opSignUp, "hash_failed", err)
		return Profile{}, svcerr.New(opSignUp, "hash_failed", err)
	}

	userID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opSignUp, "id_generation_failed", err)
		return Profile{}, svcerr.New(opSignUp, "id_generation_failed", err)
	}
	profileID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opSignUp, "id_generation_failed", err)
		return Profile{}, svcerr.New(opSignUp, "id_generation_failed", err)
	}

	profile := Profile{
		ID:            profileID,
		UserID:        userID,
		FullName:      request.FullName,
		AnonymousName: request.AnonymousName,
	}
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&Account{}).Where("email = ?", request.Email).Count(&existing).Error; err != nil {
			s.logError(opSignUp, "account_select_failed", err)
			return svcerr.New(opSignUp, "account_select_failed", err)
		}
		if existing > 0 {
			return svcerr.New(opSignUp, "email_registered", ErrEmailRegistered)
		}
		account := Account{UserID: userID, Email: request.Email, PasswordHash: passwordHash}
		if err := tx.Create(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return svcerr.New(opSignUp, "email_registered", ErrEmailRegistered)
			}
			s.logError(opSignUp, "account_insert_failed", err)
			return svcerr.New(opSignUp, "account_insert_failed", err)
		}
		if err := tx.Create(&profile).Error; err != nil {
			s.logError(opSignUp, "profile_insert_failed", err, zap.String("user_id", userID))
			return svcerr.New(opSignUp, "profile_insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return Profile{}, txErr
	}

	s.cache.Store(userID, profile)
	return profile, nil
}

// SignIn verifies the credentials and returns the matching profile.
func (s *Service) SignIn(ctx context.Context, email, password string) (Profile, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Profile{}, svcerr.New(opSignIn, "invalid_credentials", ErrInvalidCredentials)
	}

	var account Account
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, svcerr.New(opSignIn, "invalid_credentials", ErrInvalidCredentials)
	}
	if err != nil {
		s.logError(opSignIn, "account_select_failed", err)
		return Profile{}, svcerr.New(opSignIn, "account_select_failed", err)
	}

	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return Profile{}, svcerr.New(opSignIn, "invalid_credentials", ErrInvalidCredentials)
		}
		s.logError(opSignIn, "compare_failed", err, zap.String("user_id", account.UserID))
		return Profile{}, svcerr.New(opSignIn, "compare_failed", err)
	}

	return s.Profile(ctx, account.UserID)
}

// Profile returns the profile for the user. Profiles never change after sign-up, so they are cached.
func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	userID = normalize(userID)
	if userID == "" {
		return Profile{}, svcerr.New(opProfile, "missing_user_id", errMissingUserID)
	}
	if cached, ok := s.cache.Load(userID); ok {
		if profile, ok := cached.(Profile); ok {
			return profile, nil
		}
	}

	var profile Profile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, svcerr.New(opProfile, "not_found", ErrProfileNotFound)
	}
	if err != nil {
		s.logError(opProfile, "query_failed", err, zap.String("user_id", userID))
		return Profile{}, svcerr.New(opProfile, "query_failed", err)
	}

	s.cache.Store(userID, profile)
	return profile, nil
}

// AnonymousName returns the name shown on the user's community posts.
func (s *Service) AnonymousName(ctx context.Context, userID string) (string, error) {
	profile, err := s.Profile(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return "", svcerr.New(opAnonymousName, "not_found", ErrProfileNotFound)
		}
		return "", err
	}
	return profile.AnonymousName, nil
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
	s.logger.Error("users service error", attrs...)
}
