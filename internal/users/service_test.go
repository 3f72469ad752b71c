package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mayursapkal41/MindNest/internal/identifier"
	"github.com/mayursapkal41/MindNest/internal/svcerr"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Account{}, &Profile{}); err != nil {
		t.Fatalf("failed to migrate user schema: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database:   db,
		IDProvider: &identifier.Sequence{Prefix: "user-"},
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

func validSignUp() SignUpRequest {
	return SignUpRequest{
		Email:          "  Quiet.Owl@Example.com ",
		Password:       "breathe-in",
		RepeatPassword: "breathe-in",
		FullName:       " Robin Vale ",
		AnonymousName:  " QuietOwl ",
	}
}

func TestSignUpCreatesAccountAndProfile(t *testing.T) {
	service := newTestService(t)

	profile, err := service.SignUp(context.Background(), validSignUp())
	if err != nil {
		t.Fatalf("sign up failed: %v", err)
	}
	if profile.UserID == "" || profile.ID == "" {
		t.Fatalf("expected identifiers, got %#v", profile)
	}
	if profile.FullName != "Robin Vale" || profile.AnonymousName != "QuietOwl" {
		t.Fatalf("expected trimmed names, got %#v", profile)
	}

	var account Account
	if err := service.db.Where("user_id = ?", profile.UserID).Take(&account).Error; err != nil {
		t.Fatalf("expected account row: %v", err)
	}
	if account.Email != "quiet.owl@example.com" {
		t.Fatalf("expected lower-cased email, got %q", account.Email)
	}
	if account.PasswordHash == "breathe-in" {
		t.Fatalf("expected password to be hashed")
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	service := newTestService(t)
	if _, err := service.SignUp(context.Background(), validSignUp()); err != nil {
		t.Fatalf("first sign up failed: %v", err)
	}

	duplicate := validSignUp()
	duplicate.Email = "quiet.owl@example.com"
	_, err := service.SignUp(context.Background(), duplicate)
	if !errors.Is(err, ErrEmailRegistered) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
	if code, ok := svcerr.CodeOf(err); !ok || code != "users.sign_up.email_registered" {
		t.Fatalf("unexpected error code %q", code)
	}
}

func TestSignUpValidation(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(*SignUpRequest)
		expected error
	}{
		{name: "bad-email", mutate: func(r *SignUpRequest) { r.Email = "not-an-email" }, expected: ErrInvalidEmail},
		{name: "email-without-tld", mutate: func(r *SignUpRequest) { r.Email = "owl@localhost" }, expected: ErrInvalidEmail},
		{name: "long-email", mutate: func(r *SignUpRequest) { r.Email = strings.Repeat("a", 250) + "@x.com" }, expected: ErrInvalidEmail},
		{name: "short-password", mutate: func(r *SignUpRequest) { r.Password, r.RepeatPassword = "12345", "12345" }, expected: ErrInvalidPassword},
		{name: "long-password", mutate: func(r *SignUpRequest) { r.Password, r.RepeatPassword = strings.Repeat("p", 129), "" }, expected: ErrInvalidPassword},
		{name: "repeat-mismatch", mutate: func(r *SignUpRequest) { r.RepeatPassword = "breathe-out" }, expected: ErrPasswordsDiffer},
		{name: "short-full-name", mutate: func(r *SignUpRequest) { r.FullName = " R " }, expected: ErrInvalidFullName},
		{name: "long-anonymous-name", mutate: func(r *SignUpRequest) { r.AnonymousName = strings.Repeat("n", 51) }, expected: ErrInvalidAnonymousName},
	}

	service := newTestService(t)
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := validSignUp()
			testCase.mutate(&request)
			_, err := service.SignUp(context.Background(), request)
			if !errors.Is(err, testCase.expected) {
				t.Fatalf("expected %v, got %v", testCase.expected, err)
			}
		})
	}
}

func TestSignInVerifiesCredentials(t *testing.T) {
	service := newTestService(t)
	created, err := service.SignUp(context.Background(), validSignUp())
	if err != nil {
		t.Fatalf("sign up failed: %v", err)
	}

	profile, err := service.SignIn(context.Background(), "QUIET.OWL@example.com", "breathe-in")
	if err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	if profile.UserID != created.UserID {
		t.Fatalf("expected %q, got %q", created.UserID, profile.UserID)
	}

	if _, err := service.SignIn(context.Background(), "quiet.owl@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for wrong password, got %v", err)
	}
	if _, err := service.SignIn(context.Background(), "nobody@example.com", "breathe-in"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
}

func TestProfileAndAnonymousName(t *testing.T) {
	service := newTestService(t)
	created, err := service.SignUp(context.Background(), validSignUp())
	if err != nil {
		t.Fatalf("sign up failed: %v", err)
	}

	// drop the cache so the lookup goes to the database.
	service.cache.Delete(created.UserID)

	name, err := service.AnonymousName(context.Background(), created.UserID)
	if err != nil {
		t.Fatalf("anonymous name lookup failed: %v", err)
	}
	if name != "QuietOwl" {
		t.Fatalf("unexpected anonymous name %q", name)
	}

	if _, err := service.Profile(context.Background(), "missing-user"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected profile not found, got %v", err)
	}
}

func TestSignUpAcceptsPasswordsBeyondBcryptLimit(t *testing.T) {
	service := newTestService(t)

	passwords := map[string]string{
		"long@example.com":  strings.Repeat("a", 100),
		"emoji@example.com": strings.Repeat("🌿🌙", 20),
	}
	for email, password := range passwords {
		request := validSignUp()
		request.Email = email
		request.AnonymousName = strings.Split(email, "@")[0] + "Owl"
		request.Password = password
		request.RepeatPassword = password
		if _, err := service.SignUp(context.Background(), request); err != nil {
			t.Fatalf("sign up with a %d-byte password failed: %v", len(password), err)
		}
		if _, err := service.SignIn(context.Background(), email, password); err != nil {
			t.Fatalf("sign in with a %d-byte password failed: %v", len(password), err)
		}
	}
}
