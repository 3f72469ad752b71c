package users

import (
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	maxEmailLength         = 255
	minPasswordLength      = 6
	maxPasswordLength      = 128
	minFullNameLength      = 2
	maxFullNameLength      = 100
	minAnonymousNameLength = 2
	maxAnonymousNameLength = 50
)

var (
	ErrInvalidEmail         = errors.New("users: please enter a valid email address")
	ErrInvalidPassword      = errors.New("users: password must be between 6 and 128 characters")
	ErrPasswordsDiffer      = errors.New("users: passwords do not match")
	ErrInvalidFullName      = errors.New("users: full name must be between 2 and 100 characters")
	ErrInvalidAnonymousName = errors.New("users: anonymous name must be between 2 and 50 characters")
)

// SignUpRequest carries the fields of the sign-up form.
type SignUpRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	RepeatPassword string `json:"repeat_password"`
	FullName       string `json:"full_name"`
	AnonymousName  string `json:"anonymous_name"`
}

func (r SignUpRequest) normalized() SignUpRequest {
	return SignUpRequest{
		Email:          normalizeEmail(r.Email),
		Password:       r.Password,
		RepeatPassword: r.RepeatPassword,
		FullName:       normalize(r.FullName),
		AnonymousName:  normalize(r.AnonymousName),
	}
}

// validate expects a normalized request.
func (r SignUpRequest) validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if err := validatePassword(r.Password); err != nil {
		return err
	}
	if r.RepeatPassword != "" && r.RepeatPassword != r.Password {
		return ErrPasswordsDiffer
	}
	if !withinLength(r.FullName, minFullNameLength, maxFullNameLength) {
		return ErrInvalidFullName
	}
	if !withinLength(r.AnonymousName, minAnonymousNameLength, maxAnonymousNameLength) {
		return ErrInvalidAnonymousName
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" || len(email) > maxEmailLength {
		return ErrInvalidEmail
	}
	address, err := mail.ParseAddress(email)
	if err != nil || address.Address != email {
		return ErrInvalidEmail
	}
	domain := email[strings.LastIndex(email, "@")+1:]
	if !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return ErrInvalidEmail
	}
	return nil
}

func validatePassword(password string) error {
	if !withinLength(password, minPasswordLength, maxPasswordLength) {
		return ErrInvalidPassword
	}
	return nil
}

func withinLength(value string, min, max int) bool {
	length := utf8.RuneCountInString(value)
	return length >= min && length <= max
}
