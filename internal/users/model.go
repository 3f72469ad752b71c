package users

import (
	"strings"
	"time"
)

// Account holds sign-in credentials for a user.
type Account struct {
	UserID       string    `gorm:"column:user_id;primaryKey;size:64;not null"`
	Email        string    `gorm:"column:email;size:255;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;size:128;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName exposes the table backing accounts.
func (Account) TableName() string {
	return "accounts"
}

// Profile is the public-facing identity shown to other members.
type Profile struct {
	ID            string    `gorm:"column:id;primaryKey;size:64;not null" json:"id"`
	UserID        string    `gorm:"column:user_id;size:64;not null;uniqueIndex" json:"user_id"`
	FullName      string    `gorm:"column:full_name;size:100;not null" json:"full_name"`
	AnonymousName string    `gorm:"column:anonymous_name;size:50;not null" json:"anonymous_name"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName exposes the table backing profiles.
func (Profile) TableName() string {
	return "profiles"
}

// normalize value helper used across service implementation.
func normalize(value string) string {
	return strings.TrimSpace(value)
}

func normalizeEmail(value string) string {
	return strings.ToLower(normalize(value))
}
