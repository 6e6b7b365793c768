package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusSuspended Status = "suspended"
	StatusBanned    Status = "banned"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// User is the durable account record. Password hash and recovery secrets are
// never serialized into responses.
type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UUID            string             `bson:"uuid" json:"uuid"`
	Username        string             `bson:"username" json:"username"`
	Email           string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone           string             `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash    string             `bson:"password_hash" json:"-"`
	Status          Status             `bson:"status" json:"status"`
	Role            Role               `bson:"role" json:"role"`
	LoginAttempts   int                `bson:"login_attempts" json:"-"`
	LockUntil       *time.Time         `bson:"lock_until,omitempty" json:"-"`
	LastLogin       *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	TwoFactorSecret string             `bson:"two_factor_secret,omitempty" json:"-"`
	ResetToken      string             `bson:"reset_password_token,omitempty" json:"-"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// LockedUntil reports whether the account is temporarily locked at now.
func (u *User) LockedUntil(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "beginner"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceAdvanced     ExperienceLevel = "advanced"
)

// UserProfile is 1:1 with User and created in the same transaction.
type UserProfile struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"user_id" json:"user_id"`
	FirstName       string             `bson:"first_name" json:"first_name"`
	LastName        string             `bson:"last_name" json:"last_name"`
	ExperienceLevel ExperienceLevel    `bson:"experience_level" json:"experience_level"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// PendingProfile is the draft collected at the details step. It lives only in
// the session store, keyed by the primary identifier.
type PendingProfile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}
