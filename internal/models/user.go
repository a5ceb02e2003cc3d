package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a registered account. Email is stored lowercased so the unique
// index enforces case-insensitive uniqueness at the storage layer.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	IsActive bool `gorm:"default:false" json:"is_active"`
	IsStaff  bool `gorm:"default:false" json:"is_staff"`

	Verifications []EmailVerification `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Sessions      []Session           `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
