package models

import "time"

// EmailVerification is a single issued one-time activation code. Records are
// never deleted once consumed or expired; they remain as an audit trail and
// are removed only through the cascade when their owning user is deleted.
type EmailVerification struct {
	BaseModel

	UserID    string    `gorm:"type:uuid;not null;index:idx_verifications_user_code" json:"user_id"`
	Code      string    `gorm:"not null;index:idx_verifications_user_code" json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	IsUsed    bool      `gorm:"default:false" json:"is_used"`
}
