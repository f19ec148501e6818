package models

import (
	"time"

	"gorm.io/gorm"
)

// Loyalty test statuses. Transitions are monotonic:
// pending -> active (payment) -> expired (TTL elapsed).
const (
	LoyaltyStatusPending = "pending"
	LoyaltyStatusActive  = "active"
	LoyaltyStatusExpired = "expired"
)

// Loyalty message directions
const (
	DirectionOutbound = "outbound" // user -> target
	DirectionInbound  = "inbound"  // target -> user
)

// LoyaltyUser is an account for the loyalty-test feature
type LoyaltyUser struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"not null" json:"name"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	Phone        string         `gorm:"not null" json:"phone"`
	PasswordHash string         `gorm:"not null" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the LoyaltyUser model
func (LoyaltyUser) TableName() string {
	return "loyalty_users"
}

// LoyaltyTest is one purchase-gated chat session against a target contact.
// The stored status is a cache: it is recomputed from paid_at/expires_at on
// every read and persisted when the TTL has elapsed.
type LoyaltyTest struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	UserID       uint        `gorm:"not null;index" json:"user_id"`
	User         LoyaltyUser `gorm:"foreignKey:UserID" json:"-"`
	TargetPhone  string      `gorm:"not null;index" json:"target_phone"`
	FirstMessage string      `gorm:"type:text;not null" json:"first_message"`
	Status       string      `gorm:"not null;default:'pending'" json:"status"`
	SaleID       *string     `json:"sale_id,omitempty"`
	PaidAt       *time.Time  `json:"paid_at,omitempty"`
	ExpiresAt    *time.Time  `json:"expires_at,omitempty"` // paid_at + access TTL
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// TableName specifies the table name for the LoyaltyTest model
func (LoyaltyTest) TableName() string {
	return "loyalty_tests"
}

// IsActive reports whether the test is paid and its access window has not
// elapsed. This is the authoritative check; the stored status only caches it.
func (t *LoyaltyTest) IsActive(now time.Time) bool {
	if t.Status != LoyaltyStatusActive {
		return false
	}
	if t.ExpiresAt == nil {
		return false
	}
	return now.Before(*t.ExpiresAt)
}

// LoyaltyMessage is one chat line in a loyalty test. Append-only.
type LoyaltyMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TestID    uint      `gorm:"not null;index" json:"test_id"`
	Direction string    `gorm:"not null" json:"direction"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Blurred   bool      `gorm:"-" json:"blurred"` // computed per read from the owning test's state
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the LoyaltyMessage model
func (LoyaltyMessage) TableName() string {
	return "loyalty_messages"
}
