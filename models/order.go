package models

import (
	"time"

	"gorm.io/gorm"
)

// Order lifecycle statuses. Pending orders were created but not yet paid;
// delivered, refunded and canceled are terminal.
const (
	OrderStatusPending   = "pending"
	OrderStatusApproved  = "approved"
	OrderStatusSubmitted = "submitted"
	OrderStatusDelivered = "delivered"
	OrderStatusRefunded  = "refunded"
	OrderStatusCanceled  = "canceled"
)

// Order represents one purchased plan instance awaiting message delivery
type Order struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	SaleID         *string        `gorm:"uniqueIndex" json:"sale_id"` // commerce-provider sale identifier, nullable
	Plan           PlanType       `gorm:"not null" json:"plan"`
	Status         string         `gorm:"not null;default:'pending'" json:"status"`
	BuyerName      string         `json:"buyer_name"`
	BuyerEmail     string         `json:"buyer_email"`
	BuyerPhone     string         `gorm:"index" json:"buyer_phone"`
	RecipientPhone string         `json:"recipient_phone"`
	FormToken      string         `gorm:"uniqueIndex;not null" json:"form_token"` // single-use-context secret for the form link
	MessagesSent   int            `gorm:"not null;default:0" json:"messages_sent"`
	IsTest         bool           `gorm:"not null;default:false" json:"is_test"`
	DeliveredAt    *time.Time     `json:"delivered_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// IsTerminal reports whether the order is in a terminal lifecycle state
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusDelivered, OrderStatusRefunded, OrderStatusCanceled:
		return true
	}
	return false
}
