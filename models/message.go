package models

import "time"

// Message represents one unit of content belonging to an order. Messages are
// append-only; only the delivery flags and the audio asset key are mutated
// after creation.
type Message struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	OrderID        uint       `gorm:"not null;uniqueIndex:idx_order_message_index" json:"order_id"`
	Order          Order      `gorm:"foreignKey:OrderID" json:"-"`
	MessageIndex   int        `gorm:"not null;uniqueIndex:idx_order_message_index" json:"message_index"` // 0-based delivery order
	Content        string     `gorm:"type:text;not null" json:"content"`
	AudioText      *string    `gorm:"type:text" json:"audio_text,omitempty"` // narration source text, nil for text-only
	AudioKey       *string    `json:"audio_key,omitempty"`                   // blob key of the synthesized audio
	AudioPending   bool       `gorm:"not null;default:false" json:"audio_pending"` // synthesis in flight; delivery waits
	SenderNickname string     `json:"sender_nickname"`
	ScheduledAt    *time.Time `gorm:"index:idx_messages_due" json:"scheduled_at,omitempty"` // nil = deliver immediately
	Delivered      bool       `gorm:"not null;default:false;index:idx_messages_due" json:"delivered"`
	Failed         bool       `gorm:"not null;default:false" json:"failed"` // terminal after too many attempts
	Attempts       int        `gorm:"not null;default:0" json:"attempts"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the Message model
func (Message) TableName() string {
	return "messages"
}
