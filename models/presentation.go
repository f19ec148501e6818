package models

import "time"

// Presentation is the premium plan's shareable slideshow artifact
type Presentation struct {
	ID        string    `gorm:"primaryKey" json:"id"` // UUID, used in the public share link
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	Order     Order     `gorm:"foreignKey:OrderID" json:"-"`
	Title     string    `gorm:"not null" json:"title"`
	Slides    []Slide   `gorm:"foreignKey:PresentationID" json:"slides"`
	AudioKey  *string   `json:"audio_key,omitempty"`          // blob key of the optional narration track
	AudioURL  string    `gorm:"-" json:"audio_url,omitempty"` // computed field, public URL
	ViewCount int       `gorm:"not null;default:0" json:"view_count"` // increments on every fetch, never resets
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Presentation model
func (Presentation) TableName() string {
	return "presentations"
}

// Slide is one image + caption pair in a presentation. Slide order is fixed
// at creation.
type Slide struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	PresentationID string `gorm:"not null;index" json:"-"`
	Position       int    `gorm:"not null" json:"position"`
	ImageKey       string `gorm:"not null" json:"image_key"`
	ImageURL       string `gorm:"-" json:"image_url,omitempty"` // computed field, presigned URL
	Caption        string `json:"caption"`
}

// TableName specifies the table name for the Slide model
func (Slide) TableName() string {
	return "slides"
}
