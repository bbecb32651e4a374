package model

import "time"

// Tag names created automatically by the reply pipeline.
const (
	TagNewContact    = "New contact"
	TagOOOSubstitute = "OOO substitute"
)

// Tag is a named label attached to leads.
type Tag struct {
	ID          uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string `json:"name" gorm:"type:varchar(128);not null;uniqueIndex"`
	Color       string `json:"color" gorm:"type:varchar(16)"`
	Description string `json:"description" gorm:"type:varchar(255)"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Tag
func (Tag) TableName() string {
	return "tags"
}

// LeadTag joins a Tag to a Lead.
type LeadTag struct {
	ID     uint `json:"id" gorm:"primaryKey;autoIncrement"`
	LeadID uint `json:"lead_id" gorm:"not null;uniqueIndex:idx_lead_tag"`
	TagID  uint `json:"tag_id" gorm:"not null;uniqueIndex:idx_lead_tag"`

	CreatedAt time.Time `json:"created_at"`

	Tag *Tag `json:"tag,omitempty" gorm:"foreignKey:TagID"`
}

// TableName specifies the table name for LeadTag
func (LeadTag) TableName() string {
	return "lead_tags"
}
