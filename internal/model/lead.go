package model

import (
	"time"

	"gorm.io/gorm"
)

// Lead statuses. A blocked lead holds no campaign memberships.
const (
	LeadStatusActive  = "ACTIVE"
	LeadStatusBlocked = "BLOCKED"
)

// Lead represents a prospect contact targeted by outbound campaigns.
type Lead struct {
	ID    uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Email string `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`

	FirstName *string `json:"first_name,omitempty" gorm:"type:varchar(128)"`
	LastName  *string `json:"last_name,omitempty" gorm:"type:varchar(128)"`
	Title     *string `json:"title,omitempty" gorm:"type:varchar(255)"`

	Company        *string `json:"company,omitempty" gorm:"type:varchar(255)"`
	Industry       *string `json:"industry,omitempty" gorm:"type:varchar(255)"`
	WebsiteURL     *string `json:"website_url,omitempty" gorm:"type:varchar(512)"`
	CompanyCity    *string `json:"company_city,omitempty" gorm:"type:varchar(128)"`
	CompanyCountry *string `json:"company_country,omitempty" gorm:"type:varchar(128)"`
	LinkedinURL    *string `json:"linkedin_url,omitempty" gorm:"type:varchar(512)"`

	Language     string  `json:"language" gorm:"type:varchar(8);default:'pl'"`
	GreetingForm *string `json:"greeting_form,omitempty" gorm:"type:varchar(128)"`

	Status        string       `json:"status" gorm:"type:varchar(16);not null;default:'ACTIVE';index"`
	BlockedReason *BlockReason `json:"blocked_reason,omitempty" gorm:"type:varchar(32)"`
	BlockedAt     *time.Time   `json:"blocked_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	Memberships []CampaignLead `json:"memberships,omitempty" gorm:"foreignKey:LeadID"`
	Tags        []LeadTag      `json:"tags,omitempty" gorm:"foreignKey:LeadID"`
}

// TableName specifies the table name for Lead
func (Lead) TableName() string {
	return "leads"
}

// IsBlocked reports whether the lead is blocked.
func (l *Lead) IsBlocked() bool {
	return l.Status == LeadStatusBlocked
}

// FullName joins first and last name, skipping missing parts.
func (l *Lead) FullName() string {
	name := ""
	if l.FirstName != nil {
		name = *l.FirstName
	}
	if l.LastName != nil {
		if name != "" {
			name += " "
		}
		name += *l.LastName
	}
	return name
}
