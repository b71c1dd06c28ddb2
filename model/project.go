package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// Project is a tenant application registered with the service. The API key
// is an opaque string compared by exact match. AllowedDomains is a JSON
// array of hostnames; an empty list means any origin is accepted.
type Project struct {
	ID                      uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	Name                    string         `json:"name" gorm:"size:255;not null"`
	APIKey                  string         `json:"-" gorm:"column:api_key;uniqueIndex;size:255;not null"`
	OwnerEmail              string         `json:"owner_email" gorm:"size:255"`
	AllowedDomains          datatypes.JSON `json:"allowed_domains"`
	Plan                    string         `json:"plan" gorm:"size:20;default:free;not null"`
	SubscriptionActive      bool           `json:"subscription_active" gorm:"default:false"`
	FeedbacksCount          int            `json:"feedbacks_count" gorm:"default:0;not null"`
	MonthlyFeedbacksCount   int            `json:"monthly_feedbacks_count" gorm:"default:0;not null"`
	MonthlyFeedbacksResetAt time.Time      `json:"monthly_feedbacks_reset_at"`
	MaxFeedbacks            int            `json:"max_feedbacks" gorm:"default:10000;not null"`
	CreatedAt               time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt               time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Project) TableName() string {
	return "projects"
}

// IsPro reports whether the project is on a paid plan with an active
// subscription. Pro projects skip the monthly cap and the widget-side
// domain restriction applies to them.
func (p *Project) IsPro() bool {
	return p.Plan == PlanPro && p.SubscriptionActive
}
