package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	FeedbackTypeNPS        = "nps"
	FeedbackTypeSuggestion = "suggestion"
	FeedbackTypeBug        = "bug"
)

const (
	StatusNew         = "new"
	StatusAnalyzing   = "analyzing"
	StatusRead        = "read"
	StatusImplemented = "implemented"
	StatusResponded   = "responded"
	StatusArchived    = "archived"
)

// SuggestionCategories is the fixed set accepted for the optional
// suggestion category field.
var SuggestionCategories = []string{"feature", "improvement", "integration", "design", "other"}

// FeedbackStatuses lists every valid workflow status.
var FeedbackStatuses = []string{
	StatusNew, StatusAnalyzing, StatusRead, StatusImplemented, StatusResponded, StatusArchived,
}

// FeedbackPriorities lists every valid triage priority.
var FeedbackPriorities = []string{"low", "medium", "high", "urgent"}

// StatusChange is one entry of the append-only status history log.
type StatusChange struct {
	Status    string    `json:"status"`
	ChangedBy string    `json:"changed_by"`
	Note      string    `json:"note,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

// Feedback is a single submitted item. Type is immutable after creation
// and decides which of the content columns are populated. InternalNotes
// is operator-only and never serialized to submitters.
type Feedback struct {
	ID        string `json:"id" gorm:"primaryKey;size:36"`
	ProjectID uint   `json:"project_id" gorm:"not null;index"`
	Type      string `json:"type" gorm:"size:20;not null"`

	// nps
	NpsScore *int   `json:"nps_score,omitempty"`
	Comment  string `json:"comment,omitempty" gorm:"size:500"`

	// suggestion / bug
	Title       string `json:"title,omitempty" gorm:"size:255"`
	Description string `json:"description,omitempty" gorm:"type:text"`
	Category    string `json:"category,omitempty" gorm:"size:50"`

	// bug
	IncludeTechnicalInfo bool   `json:"include_technical_info" gorm:"default:true"`
	ContactEmail         string `json:"contact_email,omitempty" gorm:"size:255"`

	PageURL       string `json:"page_url,omitempty" gorm:"size:2048"`
	UserAgent     string `json:"user_agent,omitempty" gorm:"size:512"`
	UserEmail     string `json:"user_email,omitempty" gorm:"size:255"`
	UserID        string `json:"user_id,omitempty" gorm:"size:255"`
	UserName      string `json:"user_name,omitempty" gorm:"size:255"`
	AnonymousID   string `json:"anonymous_id,omitempty" gorm:"size:255"`
	ScreenshotURL string `json:"screenshot_url,omitempty" gorm:"size:2048"`

	AttachmentURLs datatypes.JSON `json:"attachment_urls,omitempty"`
	Metadata       datatypes.JSON `json:"metadata,omitempty"`
	TechnicalInfo  datatypes.JSON `json:"technical_info,omitempty"`

	Status        string         `json:"status" gorm:"size:20;default:new;not null"`
	Priority      string         `json:"priority" gorm:"size:20;default:medium;not null"`
	StatusHistory datatypes.JSON `json:"status_history"`
	InternalNotes string         `json:"-" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Feedback) TableName() string {
	return "feedbacks"
}

// FeedbackContent is the type-discriminated payload of a submission.
// Which fields are required depends on the feedback type.
type FeedbackContent struct {
	Score                *int   `json:"score,omitempty"`
	Comment              string `json:"comment,omitempty"`
	Title                string `json:"title,omitempty"`
	Description          string `json:"description,omitempty"`
	Category             string `json:"category,omitempty"`
	IncludeTechnicalInfo *bool  `json:"include_technical_info,omitempty"`
	ContactEmail         string `json:"contact_email,omitempty"`
}

// CreateFeedbackRequest is the submission body shared by the widget
// endpoint and the versioned API. The widget additionally sends the
// legacy top-level nps_score, kept as a fallback for old embeds.
type CreateFeedbackRequest struct {
	ProjectID      uint                   `json:"project_id"`
	Type           string                 `json:"type"`
	Content        FeedbackContent        `json:"content"`
	NpsScore       *int                   `json:"nps_score,omitempty"`
	Title          string                 `json:"title,omitempty"`
	PageURL        string                 `json:"page_url,omitempty"`
	UserAgent      string                 `json:"user_agent,omitempty"`
	UserEmail      string                 `json:"user_email,omitempty"`
	UserID         string                 `json:"user_id,omitempty"`
	UserName       string                 `json:"user_name,omitempty"`
	AnonymousID    string                 `json:"anonymous_id,omitempty"`
	ScreenshotURL  string                 `json:"screenshot_url,omitempty"`
	AttachmentURLs []string               `json:"attachment_urls,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	TechnicalInfo  map[string]interface{} `json:"technical_info,omitempty"`
}

// UpdateFeedbackRequest carries the only two fields PATCH honors.
// Anything else in the body is dropped, not rejected.
type UpdateFeedbackRequest struct {
	Status   string `json:"status"`
	Priority string `json:"priority"`
}
