package service

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"time"

	"github.com/theredlobstercartel/tinyfeedback-sub000/model"
	"github.com/theredlobstercartel/tinyfeedback-sub000/util"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const maxAttachments = 5

// ValidateFeedbackPayload applies the per-type rules and returns a
// field-keyed map of messages. An empty map means the payload is valid.
func ValidateFeedbackPayload(req *model.CreateFeedbackRequest) map[string]string {
	errors := make(map[string]string)

	switch req.Type {
	case model.FeedbackTypeNPS:
		score := req.Content.Score
		if score == nil {
			// legacy widget embeds send the score at the top level
			score = req.NpsScore
		}
		if score == nil {
			errors["score"] = "Score is required for NPS feedback"
		} else if *score < 0 || *score > 10 {
			errors["score"] = "Score must be between 0 and 10"
		}
		if len(req.Content.Comment) > 500 {
			errors["comment"] = "Comment must be at most 500 characters"
		}
	case model.FeedbackTypeSuggestion:
		title := req.Content.Title
		if title == "" {
			title = req.Title
		}
		if l := len(title); l < 5 || l > 100 {
			errors["title"] = "Title must be between 5 and 100 characters"
		}
		if l := len(req.Content.Description); l < 20 || l > 2000 {
			errors["description"] = "Description must be between 20 and 2000 characters"
		}
		if req.Content.Category != "" && !contains(model.SuggestionCategories, req.Content.Category) {
			errors["category"] = fmt.Sprintf("Category must be one of %v", model.SuggestionCategories)
		}
	case model.FeedbackTypeBug:
		if l := len(req.Content.Description); l < 20 || l > 2000 {
			errors["description"] = "Description must be between 20 and 2000 characters"
		}
		if req.Content.ContactEmail != "" {
			if _, err := mail.ParseAddress(req.Content.ContactEmail); err != nil {
				errors["contact_email"] = "Contact email must be a valid email address"
			}
		}
	case "":
		errors["type"] = "Type is required"
	default:
		errors["type"] = "Type must be one of nps, suggestion, bug"
	}

	return errors
}

// BuildFeedback turns a validated request into the row to insert:
// sanitized text, filtered attachments, initial status and the seeded
// history entry.
func BuildFeedback(projectID uint, req *model.CreateFeedbackRequest, now time.Time) *model.Feedback {
	fb := &model.Feedback{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		Type:          req.Type,
		Title:         util.SanitizeText(req.Title),
		PageURL:       util.SanitizeText(req.PageURL),
		UserAgent:     util.SanitizeText(req.UserAgent),
		UserEmail:     util.SanitizeText(req.UserEmail),
		UserID:        util.SanitizeText(req.UserID),
		UserName:      util.SanitizeText(req.UserName),
		AnonymousID:   util.SanitizeText(req.AnonymousID),
		ScreenshotURL: util.SanitizeText(req.ScreenshotURL),
		Status:        model.StatusNew,
		Priority:      "medium",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	switch req.Type {
	case model.FeedbackTypeNPS:
		score := req.Content.Score
		if score == nil {
			score = req.NpsScore
		}
		fb.NpsScore = score
		fb.Comment = util.SanitizeText(req.Content.Comment)
	case model.FeedbackTypeSuggestion:
		title := req.Content.Title
		if title == "" {
			title = req.Title
		}
		fb.Title = util.SanitizeText(title)
		fb.Description = util.SanitizeText(req.Content.Description)
		fb.Category = req.Content.Category
	case model.FeedbackTypeBug:
		fb.Description = util.SanitizeText(req.Content.Description)
		fb.IncludeTechnicalInfo = true
		if req.Content.IncludeTechnicalInfo != nil {
			fb.IncludeTechnicalInfo = *req.Content.IncludeTechnicalInfo
		}
		fb.ContactEmail = util.SanitizeText(req.Content.ContactEmail)
	}

	if urls := util.FilterAttachmentURLs(req.AttachmentURLs, maxAttachments); len(urls) > 0 {
		if raw, err := json.Marshal(urls); err == nil {
			fb.AttachmentURLs = datatypes.JSON(raw)
		}
	}
	if len(req.Metadata) > 0 {
		if raw, err := json.Marshal(req.Metadata); err == nil {
			fb.Metadata = datatypes.JSON(raw)
		}
	}
	if len(req.TechnicalInfo) > 0 {
		if raw, err := json.Marshal(req.TechnicalInfo); err == nil {
			fb.TechnicalInfo = datatypes.JSON(raw)
		}
	}

	history := []model.StatusChange{{
		Status:    model.StatusNew,
		ChangedBy: "system",
		Note:      "Feedback created",
		ChangedAt: now,
	}}
	if raw, err := json.Marshal(history); err == nil {
		fb.StatusHistory = datatypes.JSON(raw)
	}

	return fb
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
