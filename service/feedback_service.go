package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/theredlobstercartel/tinyfeedback-sub000/model"
	"github.com/theredlobstercartel/tinyfeedback-sub000/util"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrFeedbackNotFound = errors.New("feedback not found")

type FeedbackService struct {
	db *gorm.DB
}

func NewFeedbackService(db *gorm.DB) *FeedbackService {
	return &FeedbackService{db: db}
}

// ListFilter narrows the feedback listing. From/To bound created_at.
type ListFilter struct {
	Type   string
	Status string
	From   *time.Time
	To     *time.Time
}

// ListResult is one page plus the cursor for the next one, empty when
// no more rows exist.
type ListResult struct {
	Items      []model.Feedback
	NextCursor string
}

// CreateFeedback inserts the already-validated row. Callers increment
// the project counters only after this succeeds.
func (s *FeedbackService) CreateFeedback(feedback *model.Feedback) error {
	if err := s.db.Create(feedback).Error; err != nil {
		return fmt.Errorf("failed to create feedback: %v", err)
	}
	return nil
}

func (s *FeedbackService) GetFeedback(projectID uint, id string) (*model.Feedback, error) {
	var feedback model.Feedback
	err := s.db.Where("project_id = ? AND id = ?", projectID, id).First(&feedback).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFeedbackNotFound
		}
		return nil, fmt.Errorf("failed to get feedback: %v", err)
	}
	return &feedback, nil
}

// ListFeedbacks pages through a project's feedback, newest first.
// Cursor and page/limit can be combined; the cursor positions after the
// row it encodes. One extra row is fetched to decide whether a next
// cursor exists.
func (s *FeedbackService) ListFeedbacks(projectID uint, filter ListFilter, cursor *util.Cursor, page, limit int) (*ListResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	q := s.db.Where("project_id = ?", projectID)
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", filter.To)
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	} else if page > 1 {
		q = q.Offset((page - 1) * limit)
	}

	var items []model.Feedback
	err := q.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query feedbacks: %v", err)
	}

	result := &ListResult{Items: items}
	if len(items) > limit {
		result.Items = items[:limit]
		last := result.Items[limit-1]
		result.NextCursor = util.EncodeCursor(util.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return result, nil
}

// UpdateFeedback applies a PATCH: only status and priority are honored.
// A status change appends exactly one history entry; a priority-only
// update leaves the history untouched. Returns the updated row.
func (s *FeedbackService) UpdateFeedback(projectID uint, id string, req model.UpdateFeedbackRequest, changedBy string) (*model.Feedback, error) {
	feedback, err := s.GetFeedback(projectID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Status != "" && req.Status != feedback.Status {
		updates["status"] = req.Status
		updates["status_history"] = appendStatusChange(feedback.StatusHistory, model.StatusChange{
			Status:    req.Status,
			ChangedBy: changedBy,
			ChangedAt: time.Now(),
		})
	}
	if req.Priority != "" && req.Priority != feedback.Priority {
		updates["priority"] = req.Priority
	}
	if len(updates) == 0 {
		return feedback, nil
	}

	if err := s.db.Model(feedback).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update feedback: %v", err)
	}
	return s.GetFeedback(projectID, id)
}

// SetInternalNotes stores operator-only notes. Notes never touch the
// status history.
func (s *FeedbackService) SetInternalNotes(projectID uint, id string, notes string) (*model.Feedback, error) {
	feedback, err := s.GetFeedback(projectID, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(feedback).Update("internal_notes", notes).Error; err != nil {
		return nil, fmt.Errorf("failed to update internal notes: %v", err)
	}
	feedback.InternalNotes = notes
	return feedback, nil
}

func (s *FeedbackService) DeleteFeedback(projectID uint, id string) error {
	res := s.db.Where("project_id = ? AND id = ?", projectID, id).Delete(&model.Feedback{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete feedback: %v", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrFeedbackNotFound
	}
	return nil
}

func appendStatusChange(history datatypes.JSON, change model.StatusChange) datatypes.JSON {
	var entries []model.StatusChange
	if len(history) > 0 {
		// corrupt history reads as empty rather than blocking the update
		_ = json.Unmarshal(history, &entries)
	}
	entries = append(entries, change)
	raw, err := json.Marshal(entries)
	if err != nil {
		return history
	}
	return datatypes.JSON(raw)
}
