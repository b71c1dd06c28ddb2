package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/theredlobstercartel/tinyfeedback-sub000/model"
	"github.com/theredlobstercartel/tinyfeedback-sub000/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedFeedback(t *testing.T, svc *FeedbackService, projectID uint, createdAt time.Time) *model.Feedback {
	t.Helper()
	score := 8
	fb := BuildFeedback(projectID, &model.CreateFeedbackRequest{
		Type:    model.FeedbackTypeNPS,
		Content: model.FeedbackContent{Score: &score},
	}, createdAt)
	require.NoError(t, svc.CreateFeedback(fb))
	return fb
}

func TestCreateAndGetFeedback(t *testing.T) {
	svc := NewFeedbackService(newTestDB(t))
	fb := seedFeedback(t, svc, 1, time.Now())

	got, err := svc.GetFeedback(1, fb.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNew, got.Status)
	require.NotNil(t, got.NpsScore)
	assert.Equal(t, 8, *got.NpsScore)

	// scoped by project
	_, err = svc.GetFeedback(2, fb.ID)
	assert.ErrorIs(t, err, ErrFeedbackNotFound)
}

func TestListFeedbacksCursorPagination(t *testing.T) {
	svc := NewFeedbackService(newTestDB(t))
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedFeedback(t, svc, 1, base.Add(time.Duration(i)*time.Hour))
	}

	page1, err := svc.ListFeedbacks(1, ListFilter{}, nil, 1, 2)
	require.NoError(t, err)
	require.Len(t, page1.Items, 2)
	require.NotEmpty(t, page1.NextCursor, "more rows exist")

	cursor, ok := util.DecodeCursor(page1.NextCursor)
	require.True(t, ok)

	page2, err := svc.ListFeedbacks(1, ListFilter{}, cursor, 1, 2)
	require.NoError(t, err)
	require.Len(t, page2.Items, 2)

	// newest first, no overlap between pages
	assert.True(t, page1.Items[0].CreatedAt.After(page1.Items[1].CreatedAt))
	for _, a := range page1.Items {
		for _, b := range page2.Items {
			assert.NotEqual(t, a.ID, b.ID)
		}
	}

	cursor2, ok := util.DecodeCursor(page2.NextCursor)
	require.True(t, ok)
	page3, err := svc.ListFeedbacks(1, ListFilter{}, cursor2, 1, 2)
	require.NoError(t, err)
	require.Len(t, page3.Items, 1)
	assert.Empty(t, page3.NextCursor, "no rows beyond the last page")
}

func TestListFeedbacksFilters(t *testing.T) {
	db := newTestDB(t)
	svc := NewFeedbackService(db)
	now := time.Now()
	seedFeedback(t, svc, 1, now)

	bug := BuildFeedback(1, &model.CreateFeedbackRequest{
		Type:    model.FeedbackTypeBug,
		Content: model.FeedbackContent{Description: "the page crashes when saving drafts"},
	}, now)
	require.NoError(t, svc.CreateFeedback(bug))

	res, err := svc.ListFeedbacks(1, ListFilter{Type: model.FeedbackTypeBug}, nil, 1, 20)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, model.FeedbackTypeBug, res.Items[0].Type)

	res, err = svc.ListFeedbacks(1, ListFilter{Status: model.StatusArchived}, nil, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestUpdateFeedbackStatusAppendsHistory(t *testing.T) {
	svc := NewFeedbackService(newTestDB(t))
	fb := seedFeedback(t, svc, 1, time.Now())

	updated, err := svc.UpdateFeedback(1, fb.ID, model.UpdateFeedbackRequest{Status: model.StatusAnalyzing}, "api")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAnalyzing, updated.Status)

	var history []model.StatusChange
	require.NoError(t, json.Unmarshal(updated.StatusHistory, &history))
	require.Len(t, history, 2, "creation entry plus one change")
	assert.Equal(t, model.StatusAnalyzing, history[1].Status)
	assert.Equal(t, "api", history[1].ChangedBy)
	assert.False(t, history[1].ChangedAt.IsZero())
}

func TestUpdateFeedbackPriorityLeavesHistoryAlone(t *testing.T) {
	svc := NewFeedbackService(newTestDB(t))
	fb := seedFeedback(t, svc, 1, time.Now())

	updated, err := svc.UpdateFeedback(1, fb.ID, model.UpdateFeedbackRequest{Priority: "high"}, "api")
	require.NoError(t, err)
	assert.Equal(t, "high", updated.Priority)

	var history []model.StatusChange
	require.NoError(t, json.Unmarshal(updated.StatusHistory, &history))
	assert.Len(t, history, 1, "priority change must not touch the history")
}

func TestSetInternalNotes(t *testing.T) {
	svc := NewFeedbackService(newTestDB(t))
	fb := seedFeedback(t, svc, 1, time.Now())

	updated, err := svc.SetInternalNotes(1, fb.ID, "dup of earlier report")
	require.NoError(t, err)
	assert.Equal(t, "dup of earlier report", updated.InternalNotes)

	var history []model.StatusChange
	require.NoError(t, json.Unmarshal(updated.StatusHistory, &history))
	assert.Len(t, history, 1)

	// notes are never serialized to submitters
	raw, err := json.Marshal(updated)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "dup of earlier report")
}

func TestDeleteFeedback(t *testing.T) {
	svc := NewFeedbackService(newTestDB(t))
	fb := seedFeedback(t, svc, 1, time.Now())

	require.NoError(t, svc.DeleteFeedback(1, fb.ID))
	assert.ErrorIs(t, svc.DeleteFeedback(1, fb.ID), ErrFeedbackNotFound)
	_, err := svc.GetFeedback(1, fb.ID)
	assert.ErrorIs(t, err, ErrFeedbackNotFound)
}
