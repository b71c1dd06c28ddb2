package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/theredlobstercartel/tinyfeedback-sub000/model"

	"gorm.io/gorm"
)

// QuotaConfig carries the plan-limit knobs from configuration.
type QuotaConfig struct {
	FreeMonthlyLimit     int
	FreeWarningThreshold int
	UpgradeURL           string
}

// QuotaStatus is the outcome of the plan-limit check before an insert.
// EffectiveMonthly already accounts for the lazy month rollover.
type QuotaStatus struct {
	Allowed          bool
	EffectiveMonthly int
	Limit            int
	IsWarning        bool
	UpgradeURL       string
}

type ProjectService struct {
	db    *gorm.DB
	quota QuotaConfig
}

func NewProjectService(db *gorm.DB, quota QuotaConfig) *ProjectService {
	return &ProjectService{db: db, quota: quota}
}

// projectColumns lists the minimal set the pipeline needs; the lookup
// must not over-fetch.
var projectColumns = []string{
	"id", "name", "api_key", "owner_email", "allowed_domains",
	"plan", "subscription_active", "feedbacks_count",
	"monthly_feedbacks_count", "monthly_feedbacks_reset_at", "max_feedbacks",
}

// GetProjectByAPIKey finds the project owning a key. A miss returns
// (nil, nil); only infrastructure faults surface as errors.
func (s *ProjectService) GetProjectByAPIKey(rawKey string) (*model.Project, error) {
	var project model.Project
	err := s.db.Select(projectColumns).Where("api_key = ?", rawKey).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up project by api key: %v", err)
	}
	if project.APIKey != rawKey {
		return nil, nil
	}
	return &project, nil
}

// AllowedDomains decodes the project's allowlist. A missing or corrupt
// column reads as empty, which means "allow all".
func (s *ProjectService) AllowedDomains(p *model.Project) []string {
	if len(p.AllowedDomains) == 0 {
		return nil
	}
	var domains []string
	if err := json.Unmarshal(p.AllowedDomains, &domains); err != nil {
		return nil
	}
	return domains
}

// OriginAllowed checks the request origin against the allowlist. Origin
// wins over Referer. Hostnames match exactly or as a subdomain of an
// allowed domain. An unparseable value degrades to a substring check.
func OriginAllowed(origin, referer string, allowedDomains []string) bool {
	if len(allowedDomains) == 0 {
		return true
	}

	source := origin
	if source == "" {
		source = referer
	}
	if source == "" {
		return false
	}

	host := ""
	if u, err := url.Parse(source); err == nil {
		host = u.Hostname()
	}

	for _, domain := range allowedDomains {
		domain = strings.TrimSpace(domain)
		if domain == "" {
			continue
		}
		if host != "" {
			if host == domain || strings.HasSuffix(host, "."+domain) {
				return true
			}
			continue
		}
		// parse failed, degrade to containment
		if strings.Contains(source, domain) {
			return true
		}
	}
	return false
}

// CheckQuota applies the plan limits before an insert. The monthly
// counter resets lazily: a stored reset stamp from a different calendar
// month means the effective count is zero. Active pro projects skip the
// monthly cap and are held to the lifetime max instead.
func (s *ProjectService) CheckQuota(p *model.Project, now time.Time) QuotaStatus {
	effective := p.MonthlyFeedbacksCount
	if monthRolledOver(p.MonthlyFeedbacksResetAt, now) {
		effective = 0
	}

	if p.IsPro() {
		return QuotaStatus{
			Allowed:          p.FeedbacksCount < p.MaxFeedbacks,
			EffectiveMonthly: effective,
			Limit:            p.MaxFeedbacks,
			UpgradeURL:       s.quota.UpgradeURL,
		}
	}

	limit := s.quota.FreeMonthlyLimit
	status := QuotaStatus{
		EffectiveMonthly: effective,
		Limit:            limit,
		UpgradeURL:       s.quota.UpgradeURL,
	}
	if effective >= limit {
		return status
	}
	status.Allowed = true
	status.IsWarning = effective+1 >= s.quota.FreeWarningThreshold
	return status
}

// RecordFeedback bumps both counters after a successful insert on the
// widget path. It re-writes the monthly count from the value read
// earlier in the request, so two concurrent submissions can overshoot
// the cap by one. That race is a known property of this path; the
// versioned API uses RecordFeedbackAtomic instead.
func (s *ProjectService) RecordFeedback(p *model.Project, now time.Time) error {
	effective := p.MonthlyFeedbacksCount
	if monthRolledOver(p.MonthlyFeedbacksResetAt, now) {
		effective = 0
	}
	updates := map[string]interface{}{
		"feedbacks_count":            gorm.Expr("feedbacks_count + 1"),
		"monthly_feedbacks_count":    effective + 1,
		"monthly_feedbacks_reset_at": now,
	}
	if err := s.db.Model(&model.Project{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update project counters: %v", err)
	}
	p.FeedbacksCount++
	p.MonthlyFeedbacksCount = effective + 1
	p.MonthlyFeedbacksResetAt = now
	return nil
}

// RecordFeedbackAtomic is the versioned-API counter update: one guarded
// UPDATE whose WHERE clause re-checks the limit, so concurrent requests
// cannot both slip under the cap. Returns false when the guard rejected
// the increment.
func (s *ProjectService) RecordFeedbackAtomic(p *model.Project, now time.Time) (bool, error) {
	rollover := monthRolledOver(p.MonthlyFeedbacksResetAt, now)

	tx := s.db.Model(&model.Project{}).Where("id = ?", p.ID)
	updates := map[string]interface{}{
		"feedbacks_count":            gorm.Expr("feedbacks_count + 1"),
		"monthly_feedbacks_reset_at": now,
	}
	switch {
	case rollover:
		updates["monthly_feedbacks_count"] = 1
	case p.IsPro():
		tx = tx.Where("feedbacks_count < max_feedbacks")
		updates["monthly_feedbacks_count"] = gorm.Expr("monthly_feedbacks_count + 1")
	default:
		tx = tx.Where("monthly_feedbacks_count < ?", s.quota.FreeMonthlyLimit)
		updates["monthly_feedbacks_count"] = gorm.Expr("monthly_feedbacks_count + 1")
	}

	res := tx.Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update project counters: %v", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	p.FeedbacksCount++
	if rollover {
		p.MonthlyFeedbacksCount = 1
	} else {
		p.MonthlyFeedbacksCount++
	}
	p.MonthlyFeedbacksResetAt = now
	return true, nil
}

func monthRolledOver(resetAt, now time.Time) bool {
	return resetAt.Month() != now.Month() || resetAt.Year() != now.Year()
}
