package service

import (
	"fmt"

	"github.com/theredlobstercartel/tinyfeedback-sub000/model"

	"github.com/resend/resend-go/v2"
	log "github.com/sirupsen/logrus"
)

// Notifier tells a project owner about new feedback. The abstraction
// keeps handlers testable without an outbound email provider.
type Notifier interface {
	NotifyNewFeedback(project *model.Project, feedback *model.Feedback)
}

// EmailNotifier sends through Resend. Failures are logged and dropped;
// a notification must never fail a submission.
type EmailNotifier struct {
	client *resend.Client
	from   string
}

func NewEmailNotifier(apiKey, from string) *EmailNotifier {
	return &EmailNotifier{client: resend.NewClient(apiKey), from: from}
}

func (n *EmailNotifier) NotifyNewFeedback(project *model.Project, feedback *model.Feedback) {
	if project.OwnerEmail == "" {
		return
	}

	summary := feedback.Description
	if feedback.Type == model.FeedbackTypeNPS && feedback.NpsScore != nil {
		summary = fmt.Sprintf("Score %d/10. %s", *feedback.NpsScore, feedback.Comment)
	}

	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{project.OwnerEmail},
		Subject: fmt.Sprintf("New %s feedback on %s", feedback.Type, project.Name),
		Html: fmt.Sprintf(`
			<div style="font-family: sans-serif; max-width: 480px; margin: 0 auto; padding: 24px;">
				<h2 style="color: #333;">New feedback received</h2>
				<p><strong>Type:</strong> %s</p>
				<p>%s</p>
				<p style="color: #888; font-size: 14px; margin-top: 16px;">
					Open your dashboard to triage it.
				</p>
			</div>
		`, feedback.Type, summary),
	}

	sent, err := n.client.Emails.Send(params)
	if err != nil {
		log.WithError(err).Warn("failed to send feedback notification email")
		return
	}
	log.WithField("email_id", sent.Id).Debug("feedback notification sent")
}

// NoopNotifier is used when no email provider is configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyNewFeedback(*model.Project, *model.Feedback) {}
