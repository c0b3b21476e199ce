// Package campaign drives one bulk-send campaign to completion.
package campaign

import (
	"context"
	"time"

	"campaign_worker/core/domain"
	"campaign_worker/core/port/out"
	"campaign_worker/core/service/auth"
	"campaign_worker/core/service/render"
	"campaign_worker/pkg/apperr"
	"campaign_worker/pkg/logger"
)

// Config controls paging and throttling. The zero value is filled with
// the production defaults.
type Config struct {
	PageSize        int
	TokenCheckEvery int
	SendDelay       time.Duration
	PageDelay       time.Duration
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.TokenCheckEvery <= 0 {
		cfg.TokenCheckEvery = 20
	}
	return cfg
}

// Runner executes campaign send jobs. One Run owns its whole iteration
// state; nothing is shared across concurrent runs.
type Runner struct {
	backend  out.Backend
	provider out.EmailProvider
	tokens   *auth.TokenService
	cfg      Config
	log      *logger.Logger
}

func NewRunner(backend out.Backend, provider out.EmailProvider, tokens *auth.TokenService, cfg Config) *Runner {
	return &Runner{
		backend:  backend,
		provider: provider,
		tokens:   tokens,
		cfg:      cfg.withDefaults(),
		log:      logger.WithField("component", "campaign_runner"),
	}
}

// Run drives the job to completion. Per-contact send/log failures are
// counted and skipped; token refresh, template fetch and contact page
// failures mark the campaign failed and propagate.
func (r *Runner) Run(ctx context.Context, job *domain.CampaignJob) (*domain.CampaignResult, error) {
	log := r.log.WithFields(map[string]any{
		"campaign_id": job.CampaignID,
		"user_id":     job.UserID,
	})

	// Status webhooks are best-effort side reporting.
	if err := r.backend.UpdateCampaignStatus(ctx, job.UserID, job.CampaignID, domain.CampaignRunning, ""); err != nil {
		log.WithError(err).Warn("failed to mark campaign running")
	}

	token, err := r.tokens.GetValidAccessToken(ctx, job.Token)
	if err != nil {
		return nil, r.fail(ctx, job, log, err)
	}

	tmpl, err := r.backend.GetTemplate(ctx, job.UserID, job.TemplateID)
	if err != nil {
		return nil, r.fail(ctx, job, log, apperr.TemplateFetch(err, job.TemplateID))
	}

	var (
		page      = 1
		total     int
		processed int
		sent      int
		failed    int
		attempts  int
	)

	for {
		contacts, err := r.backend.GetContacts(ctx, job.UserID, job.ContactSourceID, page, r.cfg.PageSize)
		if err != nil {
			return nil, r.fail(ctx, job, log, apperr.ContactFetch(err, page))
		}
		if page == 1 {
			total = contacts.Total
		}

		for i := range contacts.Contacts {
			contact := &contacts.Contacts[i]
			attempts++

			if attempts%r.cfg.TokenCheckEvery == 0 {
				token, err = r.tokens.GetValidAccessToken(ctx, token)
				if err != nil {
					return nil, r.fail(ctx, job, log, err)
				}
			}

			subject := render.Render(tmpl.Subject, contact)
			body := render.Render(tmpl.Body, contact)

			result := r.provider.Send(ctx, token.AccessToken, &out.SendRequest{
				To:      contact.Email,
				Subject: subject,
				Body:    body,
			})
			processed++

			entry := &out.EmailLogEntry{
				CampaignID:   job.CampaignID,
				ContactID:    contact.ID,
				ContactEmail: contact.Email,
				SentAt:       time.Now(),
			}

			if result.Success {
				entry.Status = "sent"
				entry.MessageID = result.MessageID
				entry.ThreadID = result.ThreadID
				if err := r.backend.LogEmail(ctx, job.UserID, entry); err != nil {
					// A send whose outcome could not be recorded counts
					// as failed: the backend never learns it went out.
					failed++
					log.WithError(err).Warn("failed to log sent email for %s", contact.Email)
				} else {
					sent++
				}
			} else {
				failed++
				entry.Status = "failed"
				entry.Error = result.Error
				log.Warn("send to %s failed: %s", contact.Email, result.Error)
				if err := r.backend.LogEmail(ctx, job.UserID, entry); err != nil {
					log.WithError(err).Warn("failed to log failed email for %s", contact.Email)
				}
			}

			if r.cfg.SendDelay > 0 {
				time.Sleep(r.cfg.SendDelay)
			}
		}

		if err := r.backend.UpdateCampaignProgress(ctx, job.UserID, job.CampaignID, processed, sent, failed); err != nil {
			log.WithError(err).Warn("failed to push progress update")
		}

		if len(contacts.Contacts) < r.cfg.PageSize {
			break
		}
		if r.cfg.PageDelay > 0 {
			time.Sleep(r.cfg.PageDelay)
		}
		page++
	}

	if err := r.backend.UpdateCampaignStatus(ctx, job.UserID, job.CampaignID, domain.CampaignCompleted, ""); err != nil {
		log.WithError(err).Warn("failed to mark campaign completed")
	}

	log.Info("campaign finished: %d sent, %d failed of %d", sent, failed, total)

	return &domain.CampaignResult{
		Success: true,
		Sent:    sent,
		Failed:  failed,
		Total:   total,
	}, nil
}

// fail marks the campaign failed at the backend and returns the causing
// error for the task infrastructure to record.
func (r *Runner) fail(ctx context.Context, job *domain.CampaignJob, log *logger.Logger, cause error) error {
	log.WithError(cause).Error("campaign run aborted")
	if err := r.backend.UpdateCampaignStatus(ctx, job.UserID, job.CampaignID, domain.CampaignFailed, cause.Error()); err != nil {
		log.WithError(err).Warn("failed to mark campaign failed")
	}
	return cause
}
