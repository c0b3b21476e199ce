package worker

import (
	"context"
	"time"

	"campaign_worker/core/domain"
	"campaign_worker/core/port/out"
	"campaign_worker/core/service/auth"
	"campaign_worker/core/service/campaign"
	"campaign_worker/pkg/apperr"
	"campaign_worker/pkg/logger"
)

// BackendFactory resolves the backend client for a job. Jobs may carry a
// backend URL override; an empty string means the configured default.
type BackendFactory func(baseURL string) out.Backend

// CampaignProcessor handles campaign.send jobs.
type CampaignProcessor struct {
	backendFor BackendFactory
	provider   out.EmailProvider
	tokens     *auth.TokenService
	cfg        campaign.Config
	log        *logger.Logger
}

func NewCampaignProcessor(backendFor BackendFactory, provider out.EmailProvider, tokens *auth.TokenService, cfg campaign.Config) *CampaignProcessor {
	return &CampaignProcessor{
		backendFor: backendFor,
		provider:   provider,
		tokens:     tokens,
		cfg:        cfg,
		log:        logger.WithField("component", "campaign_processor"),
	}
}

func (p *CampaignProcessor) ProcessSend(ctx context.Context, msg *Message) error {
	payload, err := ParsePayload[CampaignSendPayload](msg)
	if err != nil {
		return apperr.BadRequest("invalid campaign.send payload: " + err.Error())
	}
	if payload.CampaignID == "" || payload.UserID == "" {
		return apperr.BadRequest("campaign.send requires campaign_id and user_id")
	}
	if payload.AccessToken == "" {
		return apperr.BadRequest("campaign.send requires an access token")
	}

	job := &domain.CampaignJob{
		CampaignID:      payload.CampaignID,
		UserID:          payload.UserID,
		ContactSourceID: payload.ContactSourceID,
		TemplateID:      payload.TemplateID,
		Token: domain.TokenInfo{
			AccessToken:  payload.AccessToken,
			RefreshToken: payload.RefreshToken,
		},
		BackendURL: payload.BackendURL,
	}
	if payload.TokenExpiry != "" {
		expiry, err := time.Parse(time.RFC3339, payload.TokenExpiry)
		if err != nil {
			// An unreadable expiry behaves like a missing one: the token
			// is treated as valid until the provider rejects it.
			p.log.WithField("user_id", payload.UserID).Warn("unparseable token_expiry %q", payload.TokenExpiry)
		} else {
			job.Token.Expiry = expiry
		}
	}

	runner := campaign.NewRunner(p.backendFor(payload.BackendURL), p.provider, p.tokens, p.cfg)

	start := time.Now()
	result, err := runner.Run(ctx, job)
	if err != nil {
		// The runner already marked the campaign failed in the backend.
		// Retrying the job would re-send the emails that went out before
		// the abort, so the message is treated as handled.
		p.log.WithFields(map[string]any{
			"campaign_id": payload.CampaignID,
			"user_id":     payload.UserID,
		}).WithError(err).Error("campaign run aborted")
		return nil
	}

	p.log.WithFields(map[string]any{
		"campaign_id": payload.CampaignID,
		"user_id":     payload.UserID,
	}).WithDuration(time.Since(start)).Info("campaign send done: %d sent, %d failed of %d", result.Sent, result.Failed, result.Total)
	return nil
}
