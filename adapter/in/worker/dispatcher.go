package worker

import (
	"context"

	"github.com/goccy/go-json"

	"campaign_worker/pkg/logger"
)

type Handler struct {
	campaignProcessor *CampaignProcessor
	replyProcessor    *ReplyProcessor
}

func NewHandler(campaignProcessor *CampaignProcessor, replyProcessor *ReplyProcessor) *Handler {
	return &Handler{
		campaignProcessor: campaignProcessor,
		replyProcessor:    replyProcessor,
	}
}

func (h *Handler) Process(ctx context.Context, msg *Message) error {
	logger.Debug("Processing message: %s", msg.Type)

	switch msg.Type {
	// Campaign jobs
	case JobCampaignSend:
		return h.campaignProcessor.ProcessSend(ctx, msg)

	// Reply jobs
	case JobReplyCheck:
		return h.replyProcessor.ProcessCheckAll(ctx, msg)
	case JobReplyCheckUser:
		return h.replyProcessor.ProcessCheckUser(ctx, msg)

	default:
		logger.Warn("Unknown job type: %s", msg.Type)
		return nil
	}
}

func ParsePayload[T any](msg *Message) (*T, error) {
	var payload T
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
