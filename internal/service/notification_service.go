package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-tracker/internal/config"
	"github.com/spec-kit/sla-tracker/internal/events"
)

// NotificationService mirrors domain events to secondary channels. Email
// delivery to responsible parties happens synchronously in the alert
// engine; this subscriber only handles the passive webhook/audit side.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.MailConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.MailConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRequestCreated, n.handleRequestChanged)
	n.dispatcher.Subscribe(events.EventRequestUpdated, n.handleRequestChanged)
	n.dispatcher.Subscribe(events.EventBatchIngested, n.handleBatchIngested)
	n.dispatcher.Subscribe(events.EventAlertEscalated, n.handleAlertEscalated)
	n.dispatcher.Subscribe(events.EventDailyRecomputeCompleted, n.handleRecomputeCompleted)
}

func (n *NotificationService) handleRequestChanged(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("request_id", event.RequestID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleBatchIngested(ctx context.Context, event events.Event) error {
	n.logger.Info("BatchIngested", zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAlertEscalated(ctx context.Context, event events.Event) error {
	n.logger.Info("AlertEscalated", zap.String("request_id", event.RequestID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleRecomputeCompleted(ctx context.Context, event events.Event) error {
	n.logger.Info("DailyRecomputeCompleted", zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("event_type", string(event.Type)))
}
