package notification

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"getir-be/internal/apperr"
	"getir-be/internal/logger"

	"go.uber.org/zap"
)

const TypeGeneral = "general"

type Service interface {
	// Notify writes a feed entry for userID. It matches order.Notifier.
	Notify(ctx context.Context, userID uint, kind, title, body string, data map[string]any) error
	List(ctx context.Context, userID uint, unreadOnly bool, limit, page int) ([]Notification, int, error)
	UnreadCount(ctx context.Context, userID uint) (int, error)
	MarkRead(ctx context.Context, userID, id uint) error
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, userID, id uint) error

	Subscribe(ctx context.Context, s PushSubscription) (*PushSubscription, error)
	Unsubscribe(ctx context.Context, userID uint, endpoint string) error
	Subscriptions(ctx context.Context, userID uint) ([]PushSubscription, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Notify(ctx context.Context, userID uint, kind, title, body string, data map[string]any) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Notify"),
		zap.Uint("user_id", userID),
		zap.String("type", kind),
	)

	if kind == "" {
		kind = TypeGeneral
	}
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	n := &Notification{UserID: userID, Title: title, Body: body, Type: kind, Data: raw}
	if err := s.repo.Create(ctx, n); err != nil {
		log.Error("failed to store notification", zap.Error(err))
		return err
	}

	log.Debug("notification stored", zap.Uint("notification_id", n.ID))
	return nil
}

func (s *service) List(ctx context.Context, userID uint, unreadOnly bool, limit, page int) ([]Notification, int, error) {
	return s.repo.List(ctx, userID, unreadOnly, limit, page)
}

func (s *service) UnreadCount(ctx context.Context, userID uint) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

func (s *service) MarkRead(ctx context.Context, userID, id uint) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *service) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *service) Delete(ctx context.Context, userID, id uint) error {
	return s.repo.Delete(ctx, userID, id)
}

func (s *service) Subscribe(ctx context.Context, sub PushSubscription) (*PushSubscription, error) {
	sub.Endpoint = strings.TrimSpace(sub.Endpoint)

	var v apperr.Validation
	u, err := url.Parse(sub.Endpoint)
	v.Check(sub.Endpoint != "", "endpoint", "required")
	v.Check(err == nil && u.Scheme == "https" && u.Host != "", "endpoint", "must be an https url")
	v.Check(len(sub.Endpoint) <= 2048, "endpoint", "too long")
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := s.repo.SaveSubscription(ctx, &sub); err != nil {
		return nil, err
	}
	logger.FromCtx(ctx).Info("push subscription saved",
		zap.Uint("user_id", sub.UserID),
		zap.Uint("subscription_id", sub.ID),
	)
	return &sub, nil
}

func (s *service) Unsubscribe(ctx context.Context, userID uint, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return apperr.Invalid("endpoint", "required")
	}
	return s.repo.DeleteSubscription(ctx, userID, endpoint)
}

func (s *service) Subscriptions(ctx context.Context, userID uint) ([]PushSubscription, error) {
	return s.repo.ListSubscriptions(ctx, userID)
}
