package geofence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type Notification struct {
	Title      string
	Body       string
	TaskID     int64
	LocationID int64
}

func (n Notification) data() map[string]string {
	return map[string]string{
		"taskId":     strconv.FormatInt(n.TaskID, 10),
		"locationId": strconv.FormatInt(n.LocationID, 10),
	}
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(_ context.Context, n Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("location reminder", "title", n.Title, "body", n.Body, "task_id", n.TaskID, "location_id", n.LocationID)
	return nil
}

// FCMNotifier pushes notifications to a fixed set of device tokens through
// Firebase Cloud Messaging.
type FCMNotifier struct {
	client *messaging.Client
	tokens []string
	logger *slog.Logger
}

func NewFCMNotifier(ctx context.Context, projectID, credentialsFile string, tokens []string, logger *slog.Logger) (*FCMNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("messaging client: %w", err)
	}
	return &FCMNotifier{client: client, tokens: tokens, logger: logger.With("component", "fcm")}, nil
}

func (f *FCMNotifier) Notify(ctx context.Context, n Notification) error {
	if len(f.tokens) == 0 {
		return nil
	}
	resp, err := f.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: f.tokens,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: n.data(),
	})
	if err != nil {
		return fmt.Errorf("send fcm multicast: %w", err)
	}
	for i, r := range resp.Responses {
		if !r.Success {
			f.logger.Warn("fcm delivery failed", "token_index", i, "err", r.Error)
		}
	}
	if resp.SuccessCount == 0 {
		return errors.New("fcm: no device accepted the notification")
	}
	return nil
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
