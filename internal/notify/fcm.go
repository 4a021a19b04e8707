package notify

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// FCMSender delivers pushes through Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender initializes the Firebase app and messaging client. When
// credentialsPath is empty, application default credentials are used.
func NewFCMSender(ctx context.Context, credentialsPath, projectID string) (*FCMSender, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}
	return &FCMSender{client: client}, nil
}

// Send implements Sender via a multicast message. Per-token failures are
// tolerated; the call errors only when the whole batch fails.
func (f *FCMSender) Send(ctx context.Context, tokens []string, title, body string) error {
	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
	}
	resp, err := f.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		return err
	}
	if resp.FailureCount > 0 {
		// Stale tokens are expected; they age out when users re-register.
		log.Warn().
			Int("failed", resp.FailureCount).
			Int("delivered", resp.SuccessCount).
			Msg("notify: some fcm deliveries failed")
	}
	return nil
}
