// Package notify fans requirement events out to administrator devices.
//
// Mutations call NotifyAdmins after their transaction commits. The service
// renders the templated body for the event, loads the device tokens of every
// admin user that registered one, and hands the batch to a Sender. Delivery
// problems are logged and swallowed: a lost push must never fail or roll
// back the mutation that triggered it.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/lensworks/go-lens-backend/internal/repo"
)

// Event types carried in notification payloads.
const (
	EventFulfilled          = "FULFILLED"
	EventPartiallyFulfilled = "PARTIALLY_FULFILLED"
	EventCommented          = "COMMENTED"
	EventDeleted            = "DELETED"
	EventUpdated            = "UPDATED"
)

// notificationTitle is the fixed title of every admin push.
const notificationTitle = "LensWorks Update"

// Sender delivers one notification to a batch of device tokens.
type Sender interface {
	Send(ctx context.Context, tokens []string, title, body string) error
}

// Service resolves admin recipients and dispatches through a Sender.
type Service struct {
	DB     *gorm.DB
	Sender Sender
}

// NotifyAdmins sends the event to every admin with a registered device
// token. The initiator is a user ID; the body carries the user's display
// name when the account resolves, the raw ID otherwise. It never returns an
// error; failures are logged.
func (s *Service) NotifyAdmins(ctx context.Context, event, detail, initiator string) {
	name := initiator
	if u, err := repo.GetUser(ctx, s.DB, initiator); err == nil && u.Name != "" {
		name = u.Name
	}
	body := Body(event, detail, name)

	tokens, err := repo.ListAdminTokens(ctx, s.DB)
	if err != nil {
		log.Warn().Err(err).Str("event", event).Msg("notify: admin token lookup failed")
		return
	}
	if len(tokens) == 0 || s.Sender == nil {
		return
	}
	if err := s.Sender.Send(ctx, tokens, notificationTitle, body); err != nil {
		log.Warn().Err(err).
			Str("event", event).
			Int("tokens", len(tokens)).
			Msg("notify: send failed")
		return
	}
	log.Debug().Str("event", event).Int("tokens", len(tokens)).Msg("notify: sent")
}

// Body renders the notification body for an event. Unknown events fall back
// to a generic action template.
func Body(event, detail, initiator string) string {
	switch event {
	case EventFulfilled:
		return fmt.Sprintf("%s fulfilled a requirement: %s", initiator, detail)
	case EventPartiallyFulfilled:
		return fmt.Sprintf("%s partially fulfilled a requirement: %s", initiator, detail)
	case EventCommented:
		return fmt.Sprintf("%s added a comment to: %s", initiator, detail)
	case EventDeleted:
		return fmt.Sprintf("%s deleted a requirement: %s", initiator, detail)
	}
	return fmt.Sprintf("%s performed an action: %s", initiator, detail)
}

// LogSender is the default Sender when no push credentials are configured.
// It records the would-be notification at info level and reports success.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(ctx context.Context, tokens []string, title, body string) error {
	log.Info().
		Int("tokens", len(tokens)).
		Str("title", title).
		Str("body", body).
		Msg("notify: push delivery disabled, logging only")
	return nil
}
