// Package subscribe manages the site's email subscriber lists.
//
// Each list is a single option holding an array of subscriber records.
// Duplicates are found with a linear, case-insensitive scan of that array.
package subscribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"recruitpro/internal/notify"
)

// Option names of the subscriber lists
const (
	ListNewsletter  = "recruitpro_newsletter_subscribers"
	ListComingSoon  = "recruitpro_coming_soon_subscribers"
	ListMaintenance = "recruitpro_maintenance_subscribers"
)

const (
	maxEmailLen          = 254
	defaultNotifyTimeout = 15 * time.Second
)

var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrDuplicate    = errors.New("email already subscribed")
	ErrUnknownList  = errors.New("unknown subscriber list")
)

var listLabels = map[string]string{
	ListNewsletter:  "newsletter",
	ListComingSoon:  "launch notification",
	ListMaintenance: "maintenance updates",
}

// Subscriber is one entry of a list
type Subscriber struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Source       string    `json:"source,omitempty"`
	IP           string    `json:"ip,omitempty"`
	SubscribedAt time.Time `json:"subscribed_at"`
}

// Meta describes where a subscription came from
type Meta struct {
	Source string
	IP     string
}

// OptionStore is the persistence the service needs
type OptionStore interface {
	GetOption(ctx context.Context, name string, dst any) (bool, error)
	UpdateOptionFunc(ctx context.Context, name string, fn func(current []byte) (any, error)) error
}

// Service validates and records subscriptions
type Service struct {
	store      OptionStore
	mailer     notify.Mailer
	adminEmail string
	siteName   string
	now        func() time.Time

	// notifyTimeout bounds both notification emails of one subscription
	notifyTimeout time.Duration
}

// NewService returns a Service. mailer may be nil to skip notifications.
func NewService(store OptionStore, mailer notify.Mailer, adminEmail, siteName string) *Service {
	return &Service{
		store:      store,
		mailer:     mailer,
		adminEmail: strings.TrimSpace(adminEmail),
		siteName:   siteName,
		now:        time.Now,

		notifyTimeout: defaultNotifyTimeout,
	}
}

// ValidateEmail returns the normalised address or ErrInvalidEmail.
func ValidateEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(email) > maxEmailLen {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return "", ErrInvalidEmail
	}
	at := strings.LastIndex(email, "@")
	local, domain := email[:at], email[at+1:]
	if local == "" || !strings.Contains(domain, ".") || strings.Contains(domain, "..") ||
		strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Subscribe adds email to list. The list is left untouched on any error.
func (s *Service) Subscribe(ctx context.Context, list, email string, meta Meta) (Subscriber, error) {
	ctx, span := otel.Tracer("recruitpro/subscribe").Start(ctx, "subscribe.Subscribe")
	defer span.End()
	span.SetAttributes(attribute.String("list", list))

	if _, ok := listLabels[list]; !ok {
		return Subscriber{}, ErrUnknownList
	}
	normalized, err := ValidateEmail(email)
	if err != nil {
		return Subscriber{}, err
	}

	sub := Subscriber{
		ID:           uuid.NewString(),
		Email:        normalized,
		Source:       meta.Source,
		IP:           meta.IP,
		SubscribedAt: s.now().UTC(),
	}

	err = s.store.UpdateOptionFunc(ctx, list, func(current []byte) (any, error) {
		subs, err := decodeList(current)
		if err != nil {
			return nil, err
		}
		for _, existing := range subs {
			if strings.EqualFold(existing.Email, normalized) {
				return nil, ErrDuplicate
			}
		}
		return append(subs, sub), nil
	})
	if err != nil {
		if !errors.Is(err, ErrDuplicate) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return Subscriber{}, err
	}

	logrus.WithFields(logrus.Fields{
		"list":   list,
		"source": meta.Source,
	}).Info("New subscriber added")

	s.notify(ctx, list, sub)
	return sub, nil
}

// List returns the subscribers of list in insertion order
func (s *Service) List(ctx context.Context, list string) ([]Subscriber, error) {
	if _, ok := listLabels[list]; !ok {
		return nil, ErrUnknownList
	}
	var raw json.RawMessage
	found, err := s.store.GetOption(ctx, list, &raw)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", list, err)
	}
	if !found {
		return []Subscriber{}, nil
	}
	return decodeList(raw)
}

// Count returns the number of subscribers on list
func (s *Service) Count(ctx context.Context, list string) (int, error) {
	subs, err := s.List(ctx, list)
	if err != nil {
		return 0, err
	}
	return len(subs), nil
}

// notify mails the admin and the subscriber on a context detached from the
// request and bounded by notifyTimeout.
func (s *Service) notify(ctx context.Context, list string, sub Subscriber) {
	if s.mailer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()
	label := listLabels[list]

	if s.adminEmail != "" {
		err := s.mailer.Send(ctx, notify.Message{
			To:      s.adminEmail,
			Subject: fmt.Sprintf("[%s] New %s subscriber", s.siteName, label),
			Body: fmt.Sprintf("A new subscriber joined the %s list.\n\nEmail: %s\nSource: %s\nDate: %s\n",
				label, sub.Email, sub.Source, sub.SubscribedAt.Format(time.RFC1123)),
		})
		if err != nil {
			logrus.WithError(err).WithField("list", list).Warn("Failed to send admin notification")
		}
	}

	err := s.mailer.Send(ctx, notify.Message{
		To:      sub.Email,
		Subject: fmt.Sprintf("Thanks for subscribing to %s", s.siteName),
		Body: fmt.Sprintf("You are now subscribed to %s %s.\n\nWe will only write when there is something worth reading.\n",
			s.siteName, label),
	})
	if err != nil {
		logrus.WithError(err).WithField("list", list).Warn("Failed to send subscriber confirmation")
	}
}

// decodeList accepts both record arrays and bare email-string arrays.
func decodeList(raw []byte) ([]Subscriber, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []Subscriber{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode subscriber list: %w", err)
	}
	subs := make([]Subscriber, 0, len(items))
	for _, item := range items {
		var email string
		if err := json.Unmarshal(item, &email); err == nil {
			subs = append(subs, Subscriber{Email: email})
			continue
		}
		var sub Subscriber
		if err := json.Unmarshal(item, &sub); err != nil {
			return nil, fmt.Errorf("decode subscriber: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}
