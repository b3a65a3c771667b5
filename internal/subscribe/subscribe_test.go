package subscribe

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"recruitpro/internal/notify"
	"recruitpro/internal/store"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func newTestService(t *testing.T, mailer notify.Mailer) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "site.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return NewService(st, mailer, "admin@recruitpro.example", "RecruitPro"), st
}

func TestValidateEmail(t *testing.T) {
	valid := map[string]string{
		"jane@example.com":       "jane@example.com",
		"  Jane.Doe@Example.COM": "jane.doe@example.com",
		"a+tag@mail.example.org": "a+tag@mail.example.org",
	}
	for in, want := range valid {
		got, err := ValidateEmail(in)
		if err != nil {
			t.Errorf("Expected %q to be valid, got %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}

	invalid := []string{
		"",
		"plainaddress",
		"@example.com",
		"jane@",
		"jane@localhost",
		"jane@example..com",
		"jane@.example.com",
		"Jane <jane@example.com>",
		"jane@example.com, bob@example.com",
	}
	for _, in := range invalid {
		if _, err := ValidateEmail(in); !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("Expected %q to be rejected, got %v", in, err)
		}
	}
}

func TestSubscribeInvalidEmailLeavesListUntouched(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Subscribe(ctx, ListNewsletter, "jane@example.com", Meta{}); err != nil {
		t.Fatalf("seed subscribe: %v", err)
	}
	_, err := svc.Subscribe(ctx, ListNewsletter, "not-an-email", Meta{})
	if !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("Expected ErrInvalidEmail, got %v", err)
	}

	subs, err := svc.List(ctx, ListNewsletter)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(subs) != 1 || subs[0].Email != "jane@example.com" {
		t.Errorf("Expected list unchanged, got %+v", subs)
	}
}

func TestSubscribeAddsExactlyOne(t *testing.T) {
	mailer := &recordingMailer{}
	svc, _ := newTestService(t, mailer)
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, ListComingSoon, "Jane@Example.com", Meta{Source: "coming-soon", IP: "203.0.113.7"})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if sub.Email != "jane@example.com" {
		t.Errorf("Expected normalised email, got '%s'", sub.Email)
	}
	if sub.ID == "" {
		t.Error("Expected subscriber ID to be set")
	}

	count, err := svc.Count(ctx, ListComingSoon)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 subscriber, got %d", count)
	}

	if len(mailer.sent) != 2 {
		t.Fatalf("Expected admin and subscriber emails, got %d", len(mailer.sent))
	}
	if mailer.sent[0].To != "admin@recruitpro.example" {
		t.Errorf("Expected first email to admin, got '%s'", mailer.sent[0].To)
	}
	if mailer.sent[1].To != "jane@example.com" {
		t.Errorf("Expected second email to subscriber, got '%s'", mailer.sent[1].To)
	}
}

func TestSubscribeDuplicate(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Subscribe(ctx, ListMaintenance, "jane@example.com", Meta{}); err != nil {
		t.Fatalf("first subscribe: %v", err)
	}
	_, err := svc.Subscribe(ctx, ListMaintenance, "JANE@example.com ", Meta{})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Expected ErrDuplicate, got %v", err)
	}

	count, _ := svc.Count(ctx, ListMaintenance)
	if count != 1 {
		t.Errorf("Expected 1 subscriber after duplicate, got %d", count)
	}
}

func TestSubscribeListsAreIndependent(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Subscribe(ctx, ListNewsletter, "jane@example.com", Meta{}); err != nil {
		t.Fatalf("newsletter: %v", err)
	}
	if _, err := svc.Subscribe(ctx, ListComingSoon, "jane@example.com", Meta{}); err != nil {
		t.Errorf("Expected the same email on another list to succeed, got %v", err)
	}
}

func TestSubscribeUnknownList(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if _, err := svc.Subscribe(context.Background(), "other", "jane@example.com", Meta{}); !errors.Is(err, ErrUnknownList) {
		t.Errorf("Expected ErrUnknownList, got %v", err)
	}
}

func TestSubscribeMailerFailureIsNotFatal(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp down")}
	svc, _ := newTestService(t, mailer)

	if _, err := svc.Subscribe(context.Background(), ListNewsletter, "jane@example.com", Meta{}); err != nil {
		t.Errorf("Expected subscription to succeed despite mail failure, got %v", err)
	}
}

func TestListReadsLegacyStringArrays(t *testing.T) {
	svc, st := newTestService(t, nil)
	ctx := context.Background()

	if err := st.UpdateOption(ctx, ListNewsletter, []string{"old@example.com"}); err != nil {
		t.Fatalf("seed legacy list: %v", err)
	}
	if _, err := svc.Subscribe(ctx, ListNewsletter, "OLD@example.com", Meta{}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected legacy entry to count as duplicate, got %v", err)
	}
	if _, err := svc.Subscribe(ctx, ListNewsletter, "new@example.com", Meta{}); err != nil {
		t.Fatalf("subscribe new: %v", err)
	}

	subs, err := svc.List(ctx, ListNewsletter)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("Expected 2 subscribers, got %d", len(subs))
	}
	if subs[0].Email != "old@example.com" || subs[1].Email != "new@example.com" {
		t.Errorf("Unexpected order %+v", subs)
	}
}

type blockingMailer struct {
	mu      sync.Mutex
	calls   int
	expired int
}

func (m *blockingMailer) Send(ctx context.Context, _ notify.Message) error {
	<-ctx.Done()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		m.expired++
	}
	return ctx.Err()
}

func TestSlowMailerDoesNotHoldSubscription(t *testing.T) {
	mailer := &blockingMailer{}
	svc, _ := newTestService(t, mailer)
	svc.notifyTimeout = 100 * time.Millisecond

	start := time.Now()
	sub, err := svc.Subscribe(context.Background(), ListNewsletter, "jane@example.com", Meta{})
	if err != nil {
		t.Fatalf("Expected the subscription to succeed, got %v", err)
	}
	if sub.Email != "jane@example.com" {
		t.Errorf("Unexpected subscriber %+v", sub)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Expected notifications to stop near their timeout, took %s", elapsed)
	}

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if mailer.calls != 2 || mailer.expired != 2 {
		t.Errorf("Expected both mails to hit the deadline, got calls=%d expired=%d", mailer.calls, mailer.expired)
	}
}

type ctxMailer struct {
	mu   sync.Mutex
	errs []error
}

func (m *ctxMailer) Send(ctx context.Context, _ notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, ctx.Err())
	return nil
}

func TestNotificationsOutliveCancelledRequest(t *testing.T) {
	mailer := &ctxMailer{}
	svc, _ := newTestService(t, mailer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.notify(ctx, ListNewsletter, Subscriber{Email: "jane@example.com", SubscribedAt: time.Now()})

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if len(mailer.errs) != 2 {
		t.Fatalf("Expected admin and subscriber mails, got %d", len(mailer.errs))
	}
	for i, err := range mailer.errs {
		if err != nil {
			t.Errorf("Mail %d: expected a live context, got %v", i, err)
		}
	}
}
