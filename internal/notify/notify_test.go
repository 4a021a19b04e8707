package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lensworks/go-lens-backend/internal/domain"
)

type recordingSender struct {
	calls  int
	tokens []string
	title  string
	body   string
	err    error
}

func (r *recordingSender) Send(_ context.Context, tokens []string, title, body string) error {
	r.calls++
	r.tokens = tokens
	r.title = title
	r.body = body
	return r.err
}

func newNotifyDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if migrate {
		if err := db.AutoMigrate(&domain.User{}); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, id, role, token string) {
	t.Helper()
	u := &domain.User{ID: id, Name: "User " + id, Role: role, FCMToken: token}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func TestBody_Templates(t *testing.T) {
	cases := map[string]string{
		EventFulfilled:          "Priya fulfilled a requirement: D",
		EventPartiallyFulfilled: "Priya partially fulfilled a requirement: D",
		EventCommented:          "Priya added a comment to: D",
		EventDeleted:            "Priya deleted a requirement: D",
		"SOMETHING_ELSE":        "Priya performed an action: D",
	}
	for event, want := range cases {
		if got := Body(event, "D", "Priya"); got != want {
			t.Fatalf("Body(%s) = %q; want %q", event, got, want)
		}
	}
	// EventUpdated has no dedicated template; it takes the generic one.
	if got := Body(EventUpdated, "D", "Priya"); !strings.Contains(got, "performed an action") {
		t.Fatalf("Body(UPDATED) = %q", got)
	}
}

func TestNotifyAdmins_SendsOnlyAdminTokens(t *testing.T) {
	db := newNotifyDB(t, true)
	seedUser(t, db, "a1", domain.RoleAdmin, "tok-a1")
	seedUser(t, db, "a2", domain.RoleAdmin, "") // no device registered
	seedUser(t, db, "e1", domain.RoleEmployee, "tok-e1")

	s := &recordingSender{}
	svc := &Service{DB: db, Sender: s}
	svc.NotifyAdmins(context.Background(), EventFulfilled, "detail", "Priya")

	if s.calls != 1 {
		t.Fatalf("expected one send, got %d", s.calls)
	}
	if len(s.tokens) != 1 || s.tokens[0] != "tok-a1" {
		t.Fatalf("expected only tok-a1, got %v", s.tokens)
	}
	if s.title != "LensWorks Update" {
		t.Fatalf("unexpected title %q", s.title)
	}
	if !strings.Contains(s.body, "fulfilled a requirement") {
		t.Fatalf("unexpected body %q", s.body)
	}
}

func TestNotifyAdmins_ResolvesInitiatorName(t *testing.T) {
	db := newNotifyDB(t, true)
	seedUser(t, db, "a1", domain.RoleAdmin, "tok-a1")
	seedUser(t, db, "u7", domain.RoleEmployee, "")

	s := &recordingSender{}
	svc := &Service{DB: db, Sender: s}
	svc.NotifyAdmins(context.Background(), EventFulfilled, "detail", "u7")

	// seedUser names the account "User u7"; the body carries the name, not
	// the raw ID.
	if !strings.HasPrefix(s.body, "User u7 ") {
		t.Fatalf("expected display name in body, got %q", s.body)
	}

	// An initiator with no account falls back to the ID as given.
	svc.NotifyAdmins(context.Background(), EventFulfilled, "detail", "ghost")
	if !strings.HasPrefix(s.body, "ghost ") {
		t.Fatalf("expected raw ID fallback, got %q", s.body)
	}
}

func TestNotifyAdmins_NoRecipients_NoSend(t *testing.T) {
	db := newNotifyDB(t, true)
	seedUser(t, db, "e1", domain.RoleEmployee, "tok-e1")

	s := &recordingSender{}
	svc := &Service{DB: db, Sender: s}
	svc.NotifyAdmins(context.Background(), EventDeleted, "detail", "Priya")

	if s.calls != 0 {
		t.Fatalf("expected no send without admin tokens, got %d", s.calls)
	}
}

func TestNotifyAdmins_NilSender_NoPanic(t *testing.T) {
	db := newNotifyDB(t, true)
	seedUser(t, db, "a1", domain.RoleAdmin, "tok-a1")

	svc := &Service{DB: db}
	svc.NotifyAdmins(context.Background(), EventCommented, "detail", "Priya")
}

func TestNotifyAdmins_SendError_Swallowed(t *testing.T) {
	db := newNotifyDB(t, true)
	seedUser(t, db, "a1", domain.RoleAdmin, "tok-a1")

	s := &recordingSender{err: errors.New("fcm down")}
	svc := &Service{DB: db, Sender: s}
	// Must not propagate; the mutation already committed.
	svc.NotifyAdmins(context.Background(), EventFulfilled, "detail", "Priya")
	if s.calls != 1 {
		t.Fatalf("expected send attempt, got %d", s.calls)
	}
}

func TestNotifyAdmins_TokenLookupError_Swallowed(t *testing.T) {
	db := newNotifyDB(t, false) // no users table

	s := &recordingSender{}
	svc := &Service{DB: db, Sender: s}
	svc.NotifyAdmins(context.Background(), EventFulfilled, "detail", "Priya")
	if s.calls != 0 {
		t.Fatalf("expected no send when token lookup fails, got %d", s.calls)
	}
}

func TestLogSender_Send(t *testing.T) {
	if err := (LogSender{}).Send(context.Background(), []string{"t1"}, "T", "B"); err != nil {
		t.Fatalf("LogSender.Send should never fail: %v", err)
	}
}
