package enquiry

import (
	"context"
	"testing"

	"github.com/bizsite/siteadmin/internal/database"
	"github.com/bizsite/siteadmin/internal/domain"
	"github.com/bizsite/siteadmin/internal/events"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func newTestLedger(t *testing.T) (*Ledger, *events.Recorder, *gorm.DB) {
	t.Helper()
	db, err := database.OpenMemory("enquiry_" + t.Name())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	rec := events.NewRecorder(db)
	return NewLedger(db, rec), rec, db
}

func submit(t *testing.T, l *Ledger) *domain.Enquiry {
	t.Helper()
	e := &domain.Enquiry{Name: "Jane", Email: "jane@example.com", Message: "Need a quote", Status: domain.EnquiryStatusResolved, IsRead: true}
	if err := l.Submit(context.Background(), e); err != nil {
		t.Fatalf("submit: %v", err)
	}
	return e
}

func TestSubmitStartsNewAndUnread(t *testing.T) {
	l, rec, _ := newTestLedger(t)
	var got []events.Event
	if err := rec.Subscribe(events.TopicEnquiryReceived, func(ev events.Event) { got = append(got, ev) }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	e := submit(t, l)
	if e.Status != domain.EnquiryStatusNew || e.IsRead || e.Priority != domain.PriorityMedium {
		t.Fatalf("unexpected submitted enquiry %+v", e)
	}
	if len(got) != 1 || got[0].EntityID != e.ID {
		t.Fatalf("expected one received event, got %+v", got)
	}
	if _, ok := got[0].Payload.(domain.Enquiry); !ok {
		t.Fatalf("expected enquiry payload, got %T", got[0].Payload)
	}
}

func TestSubmitValidation(t *testing.T) {
	l, _, _ := newTestLedger(t)
	cases := []*domain.Enquiry{
		{Email: "a@b.c", Message: "m"},
		{Name: "n", Message: "m"},
		{Name: "n", Email: "a@b.c", Message: "  "},
		{Name: "n", Email: "a@b.c", Message: "m", Priority: "whenever"},
	}
	for i, e := range cases {
		if err := l.Submit(context.Background(), e); !errors.Is(err, ErrInvalid) {
			t.Errorf("case %d: expected ErrInvalid, got %v", i, err)
		}
	}
}

func TestFirstResponsePromotesOnce(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)
	e := submit(t, l)

	after, err := l.AddResponse(ctx, e.ID, domain.EnquiryResponse{Message: "Thanks, quote attached", RespondedBy: "admin"})
	if err != nil {
		t.Fatalf("first response: %v", err)
	}
	if after.Status != domain.EnquiryStatusInProgress {
		t.Fatalf("expected in-progress, got %s", after.Status)
	}
	if after.ResponseCount != 1 || after.FirstResponseAt == nil {
		t.Fatalf("expected first response recorded, got %+v", after)
	}
	firstAt := *after.FirstResponseAt

	// an admin moves it back to new; a later response must not promote again
	status := domain.EnquiryStatusNew
	if _, err := l.Apply(ctx, e.ID, Update{Status: &status}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	again, err := l.AddResponse(ctx, e.ID, domain.EnquiryResponse{Message: "Any update?"})
	if err != nil {
		t.Fatalf("second response: %v", err)
	}
	if again.Status != domain.EnquiryStatusNew {
		t.Fatalf("second response changed status to %s", again.Status)
	}
	if len(again.Responses) != 2 || again.Responses[1].Message != "Any update?" {
		t.Fatalf("responses not appended in order: %+v", again.Responses)
	}
	if !again.FirstResponseAt.Equal(firstAt) {
		t.Fatalf("first response time moved from %v to %v", firstAt, again.FirstResponseAt)
	}

	stored, err := l.Fetch(ctx, e.ID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if stored.ResponseCount != 2 || len(stored.Responses) != 2 {
		t.Fatalf("stored enquiry lost responses: %+v", stored)
	}
}

func TestSecondResponseKeepsInProgress(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)
	e := submit(t, l)

	if _, err := l.AddResponse(ctx, e.ID, domain.EnquiryResponse{Message: "one"}); err != nil {
		t.Fatalf("first: %v", err)
	}
	resolved := domain.EnquiryStatusResolved
	if _, err := l.Apply(ctx, e.ID, Update{Status: &resolved}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got, err := l.AddResponse(ctx, e.ID, domain.EnquiryResponse{Message: "two"})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if got.Status != domain.EnquiryStatusResolved {
		t.Fatalf("expected resolved to stick, got %s", got.Status)
	}
}

func TestAddResponseErrors(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)
	e := submit(t, l)

	if _, err := l.AddResponse(ctx, e.ID, domain.EnquiryResponse{Message: "  "}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if _, err := l.AddResponse(ctx, 12345, domain.EnquiryResponse{Message: "hi"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchMarksRead(t *testing.T) {
	ctx := context.Background()
	l, _, db := newTestLedger(t)
	e := submit(t, l)

	for i := 0; i < 2; i++ {
		got, err := l.Fetch(ctx, e.ID)
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if !got.IsRead {
			t.Fatalf("fetch %d: expected read", i)
		}
	}
	var stored domain.Enquiry
	db.First(&stored, e.ID)
	if !stored.IsRead {
		t.Fatal("read flag not persisted")
	}
	if _, err := l.Fetch(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestToggles(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)
	e := submit(t, l)

	got, err := l.ToggleStar(ctx, e.ID)
	if err != nil || !got.IsStarred {
		t.Fatalf("expected starred, got %+v err=%v", got, err)
	}
	got, err = l.ToggleStar(ctx, e.ID)
	if err != nil || got.IsStarred {
		t.Fatalf("expected unstarred, got %+v err=%v", got, err)
	}
	got, err = l.ToggleRead(ctx, e.ID)
	if err != nil || !got.IsRead {
		t.Fatalf("expected read, got %+v err=%v", got, err)
	}
	if _, err := l.ToggleRead(ctx, 4242); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApplyValidatesAndDelete(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)
	e := submit(t, l)

	bad := "closed"
	if _, err := l.Apply(ctx, e.ID, Update{Status: &bad}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	priority := domain.PriorityUrgent
	tags := []string{"vip", "quote"}
	got, err := l.Apply(ctx, e.ID, Update{Priority: &priority, Tags: &tags})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got.Priority != domain.PriorityUrgent || len(got.Tags) != 2 {
		t.Fatalf("unexpected applied enquiry %+v", got)
	}

	if err := l.Delete(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := l.Delete(ctx, e.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
