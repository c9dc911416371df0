package events

import (
	"context"
	"testing"
	"time"

	"github.com/bizsite/siteadmin/internal/database"
	"github.com/bizsite/siteadmin/internal/domain"
	"github.com/bizsite/siteadmin/pkg/common"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenMemory("events_" + t.Name())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return db
}

func TestPublishAppendsActivity(t *testing.T) {
	db := newTestDB(t)
	rec := NewRecorder(db)

	rec.Publish(Event{Topic: TopicProductCreated, EntityType: "product", EntityID: 42, Title: "New product: Pump"})
	rec.Publish(Event{Topic: TopicEnquiryReceived, EntityType: "enquiry", EntityID: 7, Title: "New enquiry from Ann"})

	rows, err := rec.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 events, got %d", len(rows))
	}
	if rows[0].Topic != TopicEnquiryReceived {
		t.Errorf("expected newest first, got %s", rows[0].Topic)
	}
}

func TestPageWalksActivityLog(t *testing.T) {
	db := newTestDB(t)
	rec := NewRecorder(db)

	base := time.Now().Add(-time.Hour)
	for i := int64(1); i <= 5; i++ {
		rec.Publish(Event{Topic: TopicProductCreated, EntityType: "product", EntityID: i, At: base.Add(time.Duration(i) * time.Minute)})
	}

	ctx := context.Background()
	first, total, err := rec.Page(ctx, 1, 2)
	if err != nil {
		t.Fatalf("Page 1: %v", err)
	}
	second, _, err := rec.Page(ctx, 2, 2)
	if err != nil {
		t.Fatalf("Page 2: %v", err)
	}
	last, _, err := rec.Page(ctx, 3, 2)
	if err != nil {
		t.Fatalf("Page 3: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	if len(first) != 2 || first[0].EntityID != 5 || first[1].EntityID != 4 {
		t.Fatalf("unexpected first page %+v", first)
	}
	if len(second) != 2 || second[0].EntityID != 3 || second[1].EntityID != 2 {
		t.Fatalf("unexpected second page %+v", second)
	}
	if len(last) != 1 || last[0].EntityID != 1 {
		t.Fatalf("unexpected last page %+v", last)
	}
}

func TestSubscriberReceivesPayload(t *testing.T) {
	db := newTestDB(t)
	rec := NewRecorder(db)

	var got *domain.Enquiry
	if err := rec.Subscribe(TopicEnquiryReceived, func(ev Event) {
		got, _ = ev.Payload.(*domain.Enquiry)
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	enq := &domain.Enquiry{ID: 1, Name: "Ann"}
	rec.Publish(Event{Topic: TopicEnquiryReceived, EntityID: 1, Payload: enq})
	if got != enq {
		t.Fatal("expected payload to reach subscriber")
	}
}

func TestPurgeOlderThan(t *testing.T) {
	db := newTestDB(t)
	rec := NewRecorder(db)

	old := domain.ActivityEvent{ID: common.UUIDint64(), Topic: TopicClientCreated, CreatedAt: time.Now().AddDate(0, 0, -40)}
	fresh := domain.ActivityEvent{ID: common.UUIDint64(), Topic: TopicClientCreated, CreatedAt: time.Now()}
	if err := db.Create(&old).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Create(&fresh).Error; err != nil {
		t.Fatal(err)
	}

	n, err := rec.PurgeOlderThan(context.Background(), 30)
	if err != nil {
		t.Fatalf("PurgeOlderThan: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
}

func TestNilRecorderPublishIsNoop(t *testing.T) {
	var rec *Recorder
	rec.Publish(Event{Topic: TopicProductCreated})
}
