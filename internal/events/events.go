// Package events publishes domain events on an in-process bus and keeps the
// append-only activity log the dashboard feed reads from.
package events

import (
	"context"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/bizsite/siteadmin/internal/domain"
	"github.com/bizsite/siteadmin/pkg/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	TopicProductCreated    = "product:created"
	TopicProductUpdated    = "product:updated"
	TopicProductDeleted    = "product:deleted"
	TopicCategoryRenamed   = "category:renamed"
	TopicCategoryDeleted   = "category:deleted"
	TopicEnquiryReceived   = "enquiry:received"
	TopicEnquiryResponded  = "enquiry:responded"
	TopicEnquiryStatus     = "enquiry:status"
	TopicClientCreated     = "client:created"
	TopicBrochureActivated = "brochure:activated"
)

// LoggedTopics are persisted to the activity log
var LoggedTopics = []string{
	TopicProductCreated,
	TopicProductUpdated,
	TopicProductDeleted,
	TopicCategoryRenamed,
	TopicCategoryDeleted,
	TopicEnquiryReceived,
	TopicEnquiryResponded,
	TopicEnquiryStatus,
	TopicClientCreated,
	TopicBrochureActivated,
}

// Event is what publishers hand to the bus. Payload is delivered to
// subscribers but never persisted.
type Event struct {
	Topic      string
	EntityType string
	EntityID   int64
	Title      string
	Detail     string
	At         time.Time
	Payload    interface{}
}

// Recorder owns the bus and the activity log table
type Recorder struct {
	bus EventBus.Bus
	db  *gorm.DB
}

// NewRecorder creates a recorder whose log subscriber is attached to every
// logged topic.
func NewRecorder(db *gorm.DB) *Recorder {
	r := &Recorder{bus: EventBus.New(), db: db}
	for _, topic := range LoggedTopics {
		if err := r.bus.Subscribe(topic, r.append); err != nil {
			zap.L().Error("subscribe activity log failed", zap.String("namespace", "events"), zap.String("topic", topic), zap.Error(err))
		}
	}
	return r
}

// Publish delivers ev synchronously to all subscribers of ev.Topic
func (r *Recorder) Publish(ev Event) {
	if r == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	r.bus.Publish(ev.Topic, ev)
}

// Subscribe attaches an additional handler to topic
func (r *Recorder) Subscribe(topic string, fn func(Event)) error {
	return r.bus.Subscribe(topic, fn)
}

// SubscribeAsync attaches a handler that runs off the publishing goroutine,
// one event at a time.
func (r *Recorder) SubscribeAsync(topic string, fn func(Event)) error {
	return r.bus.SubscribeAsync(topic, fn, true)
}

// WaitAsync blocks until every async handler has finished
func (r *Recorder) WaitAsync() {
	if r == nil {
		return
	}
	r.bus.WaitAsync()
}

func (r *Recorder) append(ev Event) {
	row := domain.ActivityEvent{
		ID:         common.UUIDint64(),
		Topic:      ev.Topic,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
		Title:      truncate(ev.Title, 300),
		Detail:     truncate(ev.Detail, 500),
		CreatedAt:  ev.At,
	}
	if err := r.db.Create(&row).Error; err != nil {
		zap.L().Warn("append activity event failed",
			zap.String("namespace", "events"),
			zap.String("topic", ev.Topic),
			zap.Int64("entity_id", ev.EntityID),
			zap.Error(err),
		)
	}
}

// Page returns one page of the activity log, newest first, with the total
// number of events
func (r *Recorder) Page(ctx context.Context, page, limit int) ([]domain.ActivityEvent, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.ActivityEvent{}).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count activity events")
	}
	rows := make([]domain.ActivityEvent, 0, limit)
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "query activity events")
	}
	return rows, total, nil
}

// Recent returns the newest activity events first
func (r *Recorder) Recent(ctx context.Context, limit int) ([]domain.ActivityEvent, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []domain.ActivityEvent
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "query activity events")
	}
	return rows, nil
}

// PurgeOlderThan deletes activity events older than days
func (r *Recorder) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&domain.ActivityEvent{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "purge activity events")
	}
	return res.RowsAffected, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
