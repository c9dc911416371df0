// Package enquiry owns the enquiry lifecycle: public submission, the
// append-only response log and the read/star flags.
package enquiry

import (
	"context"
	"strings"
	"time"

	"github.com/bizsite/siteadmin/internal/domain"
	"github.com/bizsite/siteadmin/internal/events"
	"github.com/bizsite/siteadmin/pkg/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound = errors.New("enquiry not found")
	ErrInvalid  = errors.New("invalid enquiry")
)

// Responded is the payload of events.TopicEnquiryResponded
type Responded struct {
	Enquiry  domain.Enquiry
	Response domain.EnquiryResponse
}

// Update holds the admin editable fields; nil means unchanged
type Update struct {
	Status    *string
	Priority  *string
	Tags      *[]string
	IsRead    *bool
	IsStarred *bool
}

// Ledger performs enquiry writes and publishes their events after commit
type Ledger struct {
	db       *gorm.DB
	recorder *events.Recorder
}

func NewLedger(db *gorm.DB, recorder *events.Recorder) *Ledger {
	return &Ledger{db: db, recorder: recorder}
}

// Submit stores a public submission as a new, unread enquiry
func (l *Ledger) Submit(ctx context.Context, e *domain.Enquiry) error {
	e.Name = strings.TrimSpace(e.Name)
	e.Email = strings.TrimSpace(e.Email)
	e.Message = strings.TrimSpace(e.Message)
	if e.Name == "" || e.Email == "" || e.Message == "" {
		return errors.Wrap(ErrInvalid, "name, email and message are required")
	}
	if e.Priority == "" {
		e.Priority = domain.PriorityMedium
	}
	if !domain.IsValidPriority(e.Priority) {
		return errors.Wrapf(ErrInvalid, "unknown priority %q", e.Priority)
	}

	e.ID = common.UUIDint64()
	e.Status = domain.EnquiryStatusNew
	e.IsRead = false
	e.IsStarred = false
	e.Responses = domain.ResponseList{}
	e.ResponseCount = 0
	e.FirstResponseAt = nil
	if e.Tags == nil {
		e.Tags = []string{}
	}
	if err := l.db.WithContext(ctx).Create(e).Error; err != nil {
		return errors.Wrap(err, "create enquiry")
	}

	l.recorder.Publish(events.Event{
		Topic:      events.TopicEnquiryReceived,
		EntityType: "enquiry",
		EntityID:   e.ID,
		Title:      "New enquiry from " + e.Name,
		Detail:     common.IfEmptyStr(e.Subject, e.Product),
		Payload:    *e,
	})
	return nil
}

// Fetch loads an enquiry and marks it read. Repeated fetches are no-ops
// for the flag.
func (l *Ledger) Fetch(ctx context.Context, id int64) (*domain.Enquiry, error) {
	e, err := l.load(ctx, l.db, id)
	if err != nil {
		return nil, err
	}
	if !e.IsRead {
		err := l.db.WithContext(ctx).
			Model(&domain.Enquiry{}).
			Where("id = ? AND is_read = ?", id, false).
			Update("is_read", true).Error
		if err != nil {
			return nil, errors.Wrap(err, "mark enquiry read")
		}
		e.IsRead = true
	}
	return e, nil
}

// AddResponse appends resp to the enquiry. The first response ever
// appended records FirstResponseAt and moves a new enquiry to in-progress;
// later responses leave the status alone.
func (l *Ledger) AddResponse(ctx context.Context, id int64, resp domain.EnquiryResponse) (*domain.Enquiry, error) {
	resp.Message = strings.TrimSpace(resp.Message)
	if resp.Message == "" {
		return nil, errors.Wrap(ErrInvalid, "response message is required")
	}
	if resp.RespondedAt.IsZero() {
		resp.RespondedAt = time.Now()
	}

	var (
		result   *domain.Enquiry
		promoted bool
	)
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := l.load(ctx, tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
		if err != nil {
			return err
		}

		first := e.ResponseCount == 0 && len(e.Responses) == 0
		e.Responses = append(e.Responses, resp)
		e.ResponseCount = len(e.Responses)
		updates := map[string]interface{}{
			"responses":      e.Responses,
			"response_count": e.ResponseCount,
			"updated_at":     time.Now(),
		}
		if first {
			at := resp.RespondedAt
			e.FirstResponseAt = &at
			updates["first_response_at"] = at
			if e.Status == domain.EnquiryStatusNew {
				e.Status = domain.EnquiryStatusInProgress
				updates["status"] = e.Status
				promoted = true
			}
		}
		if err := tx.Model(&domain.Enquiry{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return errors.Wrap(err, "append enquiry response")
		}
		result = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.recorder.Publish(events.Event{
		Topic:      events.TopicEnquiryResponded,
		EntityType: "enquiry",
		EntityID:   result.ID,
		Title:      "Responded to " + result.Name,
		Detail:     common.IfEmptyStr(resp.RespondedBy, "admin"),
		Payload:    Responded{Enquiry: *result, Response: resp},
	})
	if promoted {
		l.publishStatus(result)
	}
	return result, nil
}

// ToggleStar flips the starred flag
func (l *Ledger) ToggleStar(ctx context.Context, id int64) (*domain.Enquiry, error) {
	return l.toggle(ctx, id, "is_starred")
}

// ToggleRead flips the read flag
func (l *Ledger) ToggleRead(ctx context.Context, id int64) (*domain.Enquiry, error) {
	return l.toggle(ctx, id, "is_read")
}

func (l *Ledger) toggle(ctx context.Context, id int64, column string) (*domain.Enquiry, error) {
	res := l.db.WithContext(ctx).
		Model(&domain.Enquiry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			column:       gorm.Expr("NOT " + column),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, errors.Wrapf(res.Error, "toggle %s", column)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return l.load(ctx, l.db, id)
}

// Apply stores an admin update. Status may be set to any valid value,
// including the terminal resolved and spam states.
func (l *Ledger) Apply(ctx context.Context, id int64, upd Update) (*domain.Enquiry, error) {
	e, err := l.load(ctx, l.db, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	statusChanged := false
	if upd.Status != nil && *upd.Status != e.Status {
		if !domain.IsValidEnquiryStatus(*upd.Status) {
			return nil, errors.Wrapf(ErrInvalid, "unknown status %q", *upd.Status)
		}
		e.Status = *upd.Status
		updates["status"] = e.Status
		statusChanged = true
	}
	if upd.Priority != nil {
		if !domain.IsValidPriority(*upd.Priority) {
			return nil, errors.Wrapf(ErrInvalid, "unknown priority %q", *upd.Priority)
		}
		e.Priority = *upd.Priority
		updates["priority"] = e.Priority
	}
	if upd.Tags != nil {
		e.Tags = append([]string{}, (*upd.Tags)...)
		updates["tags"] = e.Tags
	}
	if upd.IsRead != nil {
		e.IsRead = *upd.IsRead
		updates["is_read"] = e.IsRead
	}
	if upd.IsStarred != nil {
		e.IsStarred = *upd.IsStarred
		updates["is_starred"] = e.IsStarred
	}
	if len(updates) == 0 {
		return e, nil
	}
	e.UpdatedAt = time.Now()
	updates["updated_at"] = e.UpdatedAt
	if err := l.db.WithContext(ctx).Model(&domain.Enquiry{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, errors.Wrap(err, "update enquiry")
	}
	if statusChanged {
		l.publishStatus(e)
	}
	return e, nil
}

// Delete removes an enquiry with its responses
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	res := l.db.WithContext(ctx).Delete(&domain.Enquiry{}, id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete enquiry")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (l *Ledger) publishStatus(e *domain.Enquiry) {
	l.recorder.Publish(events.Event{
		Topic:      events.TopicEnquiryStatus,
		EntityType: "enquiry",
		EntityID:   e.ID,
		Title:      "Enquiry from " + e.Name + " is " + e.Status,
		Detail:     e.Subject,
	})
	zap.L().Debug("enquiry status changed",
		zap.String("namespace", "enquiry"),
		zap.Int64("enquiry_id", e.ID),
		zap.String("status", e.Status),
	)
}

func (l *Ledger) load(ctx context.Context, db *gorm.DB, id int64) (*domain.Enquiry, error) {
	var e domain.Enquiry
	if err := db.WithContext(ctx).First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "load enquiry")
	}
	return &e, nil
}
