package app

import (
	"context"
	"sync"
	"testing"

	"github.com/bizsite/siteadmin/config"
	"github.com/bizsite/siteadmin/internal/database"
	"github.com/bizsite/siteadmin/internal/domain"
	"github.com/bizsite/siteadmin/pkg/common"
)

type recordingNotifier struct {
	mu        sync.Mutex
	received  []int64
	responses []string
}

func (n *recordingNotifier) SendNotification(_ context.Context, enq *domain.Enquiry) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = append(n.received, enq.ID)
	return nil
}

func (n *recordingNotifier) SendResponse(_ context.Context, _ *domain.Enquiry, resp domain.EnquiryResponse) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.responses = append(n.responses, resp.Message)
	return nil
}

func newTestApp(t *testing.T) (*Application, *recordingNotifier) {
	t.Helper()
	db, err := database.OpenMemory("app_" + t.Name())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	a := NewApplication(config.DefaultAppConfig())
	a.OverrideDB(db)
	n := &recordingNotifier{}
	a.OverrideNotifier(n)
	a.InitServices()
	return a, n
}

func TestCheckSuperCreatesAndRepairs(t *testing.T) {
	a, _ := newTestApp(t)
	a.checkSuper()

	var opr domain.SysOpr
	if err := a.DB().Where("username = ?", "admin").First(&opr).Error; err != nil {
		t.Fatalf("admin not created: %v", err)
	}
	if !common.CheckPassword(opr.Password, "siteadmin") {
		t.Fatal("default password does not verify")
	}

	a.DB().Model(&domain.SysOpr{}).Where("id = ?", opr.ID).Updates(map[string]interface{}{"status": common.DISABLED, "level": "viewer"})
	a.checkSuper()
	a.DB().First(&opr, opr.ID)
	if opr.Status != common.ENABLED || opr.Level != "super" {
		t.Fatalf("admin not repaired: %+v", opr)
	}
}

func TestCheckCategoriesIsIdempotent(t *testing.T) {
	a, _ := newTestApp(t)
	a.checkCategories()
	a.checkCategories()

	var total, product int64
	a.DB().Model(&domain.Category{}).Count(&total)
	a.DB().Model(&domain.Category{}).Where("type = ?", domain.CategoryTypeProduct).Count(&product)
	if total != 5 {
		t.Fatalf("expected 5 seeded categories, got %d", total)
	}
	if product != 0 {
		t.Fatalf("product categories must not be seeded, got %d", product)
	}
}

func TestEnquiryMailSubscribers(t *testing.T) {
	a, n := newTestApp(t)
	ctx := context.Background()

	e := &domain.Enquiry{Name: "Jane", Email: "jane@example.com", Message: "Quote please"}
	if err := a.Enquiries().Submit(ctx, e); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := a.Enquiries().AddResponse(ctx, e.ID, domain.EnquiryResponse{Message: "internal note"}); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if _, err := a.Enquiries().AddResponse(ctx, e.ID, domain.EnquiryResponse{Message: "mailed reply", SendEmail: true}); err != nil {
		t.Fatalf("respond: %v", err)
	}
	a.Events().WaitAsync()

	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.received) != 1 || n.received[0] != e.ID {
		t.Fatalf("expected one notification for %d, got %v", e.ID, n.received)
	}
	if len(n.responses) != 1 || n.responses[0] != "mailed reply" {
		t.Fatalf("expected only the mailed reply, got %v", n.responses)
	}
}

func TestPurgeAndReconcileTasks(t *testing.T) {
	a, _ := newTestApp(t)
	a.DB().Create(&domain.Product{ID: common.UUIDint64(), Name: "p", Category: "Pumps", Tags: []string{}})

	a.SchedReconcileUsageTask()
	var cat domain.Category
	if err := a.DB().Where("name = ?", "Pumps").First(&cat).Error; err != nil {
		t.Fatalf("reconcile did not create category: %v", err)
	}
	if cat.UsageCount != 1 {
		t.Fatalf("expected usage 1, got %d", cat.UsageCount)
	}

	// must not panic on an empty log
	a.SchedPurgeActivityTask()
}
