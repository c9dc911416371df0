package adminapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bizsite/siteadmin/config"
	"github.com/bizsite/siteadmin/internal/app"
	"github.com/bizsite/siteadmin/internal/database"
	"github.com/bizsite/siteadmin/internal/domain"
	"github.com/bizsite/siteadmin/internal/notify"
	"github.com/bizsite/siteadmin/internal/webserver"
	"github.com/bizsite/siteadmin/pkg/common"
	"gorm.io/gorm"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
	Pagination *webserver.Pagination `json:"pagination"`
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	db      *gorm.DB
	token   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.OpenMemory("adminapi_" + t.Name())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := config.DefaultAppConfig()
	cfg.Auth.Secret = "test-secret"
	a := app.NewApplication(cfg)
	a.OverrideDB(db)
	a.OverrideNotifier(notify.NopNotifier{})
	a.InitServices()
	t.Cleanup(func() { a.Events().WaitAsync() })

	hash, err := common.HashPassword("secret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := db.Create(&domain.SysOpr{
		ID:       common.UUIDint64(),
		Username: "admin",
		Password: hash,
		Level:    "super",
		Status:   common.ENABLED,
	}).Error; err != nil {
		t.Fatalf("create operator: %v", err)
	}

	webserver.Init(a)
	Init()

	ts := &testServer{t: t, handler: webserver.Handler(), db: db}
	rec, env := ts.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "admin", "password": "secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	ts.decode(env.Data, &login)
	ts.token = login.Token
	return ts
}

func (ts *testServer) request(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	ts.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			ts.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) do(method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	ts.t.Helper()
	rec := ts.request(method, path, body, ts.token)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		ts.t.Fatalf("%s %s: decode envelope: %v (%s)", method, path, err, rec.Body.String())
	}
	return rec, env
}

func (ts *testServer) decode(raw json.RawMessage, v interface{}) {
	ts.t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		ts.t.Fatalf("decode data: %v (%s)", err, string(raw))
	}
}

func (ts *testServer) expect(rec *httptest.ResponseRecorder, env envelope, status int, code string) {
	ts.t.Helper()
	if rec.Code != status {
		ts.t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	if code == "" {
		if !env.Success {
			ts.t.Fatalf("expected success, got %s", rec.Body.String())
		}
		return
	}
	if env.Success || env.Error == nil || env.Error.Code != code {
		ts.t.Fatalf("expected error %s, got %s", code, rec.Body.String())
	}
}

func (ts *testServer) usage(name string) int64 {
	ts.t.Helper()
	var cat domain.Category
	if err := ts.db.Where("name = ? AND type = ?", name, domain.CategoryTypeProduct).First(&cat).Error; err != nil {
		ts.t.Fatalf("load category %s: %v", name, err)
	}
	return cat.UsageCount
}

func TestAdminRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(http.MethodGet, "/api/v1/products", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec = ts.request(http.MethodGet, "/api/v1/products", nil, "not-a-token")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rec.Code)
	}

	rec, env := ts.do(http.MethodGet, "/api/v1/auth/me", nil)
	ts.expect(rec, env, http.StatusOK, "")
	var me domain.SysOpr
	ts.decode(env.Data, &me)
	if me.Username != "admin" {
		t.Fatalf("unexpected operator %+v", me)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.request(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "admin", "password": "wrong"}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec = ts.request(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "admin"}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing password, got %d", rec.Code)
	}
}

func TestProductLifecycleMaintainsUsage(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(http.MethodPost, "/api/v1/categories", map[string]string{"name": "Pumps", "type": "product"})
	ts.expect(rec, env, http.StatusCreated, "")

	rec, env = ts.do(http.MethodPost, "/api/v1/products", map[string]interface{}{"name": "P1", "category": "Pumps", "price": 10})
	ts.expect(rec, env, http.StatusCreated, "")
	var p domain.Product
	ts.decode(env.Data, &p)
	if ts.usage("Pumps") != 1 {
		t.Fatalf("expected Pumps usage 1, got %d", ts.usage("Pumps"))
	}

	rec, env = ts.do(http.MethodPatch, fmt.Sprintf("/api/v1/products/%d", p.ID), map[string]interface{}{"category": "Valves"})
	ts.expect(rec, env, http.StatusOK, "")
	if ts.usage("Pumps") != 0 || ts.usage("Valves") != 1 {
		t.Fatalf("expected Pumps 0 and Valves 1, got %d and %d", ts.usage("Pumps"), ts.usage("Valves"))
	}

	rec, env = ts.do(http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", p.ID), nil)
	ts.expect(rec, env, http.StatusOK, "")
	if ts.usage("Valves") != 0 {
		t.Fatalf("expected Valves 0, got %d", ts.usage("Valves"))
	}

	rec, env = ts.do(http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", p.ID), nil)
	ts.expect(rec, env, http.StatusNotFound, "PRODUCT_NOT_FOUND")
}

func TestProductCategoryMatchesExistingSpelling(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(http.MethodPost, "/api/v1/categories", map[string]string{"name": "Pumps"})
	ts.expect(rec, env, http.StatusCreated, "")

	rec, env = ts.do(http.MethodPost, "/api/v1/products", map[string]interface{}{"name": "P1", "category": "pumps"})
	ts.expect(rec, env, http.StatusCreated, "")
	var p domain.Product
	ts.decode(env.Data, &p)
	if p.Category != "Pumps" {
		t.Fatalf("expected stored spelling Pumps, got %q", p.Category)
	}

	rec, env = ts.do(http.MethodPost, "/api/v1/products", map[string]interface{}{"name": "P2", "category": "Valves"})
	ts.expect(rec, env, http.StatusCreated, "")
	ts.decode(env.Data, &p)
	rec, env = ts.do(http.MethodPatch, fmt.Sprintf("/api/v1/products/%d", p.ID), map[string]interface{}{"category": "PUMPS"})
	ts.expect(rec, env, http.StatusOK, "")
	ts.decode(env.Data, &p)
	if p.Category != "Pumps" {
		t.Fatalf("expected update to use Pumps, got %q", p.Category)
	}

	var rows int64
	ts.db.Model(&domain.Category{}).Where("LOWER(name) = ?", "pumps").Count(&rows)
	if rows != 1 || ts.usage("Pumps") != 2 || ts.usage("Valves") != 0 {
		t.Fatalf("expected one Pumps row with usage 2, got rows=%d usage=%d valves=%d", rows, ts.usage("Pumps"), ts.usage("Valves"))
	}
}

func TestProductWithoutCategoryIsUncategorized(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(http.MethodPost, "/api/v1/products", map[string]interface{}{"name": "Loose"})
	ts.expect(rec, env, http.StatusCreated, "")
	var p domain.Product
	ts.decode(env.Data, &p)
	if p.Category != domain.SentinelCategory || p.Status != domain.ProductStatusActive {
		t.Fatalf("unexpected defaults %+v", p)
	}
	var n int64
	ts.db.Model(&domain.Category{}).Count(&n)
	if n != 0 {
		t.Fatalf("sentinel must not create a category, got %d rows", n)
	}
}

func TestProductValidationAndDuplicateSKU(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(http.MethodPost, "/api/v1/products", map[string]interface{}{"price": 5})
	ts.expect(rec, env, http.StatusBadRequest, "VALIDATION_ERROR")

	rec, env = ts.do(http.MethodPost, "/api/v1/products", map[string]interface{}{"name": "A", "sku": "SKU-1"})
	ts.expect(rec, env, http.StatusCreated, "")
	rec, env = ts.do(http.MethodPost, "/api/v1/products", map[string]interface{}{"name": "B", "sku": "SKU-1"})
	ts.expect(rec, env, http.StatusBadRequest, "PRODUCT_SKU_EXISTS")

	// products without a SKU never collide
	for i := 0; i < 2; i++ {
		rec, env = ts.do(http.MethodPost, "/api/v1/products", map[string]interface{}{"name": "NoSKU", "sku": ""})
		ts.expect(rec, env, http.StatusCreated, "")
	}

	rec, env = ts.do(http.MethodGet, "/api/v1/products/abc", nil)
	ts.expect(rec, env, http.StatusBadRequest, "INVALID_ID")
	rec, env = ts.do(http.MethodGet, "/api/v1/products/42", nil)
	ts.expect(rec, env, http.StatusNotFound, "PRODUCT_NOT_FOUND")
}

func TestProductListPaginationAndFilters(t *testing.T) {
	ts := newTestServer(t)
	for _, body := range []map[string]interface{}{
		{"name": "Steel pump", "category": "Pumps"},
		{"name": "Brass valve", "category": "Valves"},
		{"name": "Mini pump", "category": "Pumps", "status": "Inactive"},
	} {
		rec, env := ts.do(http.MethodPost, "/api/v1/products", body)
		ts.expect(rec, env, http.StatusCreated, "")
	}

	rec, env := ts.do(http.MethodGet, "/api/v1/products?limit=2&page=1", nil)
	ts.expect(rec, env, http.StatusOK, "")
	var rows []domain.Product
	ts.decode(env.Data, &rows)
	if len(rows) != 2 || env.Pagination == nil || env.Pagination.Total != 3 || env.Pagination.TotalPages != 2 {
		t.Fatalf("unexpected page: %d rows, %+v", len(rows), env.Pagination)
	}

	rec, env = ts.do(http.MethodGet, "/api/v1/products?q=PUMP&sortBy=name&order=asc", nil)
	ts.expect(rec, env, http.StatusOK, "")
	ts.decode(env.Data, &rows)
	if len(rows) != 2 || rows[0].Name != "Mini pump" {
		t.Fatalf("unexpected search result %+v", rows)
	}

	rec, env = ts.do(http.MethodGet, "/api/v1/products?category=Valves", nil)
	ts.expect(rec, env, http.StatusOK, "")
	ts.decode(env.Data, &rows)
	if len(rows) != 1 || rows[0].Name != "Brass valve" {
		t.Fatalf("unexpected category filter result %+v", rows)
	}

	// the public catalog hides inactive products and needs no token
	rec = ts.request(http.MethodGet, "/api/v1/public/products?category=Pumps", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("public list: %d", rec.Code)
	}
	var pub envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &pub); err != nil {
		t.Fatalf("decode: %v", err)
	}
	ts.decode(pub.Data, &rows)
	if len(rows) != 1 || rows[0].Name != "Steel pump" {
		t.Fatalf("unexpected public list %+v", rows)
	}

	rec = ts.request(http.MethodPost, fmt.Sprintf("/api/v1/products/%d/view", rows[0].ID), nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("record view: %d %s", rec.Code, rec.Body.String())
	}
	var views int64
	ts.db.Model(&domain.Product{}).Where("id = ?", rows[0].ID).Pluck("views", &views)
	if views != 1 {
		t.Fatalf("expected 1 view, got %d", views)
	}
}

func TestCategoryRenameAndDelete(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(http.MethodPost, "/api/v1/categories", map[string]string{"name": "A"})
	ts.expect(rec, env, http.StatusCreated, "")
	var cat domain.Category
	ts.decode(env.Data, &cat)
	if cat.Type != domain.CategoryTypeProduct {
		t.Fatalf("expected default product type, got %q", cat.Type)
	}
	for _, name := range []string{"p1", "p2"} {
		rec, env = ts.do(http.MethodPost, "/api/v1/products", map[string]interface{}{"name": name, "category": "A"})
		ts.expect(rec, env, http.StatusCreated, "")
	}

	rec, env = ts.do(http.MethodPost, "/api/v1/categories", map[string]string{"name": "a"})
	ts.expect(rec, env, http.StatusBadRequest, "CATEGORY_EXISTS")

	rec, env = ts.do(http.MethodPatch, fmt.Sprintf("/api/v1/categories/%d", cat.ID), map[string]string{"name": "B"})
	ts.expect(rec, env, http.StatusOK, "")
	var renamed struct {
		Category        domain.Category `json:"category"`
		ProductsUpdated int64           `json:"productsUpdated"`
	}
	ts.decode(env.Data, &renamed)
	if renamed.ProductsUpdated != 2 || renamed.Category.Name != "B" || renamed.Category.UsageCount != 2 {
		t.Fatalf("unexpected rename result %+v", renamed)
	}
	var left int64
	ts.db.Model(&domain.Product{}).Where("category = ?", "A").Count(&left)
	if left != 0 {
		t.Fatalf("expected no products left on A, got %d", left)
	}

	rec, env = ts.do(http.MethodDelete, fmt.Sprintf("/api/v1/categories/%d", cat.ID), nil)
	ts.expect(rec, env, http.StatusOK, "")
	var deleted struct {
		Name            string `json:"name"`
		ProductsUpdated int64  `json:"productsUpdated"`
	}
	ts.decode(env.Data, &deleted)
	var renames int64
	ts.db.Model(&domain.ActivityEvent{}).Where("topic = ? AND detail LIKE ?", "category:renamed", "A renamed to B%").Count(&renames)
	if renames != 1 {
		t.Fatalf("expected one rename activity naming the old category, got %d", renames)
	}
	if deleted.Name != "B" || deleted.ProductsUpdated != 2 {
		t.Fatalf("unexpected delete result %+v", deleted)
	}
	var sentinel int64
	ts.db.Model(&domain.Product{}).Where("category = ?", domain.SentinelCategory).Count(&sentinel)
	if sentinel != 2 {
		t.Fatalf("expected 2 products moved to the sentinel, got %d", sentinel)
	}

	rec, env = ts.do(http.MethodDelete, fmt.Sprintf("/api/v1/categories/%d", cat.ID), nil)
	ts.expect(rec, env, http.StatusNotFound, "CATEGORY_NOT_FOUND")
}

func TestCategoryReconcileEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec, env := ts.do(http.MethodPost, "/api/v1/products", map[string]interface{}{"name": "p", "category": "Pumps"})
	ts.expect(rec, env, http.StatusCreated, "")
	ts.db.Model(&domain.Category{}).Where("name = ?", "Pumps").Update("usage_count", -3)

	rec, env = ts.do(http.MethodGet, "/api/v1/categories?type=product", nil)
	ts.expect(rec, env, http.StatusOK, "")
	var cats []domain.Category
	ts.decode(env.Data, &cats)
	if len(cats) != 1 || cats[0].UsageCount != 0 {
		t.Fatalf("negative counts must read as zero, got %+v", cats)
	}

	rec, env = ts.do(http.MethodPost, "/api/v1/categories/reconcile", nil)
	ts.expect(rec, env, http.StatusOK, "")
	if ts.usage("Pumps") != 1 {
		t.Fatalf("expected reconciled usage 1, got %d", ts.usage("Pumps"))
	}
}

func TestEnquiryWorkflow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(http.MethodPost, "/api/v1/enquiries", map[string]string{"name": "Jane", "email": "not-an-email", "message": "hi"}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad email, got %d", rec.Code)
	}
	rec = ts.request(http.MethodPost, "/api/v1/enquiries", map[string]string{
		"name": "Jane", "email": "jane@example.com", "message": "Quote for 10 pumps", "product": "Steel pump",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var submitted struct {
		ID string `json:"id"`
	}
	ts.decode(env.Data, &submitted)
	path := "/api/v1/enquiries/" + submitted.ID

	rec, env = ts.do(http.MethodGet, "/api/v1/enquiries?isRead=false", nil)
	ts.expect(rec, env, http.StatusOK, "")
	if env.Pagination.Total != 1 {
		t.Fatalf("expected 1 unread enquiry, got %d", env.Pagination.Total)
	}

	for i := 0; i < 2; i++ {
		rec, env = ts.do(http.MethodGet, path, nil)
		ts.expect(rec, env, http.StatusOK, "")
		var e domain.Enquiry
		ts.decode(env.Data, &e)
		if !e.IsRead {
			t.Fatalf("fetch %d: expected enquiry marked read", i)
		}
	}

	rec, env = ts.do(http.MethodPost, path+"/responses", map[string]interface{}{"message": "  "})
	ts.expect(rec, env, http.StatusBadRequest, "MISSING_MESSAGE")

	rec, env = ts.do(http.MethodPost, path+"/responses", map[string]interface{}{"message": "We will call you"})
	ts.expect(rec, env, http.StatusOK, "")
	var e domain.Enquiry
	ts.decode(env.Data, &e)
	if e.Status != domain.EnquiryStatusInProgress || len(e.Responses) != 1 || e.Responses[0].RespondedBy != "admin" {
		t.Fatalf("unexpected enquiry after first response %+v", e)
	}

	rec, env = ts.do(http.MethodPatch, path, map[string]interface{}{"status": "resolved", "tags": []string{"pumps"}})
	ts.expect(rec, env, http.StatusOK, "")
	rec, env = ts.do(http.MethodPost, path+"/responses", map[string]interface{}{"message": "Follow-up"})
	ts.expect(rec, env, http.StatusOK, "")
	ts.decode(env.Data, &e)
	if e.Status != domain.EnquiryStatusResolved || e.ResponseCount != 2 {
		t.Fatalf("second response must not change status: %+v", e)
	}

	rec, env = ts.do(http.MethodPatch, path, map[string]interface{}{"status": "archived"})
	ts.expect(rec, env, http.StatusBadRequest, "VALIDATION_ERROR")

	rec, env = ts.do(http.MethodPatch, path+"/star", nil)
	ts.expect(rec, env, http.StatusOK, "")
	ts.decode(env.Data, &e)
	if !e.IsStarred {
		t.Fatal("expected starred after first toggle")
	}
	rec, env = ts.do(http.MethodPatch, path+"/star", nil)
	ts.expect(rec, env, http.StatusOK, "")
	ts.decode(env.Data, &e)
	if e.IsStarred {
		t.Fatal("expected unstarred after second toggle")
	}

	rec = ts.request(http.MethodGet, "/api/v1/enquiries/export?status=resolved", nil, ts.token)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "id,created_at,name,email") || !strings.Contains(lines[1], "jane@example.com") {
		t.Fatalf("unexpected csv:\n%s", rec.Body.String())
	}

	rec, env = ts.do(http.MethodGet, "/api/v1/enquiries?from=2000-01-01&to=2000-12-31", nil)
	ts.expect(rec, env, http.StatusOK, "")
	if env.Pagination.Total != 0 {
		t.Fatalf("expected date filter to exclude the enquiry, got %d", env.Pagination.Total)
	}
	rec, env = ts.do(http.MethodGet, "/api/v1/enquiries?from=yesterday-ish", nil)
	ts.expect(rec, env, http.StatusBadRequest, "INVALID_DATE")

	rec, env = ts.do(http.MethodDelete, path, nil)
	ts.expect(rec, env, http.StatusOK, "")
	rec, env = ts.do(http.MethodPost, path+"/responses", map[string]interface{}{"message": "late"})
	ts.expect(rec, env, http.StatusNotFound, "ENQUIRY_NOT_FOUND")
}

func TestUniquenessChecksReportDatabaseErrors(t *testing.T) {
	ts := newTestServer(t)
	sqlDB, err := ts.db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	_ = sqlDB.Close()

	rec, env := ts.do(http.MethodPost, "/api/v1/products", map[string]interface{}{"name": "A", "sku": "SKU-1"})
	ts.expect(rec, env, http.StatusInternalServerError, "DATABASE_ERROR")
	rec, env = ts.do(http.MethodPost, "/api/v1/brochures", map[string]interface{}{"title": "Catalog", "fileUrl": "/c.pdf"})
	ts.expect(rec, env, http.StatusInternalServerError, "DATABASE_ERROR")
}

func TestBrochureSingleActive(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(http.MethodGet, "/api/v1/brochures/active", nil, "")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "NO_ACTIVE_BROCHURE") {
		t.Fatalf("expected 404 without an active brochure, got %d %s", rec.Code, rec.Body.String())
	}

	ids := make([]int64, 0, 2)
	for _, title := range []string{"Catalog 2025", "Catalog 2026"} {
		rec, env := ts.do(http.MethodPost, "/api/v1/brochures", map[string]interface{}{"title": title, "fileUrl": "/files/" + title + ".pdf"})
		ts.expect(rec, env, http.StatusCreated, "")
		var b domain.Brochure
		ts.decode(env.Data, &b)
		ids = append(ids, b.ID)
	}
	rec, env := ts.do(http.MethodPost, "/api/v1/brochures", map[string]interface{}{"title": "catalog 2025", "fileUrl": "/x.pdf"})
	ts.expect(rec, env, http.StatusBadRequest, "DUPLICATE_TITLE")

	for _, id := range ids {
		rec, env = ts.do(http.MethodPatch, fmt.Sprintf("/api/v1/brochures/%d/activate", id), nil)
		ts.expect(rec, env, http.StatusOK, "")
	}
	var active []domain.Brochure
	ts.db.Where("is_active = ?", true).Find(&active)
	if len(active) != 1 || active[0].ID != ids[1] {
		t.Fatalf("expected only the last activated brochure active, got %+v", active)
	}

	rec = ts.request(http.MethodGet, "/api/v1/brochures/active", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Catalog 2026") {
		t.Fatalf("unexpected active brochure: %d %s", rec.Code, rec.Body.String())
	}
	var served envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &served); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var b domain.Brochure
	ts.decode(served.Data, &b)
	var stored int64
	ts.db.Model(&domain.Brochure{}).Where("id = ?", ids[1]).Pluck("downloads", &stored)
	if b.Downloads != 1 || stored != 1 {
		t.Fatalf("expected 1 download served and stored, got %d and %d", b.Downloads, stored)
	}

	rec, env = ts.do(http.MethodPatch, "/api/v1/brochures/12345/activate", nil)
	ts.expect(rec, env, http.StatusNotFound, "BROCHURE_NOT_FOUND")
}

func TestClientNameIsUnique(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(http.MethodPost, "/api/v1/clients", map[string]interface{}{"name": "Acme", "status": "completed"})
	ts.expect(rec, env, http.StatusCreated, "")
	rec, env = ts.do(http.MethodPost, "/api/v1/clients", map[string]interface{}{"name": "ACME"})
	ts.expect(rec, env, http.StatusBadRequest, "DUPLICATE_CLIENT")
	rec, env = ts.do(http.MethodPost, "/api/v1/clients", map[string]interface{}{"name": "Other", "status": "unknown"})
	ts.expect(rec, env, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestServiceAndGalleryCrud(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(http.MethodPost, "/api/v1/services", map[string]interface{}{"title": "Installation", "features": []string{"on-site", "on-site", ""}})
	ts.expect(rec, env, http.StatusCreated, "")
	var s domain.Service
	ts.decode(env.Data, &s)
	if s.Status != domain.ServiceStatusActive || len(s.Features) != 1 {
		t.Fatalf("unexpected service %+v", s)
	}
	rec, env = ts.do(http.MethodPut, fmt.Sprintf("/api/v1/services/%d", s.ID), map[string]interface{}{"status": "completed"})
	ts.expect(rec, env, http.StatusOK, "")
	ts.decode(env.Data, &s)
	if s.Status != domain.ServiceStatusCompleted || s.Title != "Installation" {
		t.Fatalf("partial update lost fields: %+v", s)
	}

	rec, env = ts.do(http.MethodPost, "/api/v1/gallery", map[string]interface{}{"title": "Plant"})
	ts.expect(rec, env, http.StatusBadRequest, "VALIDATION_ERROR")
	rec, env = ts.do(http.MethodPost, "/api/v1/gallery", map[string]interface{}{"title": "Plant", "imageUrl": "/img/plant.jpg"})
	ts.expect(rec, env, http.StatusCreated, "")
	var img domain.GalleryImage
	ts.decode(env.Data, &img)
	rec, env = ts.do(http.MethodDelete, fmt.Sprintf("/api/v1/gallery/%d", img.ID), nil)
	ts.expect(rec, env, http.StatusOK, "")
	rec, env = ts.do(http.MethodGet, fmt.Sprintf("/api/v1/gallery/%d", img.ID), nil)
	ts.expect(rec, env, http.StatusNotFound, "IMAGE_NOT_FOUND")
}

func TestDashboardStatsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	rec, env := ts.do(http.MethodPost, "/api/v1/products", map[string]interface{}{"name": "Steel pump", "category": "Pumps"})
	ts.expect(rec, env, http.StatusCreated, "")

	rec, env = ts.do(http.MethodGet, "/api/v1/dashboard/stats?timeRange=30days", nil)
	ts.expect(rec, env, http.StatusOK, "")
	var snap struct {
		TimeRange string `json:"timeRange"`
		Metrics   map[string]struct {
			Value      int64   `json:"value"`
			Percentage int64   `json:"percentage"`
			Trend      []int64 `json:"trend"`
		} `json:"metrics"`
		BusinessMetrics struct {
			SuccessRate string `json:"successRate"`
		} `json:"businessMetrics"`
		RecentActivity []struct {
			Topic string `json:"topic"`
		} `json:"recentActivity"`
	}
	ts.decode(env.Data, &snap)
	if snap.TimeRange != "30days" {
		t.Fatalf("unexpected time range %q", snap.TimeRange)
	}
	for name, card := range snap.Metrics {
		if len(card.Trend) != 7 {
			t.Fatalf("%s: expected 7 trend points, got %d", name, len(card.Trend))
		}
	}
	if snap.Metrics["totalProducts"].Value != 1 || snap.Metrics["totalProducts"].Percentage != 100 {
		t.Fatalf("unexpected product card %+v", snap.Metrics["totalProducts"])
	}
	if snap.Metrics["newEnquiries"].Value != 0 || snap.Metrics["newEnquiries"].Percentage != 0 {
		t.Fatalf("unexpected enquiry card %+v", snap.Metrics["newEnquiries"])
	}
	if snap.BusinessMetrics.SuccessRate != "95%" {
		t.Fatalf("expected placeholder success rate, got %q", snap.BusinessMetrics.SuccessRate)
	}
	if len(snap.RecentActivity) == 0 || snap.RecentActivity[0].Topic != "product:created" {
		t.Fatalf("expected product activity in the feed, got %+v", snap.RecentActivity)
	}
}

func TestDashboardActivityIsPaged(t *testing.T) {
	ts := newTestServer(t)
	for i := 0; i < 5; i++ {
		rec, env := ts.do(http.MethodPost, "/api/v1/products", map[string]interface{}{"name": fmt.Sprintf("P%d", i)})
		ts.expect(rec, env, http.StatusCreated, "")
	}

	seen := map[int64]bool{}
	for page := 1; page <= 3; page++ {
		rec, env := ts.do(http.MethodGet, fmt.Sprintf("/api/v1/dashboard/activity?page=%d&limit=2", page), nil)
		ts.expect(rec, env, http.StatusOK, "")
		if env.Pagination == nil || env.Pagination.Total != 5 || env.Pagination.TotalPages != 3 || env.Pagination.Page != page {
			t.Fatalf("page %d: unexpected pagination %+v", page, env.Pagination)
		}
		var rows []domain.ActivityEvent
		ts.decode(env.Data, &rows)
		want := 2
		if page == 3 {
			want = 1
		}
		if len(rows) != want {
			t.Fatalf("page %d: expected %d events, got %d", page, want, len(rows))
		}
		for _, row := range rows {
			if seen[row.ID] {
				t.Fatalf("page %d: event %d repeated", page, row.ID)
			}
			seen[row.ID] = true
		}
	}
}
