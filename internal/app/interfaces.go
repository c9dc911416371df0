package app

import (
	"github.com/bizsite/siteadmin/config"
	"github.com/bizsite/siteadmin/internal/catalog"
	"github.com/bizsite/siteadmin/internal/dashboard"
	"github.com/bizsite/siteadmin/internal/enquiry"
	"github.com/bizsite/siteadmin/internal/events"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// EventsProvider provides the domain event bus and activity log
type EventsProvider interface {
	Events() *events.Recorder
}

// CatalogProvider provides the category usage synchronizer
type CatalogProvider interface {
	UsageSync() *catalog.UsageSync
}

// DashboardProvider provides the dashboard aggregator
type DashboardProvider interface {
	Dashboard() *dashboard.Aggregator
}

// EnquiryProvider provides the enquiry ledger
type EnquiryProvider interface {
	Enquiries() *enquiry.Ledger
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	EventsProvider
	CatalogProvider
	DashboardProvider
	EnquiryProvider

	// MigrateDB creates or updates the schema
	MigrateDB(track bool) error
	// ReconcileUsage recomputes category usage counters from the products
	ReconcileUsage() ([]catalog.Correction, error)
}
