package app

import (
	"context"
	"os"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/bizsite/siteadmin/config"
	"github.com/bizsite/siteadmin/internal/catalog"
	"github.com/bizsite/siteadmin/internal/dashboard"
	"github.com/bizsite/siteadmin/internal/database"
	"github.com/bizsite/siteadmin/internal/domain"
	"github.com/bizsite/siteadmin/internal/enquiry"
	"github.com/bizsite/siteadmin/internal/events"
	"github.com/bizsite/siteadmin/internal/notify"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

type Application struct {
	appConfig  *config.AppConfig
	gormDB     *gorm.DB
	sched      *cron.Cron
	recorder   *events.Recorder
	usageSync  *catalog.UsageSync
	aggregator *dashboard.Aggregator
	ledger     *enquiry.Ledger
	notifier   notify.Notifier
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ EventsProvider    = (*Application)(nil)
	_ CatalogProvider   = (*Application)(nil)
	_ DashboardProvider = (*Application)(nil)
	_ EnquiryProvider   = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) Events() *events.Recorder {
	return a.recorder
}

func (a *Application) UsageSync() *catalog.UsageSync {
	return a.usageSync
}

func (a *Application) Dashboard() *dashboard.Aggregator {
	return a.aggregator
}

func (a *Application) Enquiries() *enquiry.Ledger {
	return a.ledger
}

// Init prepares everything the server needs: logging, database, services,
// default records and background jobs.
func (a *Application) Init(cfg *config.AppConfig) error {
	if err := a.InitCore(cfg); err != nil {
		return err
	}
	a.checkSuper()
	a.checkCategories()
	a.initJob()
	return nil
}

// InitCore opens the database and builds the services without seeding or
// scheduling anything. Command line tools use it directly.
func (a *Application) InitCore(cfg *config.AppConfig) error {
	a.appConfig = cfg
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg.Logger)

	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	db, err := database.Open(cfg.Database, cfg.System.Workdir)
	if err != nil {
		return err
	}
	a.gormDB = db
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(false); err != nil {
		return errors.Wrap(err, "database migration failed")
	}

	a.InitServices()
	return nil
}

func initLogger(cfg config.LogConfig) {
	var zapConfig zap.Config
	if cfg.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	var logger *zap.Logger
	if cfg.FileEnable {
		rotating := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}
		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(rotating),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}
	zap.ReplaceGlobals(logger)
}

// InitServices builds the domain services on top of the current database
// handle and attaches the mail subscribers.
func (a *Application) InitServices() {
	cfg := a.appConfig
	a.recorder = events.NewRecorder(a.gormDB)
	a.usageSync = catalog.NewUsageSync(catalog.NewGormCategoryRepository(a.gormDB))
	a.aggregator = dashboard.NewAggregator(a.gormDB, a.recorder, cfg.Dashboard.ProportionalTrend)
	a.ledger = enquiry.NewLedger(a.gormDB, a.recorder)
	if a.notifier == nil {
		a.notifier = notify.New(cfg.Mail)
	}
	a.subscribeNotifier()
}

// OverrideNotifier replaces the mail notifier; call before InitServices.
func (a *Application) OverrideNotifier(n notify.Notifier) {
	a.notifier = n
}

func (a *Application) subscribeNotifier() {
	err := a.recorder.SubscribeAsync(events.TopicEnquiryReceived, func(ev events.Event) {
		enq, ok := ev.Payload.(domain.Enquiry)
		if !ok {
			return
		}
		if err := a.notifier.SendNotification(context.Background(), &enq); err != nil {
			zap.L().Warn("enquiry notification failed",
				zap.String("namespace", "notify"),
				zap.Int64("enquiry_id", enq.ID),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		zap.L().Error("subscribe enquiry notifications failed", zap.String("namespace", "notify"), zap.Error(err))
	}

	err = a.recorder.SubscribeAsync(events.TopicEnquiryResponded, func(ev events.Event) {
		r, ok := ev.Payload.(enquiry.Responded)
		if !ok || !r.Response.SendEmail {
			return
		}
		if err := a.notifier.SendResponse(context.Background(), &r.Enquiry, r.Response); err != nil {
			zap.L().Warn("enquiry response mail failed",
				zap.String("namespace", "notify"),
				zap.Int64("enquiry_id", r.Enquiry.ID),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		zap.L().Error("subscribe response mails failed", zap.String("namespace", "notify"), zap.Error(err))
	}
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEBUG_TRACE") != "" {
				debug.PrintStack()
			}
			if err2, ok := err1.(error); ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return database.Migrate(db)
}

// ReconcileUsage runs the category usage repair procedure once
func (a *Application) ReconcileUsage() ([]catalog.Correction, error) {
	return a.usageSync.Reconcile(context.Background())
}

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	a.recorder.WaitAsync()
	if a.gormDB != nil {
		if sqlDB, err := a.gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = zap.L().Sync()
}
