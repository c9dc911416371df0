package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	if a.appConfig.System.ReconcileEnabled {
		_, err = a.sched.AddFunc("@hourly", a.SchedReconcileUsageTask)
		if err != nil {
			zap.S().Errorf("init job error %s", err.Error())
		}
	}

	_, err = a.sched.AddFunc("@daily", a.SchedPurgeActivityTask)
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	a.sched.Start()
}

// SchedReconcileUsageTask repairs drifted category usage counters
func (a *Application) SchedReconcileUsageTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	fixes, err := a.ReconcileUsage()
	if err != nil {
		zap.L().Error("category usage reconcile failed", zap.String("namespace", "catalog"), zap.Error(err))
		return
	}
	for _, f := range fixes {
		zap.L().Warn("category usage drift corrected",
			zap.String("namespace", "catalog"),
			zap.String("category", f.Name),
			zap.Int64("from", f.From),
			zap.Int64("to", f.To),
			zap.Bool("created", f.Created),
		)
	}
}

// SchedPurgeActivityTask drops activity events past the retention window
func (a *Application) SchedPurgeActivityTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	days := a.appConfig.System.ActivityRetentionDays
	if days <= 0 {
		days = 180
	}
	n, err := a.recorder.PurgeOlderThan(context.Background(), days)
	if err != nil {
		zap.L().Error("activity purge failed", zap.String("namespace", "events"), zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("activity events purged", zap.String("namespace", "events"), zap.Int64("rows", n))
	}
}
