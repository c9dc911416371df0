// Package dashboard composes the admin overview from every site collection.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bizsite/siteadmin/internal/domain"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	topProductsLimit   = 4
	recentClientsLimit = 3
	activityLimit      = 10
	// a top product with more enquiries than this is trending up
	topProductUpThreshold = 30
)

// FeedSource supplies the newest activity log entries
type FeedSource interface {
	Recent(ctx context.Context, limit int) ([]domain.ActivityEvent, error)
}

// Aggregator reads all collections in parallel and never writes
type Aggregator struct {
	db           *gorm.DB
	feed         FeedSource
	proportional bool
	now          func() time.Time
}

// NewAggregator creates an aggregator. With proportional set the trend
// buckets span the requested range instead of the last 7 days.
func NewAggregator(db *gorm.DB, feed FeedSource, proportional bool) *Aggregator {
	return &Aggregator{db: db, feed: feed, proportional: proportional, now: time.Now}
}

type scopeFunc func(*gorm.DB) *gorm.DB

func activeLikeServices(db *gorm.DB) *gorm.DB {
	return db.Where("status IN ?", domain.ActiveLikeServiceStatuses)
}

type metricSource struct {
	model interface{}
	scope scopeFunc
	card  *MetricCard
}

type responseGap struct {
	CreatedAt       time.Time
	FirstResponseAt *time.Time
}

type groupCount struct {
	Status string
	Total  int64
}

// Stats builds the snapshot for timeRange. Any failing query fails the
// whole snapshot.
func (a *Aggregator) Stats(ctx context.Context, timeRange string) (*Snapshot, error) {
	tr := ParseTimeRange(timeRange)
	now := a.now()
	start, previousStart := tr.Windows(now)
	buckets := TrendBuckets(now, start, a.proportional)

	snap := &Snapshot{TimeRange: tr.Key, StartDate: start, GeneratedAt: now}
	sources := []metricSource{
		{model: &domain.Product{}, card: &snap.Metrics.TotalProducts},
		{model: &domain.Service{}, scope: activeLikeServices, card: &snap.Metrics.ActiveServices},
		{model: &domain.GalleryImage{}, card: &snap.Metrics.GalleryImages},
		{model: &domain.Enquiry{}, card: &snap.Metrics.NewEnquiries},
	}

	var (
		current    = make([]int64, len(sources))
		previous   = make([]int64, len(sources))
		trendTimes = make([][]time.Time, len(sources))

		totalClients  int64
		completed     int64
		unread        int64
		uncategorized int64
		gaps          []responseGap
		histogram     []groupCount
		topProducts   []TopProduct
		clients       []domain.Client
		events        []domain.ActivityEvent
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			return a.query(gctx, src.model, src.scope).
				Where("created_at >= ? AND created_at <= ?", start, now).
				Count(&current[i]).Error
		})
		g.Go(func() error {
			return a.query(gctx, src.model, src.scope).
				Where("created_at >= ? AND created_at < ?", previousStart, start).
				Count(&previous[i]).Error
		})
		g.Go(func() error {
			return a.query(gctx, src.model, src.scope).
				Where("created_at >= ?", buckets[0].From).
				Pluck("created_at", &trendTimes[i]).Error
		})
	}
	g.Go(func() error {
		return a.query(gctx, &domain.Client{}, nil).Count(&totalClients).Error
	})
	g.Go(func() error {
		return a.query(gctx, &domain.Client{}, nil).
			Where("status = ?", domain.ClientStatusCompleted).
			Count(&completed).Error
	})
	g.Go(func() error {
		return a.query(gctx, &domain.Enquiry{}, nil).
			Where("is_read = ?", false).
			Count(&unread).Error
	})
	g.Go(func() error {
		return a.query(gctx, &domain.Product{}, nil).
			Where("category = ?", domain.SentinelCategory).
			Count(&uncategorized).Error
	})
	g.Go(func() error {
		return a.query(gctx, &domain.Enquiry{}, nil).
			Select("created_at, first_response_at").
			Where("response_count > 0 AND first_response_at IS NOT NULL").
			Scan(&gaps).Error
	})
	g.Go(func() error {
		return a.query(gctx, &domain.Enquiry{}, nil).
			Select("status, COUNT(*) AS total").
			Group("status").
			Scan(&histogram).Error
	})
	g.Go(func() error {
		return a.db.WithContext(gctx).
			Table(domain.Product{}.TableName() + " AS p").
			Select("p.name AS name, p.category AS category, COUNT(DISTINCT e.id) AS enquiries").
			Joins("JOIN " + domain.Enquiry{}.TableName() + " AS e ON e.product = p.name").
			Group("p.name, p.category").
			Order("enquiries DESC").
			Order("p.name ASC").
			Limit(topProductsLimit).
			Scan(&topProducts).Error
	})
	g.Go(func() error {
		return a.db.WithContext(gctx).
			Order("created_at DESC").
			Limit(recentClientsLimit).
			Find(&clients).Error
	})
	if a.feed != nil {
		g.Go(func() error {
			var err error
			events, err = a.feed.Recent(gctx, activityLimit)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		zap.L().Error("dashboard aggregation failed",
			zap.String("namespace", "dashboard"),
			zap.String("time_range", tr.Key),
			zap.Error(err),
		)
		return nil, errors.Wrap(err, "aggregate dashboard")
	}

	for i, src := range sources {
		*src.card = MetricCard{
			Value:      current[i],
			Change:     current[i] - previous[i],
			Percentage: PercentageChange(current[i], previous[i]),
			Trend:      countInto(buckets, trendTimes[i]),
		}
	}

	statusCounts, totalEnquiries := statusHistogram(histogram)
	snap.EnquiryStatus = statusCounts

	snap.BusinessMetrics = BusinessMetrics{
		TotalClients:      totalClients,
		CompletedProjects: completed,
		AvgResponseTime:   averageResponseTime(gaps),
		SuccessRate:       successRate(countOf(statusCounts, domain.EnquiryStatusResolved), totalEnquiries),
	}

	for i := range topProducts {
		tp := &topProducts[i]
		tp.Trend = "down"
		if tp.Enquiries > topProductUpThreshold {
			tp.Trend = "up"
		}
		if totalEnquiries > 0 {
			tp.Percentage = roundHalfUp(float64(tp.Enquiries) / float64(totalEnquiries) * 100)
		}
		if tp.Percentage > 100 {
			tp.Percentage = 100
		}
	}
	snap.TopProducts = nonNil(topProducts)

	snap.RecentClients = make([]RecentClient, 0, len(clients))
	for _, c := range clients {
		snap.RecentClients = append(snap.RecentClients, RecentClient{
			ID:        c.ID,
			Name:      c.Name,
			Company:   c.Company,
			Industry:  c.Industry,
			Status:    c.Status,
			CreatedAt: c.CreatedAt,
		})
	}

	snap.RecentActivity = make([]Activity, 0, len(events))
	for _, ev := range events {
		snap.RecentActivity = append(snap.RecentActivity, Activity{
			ID:       ev.ID,
			Type:     ev.EntityType,
			Topic:    ev.Topic,
			EntityID: ev.EntityID,
			Title:    ev.Title,
			Detail:   ev.Detail,
			Time:     ev.CreatedAt,
		})
	}

	snap.PendingTasks = pendingTasks(
		countOf(statusCounts, domain.EnquiryStatusNew),
		unread,
		countOf(statusCounts, domain.EnquiryStatusInProgress),
		uncategorized,
	)
	return snap, nil
}

func (a *Aggregator) query(ctx context.Context, model interface{}, scope scopeFunc) *gorm.DB {
	tx := a.db.WithContext(ctx).Model(model)
	if scope != nil {
		tx = scope(tx)
	}
	return tx
}

// statusHistogram lists the known statuses in display order, zero filled,
// followed by any unexpected values sorted by name.
func statusHistogram(rows []groupCount) ([]StatusCount, int64) {
	byStatus := make(map[string]int64, len(rows))
	var total int64
	for _, r := range rows {
		byStatus[r.Status] += r.Total
		total += r.Total
	}
	out := make([]StatusCount, 0, len(byStatus)+len(domain.EnquiryStatuses))
	for _, s := range domain.EnquiryStatuses {
		out = append(out, StatusCount{Status: s, Count: byStatus[s]})
		delete(byStatus, s)
	}
	extra := make([]string, 0, len(byStatus))
	for s := range byStatus {
		extra = append(extra, s)
	}
	sort.Strings(extra)
	for _, s := range extra {
		out = append(out, StatusCount{Status: s, Count: byStatus[s]})
	}
	return out, total
}

func countOf(counts []StatusCount, status string) int64 {
	for _, c := range counts {
		if c.Status == status {
			return c.Count
		}
	}
	return 0
}

// averageResponseTime is the mean gap between an enquiry and its first
// response, in hours.
func averageResponseTime(gaps []responseGap) string {
	hours := make(stats.Float64Data, 0, len(gaps))
	for _, g := range gaps {
		if g.FirstResponseAt == nil {
			continue
		}
		d := g.FirstResponseAt.Sub(g.CreatedAt)
		if d < 0 {
			d = 0
		}
		hours = append(hours, d.Hours())
	}
	if len(hours) == 0 {
		return PlaceholderResponseTime
	}
	mean, err := stats.Mean(hours)
	if err != nil {
		return PlaceholderResponseTime
	}
	return fmt.Sprintf("%.1f hours", mean)
}

func successRate(resolved, total int64) string {
	if total == 0 {
		return PlaceholderSuccessRate
	}
	return fmt.Sprintf("%d%%", roundHalfUp(float64(resolved)/float64(total)*100))
}

func pendingTasks(newEnquiries, unread, inProgress, uncategorized int64) []PendingTask {
	return []PendingTask{
		{ID: "respond-new-enquiries", Title: "Respond to new enquiries", Count: newEnquiries, Priority: domain.PriorityHigh},
		{ID: "review-unread-enquiries", Title: "Review unread enquiries", Count: unread, Priority: domain.PriorityMedium},
		{ID: "follow-up-enquiries", Title: "Follow up enquiries in progress", Count: inProgress, Priority: domain.PriorityMedium},
		{ID: "categorize-products", Title: "Assign categories to uncategorized products", Count: uncategorized, Priority: domain.PriorityLow},
	}
}

func nonNil(items []TopProduct) []TopProduct {
	if items == nil {
		return []TopProduct{}
	}
	return items
}
