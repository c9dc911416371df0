package dashboard

import "time"

const (
	// PlaceholderResponseTime is shown until some enquiry has a response
	PlaceholderResponseTime = "2.4 hours"
	// PlaceholderSuccessRate is shown while there are no enquiries at all
	PlaceholderSuccessRate = "95%"
)

// MetricCard is one headline number with its comparison to the previous
// window and a fixed-length daily trend, oldest first.
type MetricCard struct {
	Value      int64   `json:"value"`
	Change     int64   `json:"change"`
	Percentage int64   `json:"percentage"`
	Trend      []int64 `json:"trend"`
}

type Metrics struct {
	TotalProducts  MetricCard `json:"totalProducts"`
	ActiveServices MetricCard `json:"activeServices"`
	GalleryImages  MetricCard `json:"galleryImages"`
	NewEnquiries   MetricCard `json:"newEnquiries"`
}

type BusinessMetrics struct {
	TotalClients      int64  `json:"totalClients"`
	CompletedProjects int64  `json:"completedProjects"`
	AvgResponseTime   string `json:"avgResponseTime"`
	SuccessRate       string `json:"successRate"`
}

// TopProduct ranks a product by the enquiries naming it
type TopProduct struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Enquiries  int64  `json:"enquiries"`
	Trend      string `json:"trend"` // up|down
	Percentage int64  `json:"percentage"`
}

type RecentClient struct {
	ID        int64     `json:"id,string"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	Industry  string    `json:"industry"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Activity is one feed entry read from the activity log
type Activity struct {
	ID       int64     `json:"id,string"`
	Type     string    `json:"type"`
	Topic    string    `json:"topic"`
	EntityID int64     `json:"entityId,string"`
	Title    string    `json:"title"`
	Detail   string    `json:"detail"`
	Time     time.Time `json:"time"`
}

type PendingTask struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Count    int64  `json:"count"`
	Priority string `json:"priority"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// Snapshot is the composed dashboard payload
type Snapshot struct {
	TimeRange       string          `json:"timeRange"`
	StartDate       time.Time       `json:"startDate"`
	Metrics         Metrics         `json:"metrics"`
	BusinessMetrics BusinessMetrics `json:"businessMetrics"`
	TopProducts     []TopProduct    `json:"topProducts"`
	RecentClients   []RecentClient  `json:"recentClients"`
	RecentActivity  []Activity      `json:"recentActivity"`
	PendingTasks    []PendingTask   `json:"pendingTasks"`
	EnquiryStatus   []StatusCount   `json:"enquiryStatus"`
	GeneratedAt     time.Time       `json:"generatedAt"`
}
