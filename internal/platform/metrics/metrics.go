package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	UsersCreated    prometheus.Counter
	UsersDeleted    *prometheus.CounterVec
	ProfilesCreated prometheus.Counter
	TokenRequests   prometheus.Counter
	AuthFailures    prometheus.Counter
	ListedUsers     prometheus.Counter
	DroppedByGate   prometheus.Counter
	PhotoUploads    prometheus.Counter
	EndpointLatency *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roster_users_created_total",
			Help: "Total number of users created",
		}),
		UsersDeleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_users_deleted_total",
			Help: "Total number of users deleted, labeled by deletion mode",
		}, []string{"mode"}),
		ProfilesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roster_profiles_created_total",
			Help: "Total number of standalone profiles created",
		}),
		TokenRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roster_token_requests_total",
			Help: "Total number of token requests",
		}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roster_auth_failures_total",
			Help: "Total number of authentication failures",
		}),
		ListedUsers: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roster_listed_users_total",
			Help: "Total number of user records returned by list queries",
		}),
		DroppedByGate: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roster_list_gate_dropped_total",
			Help: "Total number of records dropped by profile-gated filtering",
		}),
		PhotoUploads: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roster_photo_uploads_total",
			Help: "Total number of profile photo uploads",
		}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roster_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

// IncrementUsersCreated increments the users created counter by 1
func (m *Metrics) IncrementUsersCreated() {
	m.UsersCreated.Inc()
}

// IncrementUsersDeleted increments the users deleted counter with mode label ("soft" or "hard")
func (m *Metrics) IncrementUsersDeleted(mode string) {
	m.UsersDeleted.WithLabelValues(mode).Inc()
}

func (m *Metrics) IncrementProfilesCreated() {
	m.ProfilesCreated.Inc()
}

func (m *Metrics) IncrementTokenRequests() {
	m.TokenRequests.Inc()
}

func (m *Metrics) IncrementAuthFailures() {
	m.AuthFailures.Inc()
}

func (m *Metrics) AddListedUsers(count int) {
	m.ListedUsers.Add(float64(count))
}

func (m *Metrics) AddDroppedByGate(count int) {
	m.DroppedByGate.Add(float64(count))
}

func (m *Metrics) IncrementPhotoUploads() {
	m.PhotoUploads.Inc()
}

// ObserveEndpointLatency records the latency for a given endpoint
func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}
