package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for account memory.
// All methods are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	StorageFailures    *prometheus.CounterVec
	MalformedEntries   prometheus.Counter
	ExpiredEntries     prometheus.Counter
	SlotWrites         prometheus.Counter
	HistorySaves       prometheus.Counter
	HistoryEvictions   prometheus.Counter
	ValidationFailures *prometheus.CounterVec
	RateLimited        prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StorageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "topup_account_storage_failures_total",
			Help: "Storage operations that failed and were degraded to a no-op",
		}, []string{"op", "reason"}),
		MalformedEntries: f.NewCounter(prometheus.CounterOpts{
			Name: "topup_account_malformed_entries_total",
			Help: "Stored entries that could not be decoded and were treated as absent",
		}),
		ExpiredEntries: f.NewCounter(prometheus.CounterOpts{
			Name: "topup_account_expired_entries_total",
			Help: "Reads that found an entry past its expiry",
		}),
		SlotWrites: f.NewCounter(prometheus.CounterOpts{
			Name: "topup_account_slot_writes_total",
			Help: "Current account slot records written to storage",
		}),
		HistorySaves: f.NewCounter(prometheus.CounterOpts{
			Name: "topup_account_history_saves_total",
			Help: "Accounts saved to history",
		}),
		HistoryEvictions: f.NewCounter(prometheus.CounterOpts{
			Name: "topup_account_history_evictions_total",
			Help: "History entries dropped because the list was full",
		}),
		ValidationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "topup_account_validation_failures_total",
			Help: "Submitted account forms rejected by field validation",
		}, []string{"product"}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "topup_http_rate_limited_total",
			Help: "Requests rejected by the per-client rate limit",
		}),
	}
}

func (m *Metrics) IncrementStorageFailure(op, reason string) {
	if m == nil {
		return
	}
	m.StorageFailures.WithLabelValues(op, reason).Inc()
}

func (m *Metrics) IncrementMalformed() {
	if m == nil {
		return
	}
	m.MalformedEntries.Inc()
}

func (m *Metrics) IncrementExpired() {
	if m == nil {
		return
	}
	m.ExpiredEntries.Inc()
}

func (m *Metrics) IncrementSlotWrites() {
	if m == nil {
		return
	}
	m.SlotWrites.Inc()
}

func (m *Metrics) IncrementHistorySaves() {
	if m == nil {
		return
	}
	m.HistorySaves.Inc()
}

func (m *Metrics) AddHistoryEvictions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.HistoryEvictions.Add(float64(n))
}

func (m *Metrics) IncrementValidationFailures(product string) {
	if m == nil {
		return
	}
	m.ValidationFailures.WithLabelValues(product).Inc()
}

func (m *Metrics) IncrementRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}
