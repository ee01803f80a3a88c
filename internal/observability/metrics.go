package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for the HTTP surface, the
// ingestion pipeline, the daily scheduler and the notifier.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	ingestionRows map[string]int64
	passCount     map[string]int64
	notifyCount   map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		ingestionRows: make(map[string]int64),
		passCount:     make(map[string]int64),
		notifyCount:   make(map[string]int64),
	}
}

// RecordRequest increments counters for HTTP requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments HTTP error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordIngestionRow counts one ingestion row outcome ("ok" or "error").
func (m *Metrics) RecordIngestionRow(outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingestionRows[outcome]++
}

// RecordSchedulerPass counts one job pass outcome per job name.
func (m *Metrics) RecordSchedulerPass(job string, ok bool) {
	if m == nil {
		return
	}
	key := job + "|ok"
	if !ok {
		key = job + "|error"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passCount[key]++
}

// RecordNotification counts one notification attempt outcome.
func (m *Metrics) RecordNotification(ok bool) {
	if m == nil {
		return
	}
	key := "ok"
	if !ok {
		key = "error"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifyCount[key]++
}

// Snapshot returns a copy of all counters for exposure on the health surface.
func (m *Metrics) Snapshot() map[string]map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]map[string]int64{
		"http_requests":  copyCounts(m.requestCount),
		"http_errors":    copyCounts(m.errorCount),
		"ingestion_rows": copyCounts(m.ingestionRows),
		"job_passes":     copyCounts(m.passCount),
		"notifications":  copyCounts(m.notifyCount),
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
