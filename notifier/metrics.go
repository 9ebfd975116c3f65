package notifier

import (
	"time"

	log "github.com/sirupsen/logrus"
)

type scanCycleMetrics struct {
	logger        *log.Logger
	start         time.Time
	dueSoonFound  int
	overdueFound  int
	published     int
	failedWindows []string
}

func newScanCycleMetrics(logger *log.Logger) *scanCycleMetrics {
	return &scanCycleMetrics{
		logger: logger,
		start:  time.Now(),
	}
}

func (m *scanCycleMetrics) SetTasksFound(dueSoon, overdue int) {
	if dueSoon < 0 {
		dueSoon = 0
	}
	if overdue < 0 {
		overdue = 0
	}
	m.dueSoonFound = dueSoon
	m.overdueFound = overdue
}

func (m *scanCycleMetrics) SetPublished(count int) {
	if count < 0 {
		count = 0
	}
	m.published = count
}

func (m *scanCycleMetrics) AddFailedWindow(window string) {
	if window == "" {
		return
	}
	m.failedWindows = append(m.failedWindows, window)
}

func (m *scanCycleMetrics) Log() {
	if m == nil || m.logger == nil {
		return
	}

	fields := log.Fields{
		"job":            "due-date-scan",
		"total_ms":       durationToMillis(time.Since(m.start)),
		"due_soon_found": m.dueSoonFound,
		"overdue_found":  m.overdueFound,
		"published":      m.published,
	}
	if len(m.failedWindows) > 0 {
		fields["failed_windows"] = m.failedWindows
	}

	m.logger.WithFields(fields).Info("scan.cycle.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
