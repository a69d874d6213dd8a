package resource

import "time"

type ComponentCheck struct {
	Status  string `json:"status" validate:"required"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status        string                    `json:"status" validate:"required"`
	UptimeSeconds int64                     `json:"uptime_seconds" validate:"gte=0"`
	Version       string                    `json:"version,omitempty"`
	Checks        map[string]ComponentCheck `json:"checks,omitempty" validate:"omitempty,dive"`
}

// Healthy reports whether the daemon considers itself fully up.
func (h HealthResponse) Healthy() bool {
	return h.Status == "ok" || h.Status == "healthy"
}

type PendingAction struct {
	ID          string    `json:"id" validate:"required"`
	Action      string    `json:"action" validate:"required"`
	Target      string    `json:"target,omitempty"`
	Severity    Severity  `json:"severity,omitempty"`
	Status      string    `json:"status,omitempty"`
	RequestedAt time.Time `json:"requested_at,omitempty"`
}

type PendingActions []PendingAction

type ScanStatus string

const (
	ScanPass ScanStatus = "pass"
	ScanWarn ScanStatus = "warn"
	ScanFail ScanStatus = "fail"
)

type ScanResult struct {
	Category  string     `json:"category" validate:"required"`
	Status    ScanStatus `json:"status" validate:"required,oneof=pass warn fail"`
	Details   string     `json:"details,omitempty"`
	Timestamp time.Time  `json:"timestamp,omitempty"`
}

type ScanResults []ScanResult

// Failed returns the results whose status is fail.
func (rs ScanResults) Failed() ScanResults {
	out := make(ScanResults, 0, len(rs))
	for _, r := range rs {
		if r.Status == ScanFail {
			out = append(out, r)
		}
	}
	return out
}

type SecurityResponse struct {
	Score            int            `json:"score" validate:"gte=0,lte=100"`
	AlertsTotal      int            `json:"alerts_total" validate:"gte=0"`
	AlertsBySeverity map[string]int `json:"alerts_by_severity,omitempty" validate:"omitempty,dive,gte=0"`
	AlertsBySource   map[string]int `json:"alerts_by_source,omitempty" validate:"omitempty,dive,gte=0"`
	UpdatedAt        time.Time      `json:"updated_at,omitempty"`
}

type StatusResponse struct {
	State          string `json:"state,omitempty"`
	AlertsCritical int    `json:"alerts_critical" validate:"gte=0"`
	AlertsWarning  int    `json:"alerts_warning" validate:"gte=0"`
	AlertsTotal    int    `json:"alerts_total" validate:"gte=0"`
	LastScanEpoch  *int64 `json:"last_scan_epoch,omitempty"`
	UptimeSeconds  int64  `json:"uptime_seconds,omitempty" validate:"gte=0"`
	Version        string `json:"version,omitempty"`
}

// LastScanAge returns the whole minutes elapsed since the last scan. ok is
// false when the daemon has not reported a scan yet.
func (s StatusResponse) LastScanAge(now time.Time) (minutes int64, ok bool) {
	if s.LastScanEpoch == nil {
		return 0, false
	}
	d := now.Unix() - *s.LastScanEpoch
	if d < 0 {
		d = 0
	}
	return d / 60, true
}
