package resource

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ParseSeverity never fails: unknown levels are treated as info, the same way
// the daemon does when it reads rule files.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "crit":
		return SeverityCritical
	case "warning", "warn":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

func (s *Severity) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("severity: %w", err)
	}
	*s = ParseSeverity(raw)
	return nil
}

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "CRIT"
	case SeverityWarning:
		return "WARN"
	default:
		return "INFO"
	}
}

// Rank orders severities so callers can sort or filter alerts.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

type Alert struct {
	ID        string    `json:"id" validate:"required"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Severity  Severity  `json:"severity,omitempty"`
	Source    string    `json:"source,omitempty"`
	Message   string    `json:"message,omitempty"`
}

func (a Alert) String() string {
	return fmt.Sprintf("[%s] %s [%s] %s",
		a.Timestamp.Local().Format("15:04:05"), a.Severity, a.Source, a.Message)
}

type Alerts []Alert

// CountBySeverity returns how many alerts carry the given severity.
func (as Alerts) CountBySeverity(s Severity) int {
	n := 0
	for _, a := range as {
		if a.Severity == s {
			n++
		}
	}
	return n
}
