// Package resource holds the snapshots served by the dashboard API and the
// table of endpoints that expose them.
package resource

import (
	"fmt"
	"strings"
	"time"
)

// DefaultInterval is the refresh period of every dashboard endpoint.
const DefaultInterval = 5000 * time.Millisecond

type Kind string

const (
	KindAlerts   Kind = "alerts"
	KindHealth   Kind = "health"
	KindPending  Kind = "pending"
	KindScans    Kind = "scans"
	KindSecurity Kind = "security"
	KindStatus   Kind = "status"
)

type Endpoint struct {
	Kind     Kind
	Path     string
	Interval time.Duration
}

// Endpoints lists the monitored resources in dashboard order.
var Endpoints = []Endpoint{
	{Kind: KindAlerts, Path: "/api/alerts", Interval: DefaultInterval},
	{Kind: KindHealth, Path: "/api/health", Interval: DefaultInterval},
	{Kind: KindPending, Path: "/api/pending", Interval: DefaultInterval},
	{Kind: KindScans, Path: "/api/scans", Interval: DefaultInterval},
	{Kind: KindSecurity, Path: "/api/security", Interval: DefaultInterval},
	{Kind: KindStatus, Path: "/api/status", Interval: DefaultInterval},
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := Lookup(k); !ok {
		return "", fmt.Errorf("resource: unknown kind %q", s)
	}
	return k, nil
}

func Lookup(k Kind) (Endpoint, bool) {
	for _, e := range Endpoints {
		if e.Kind == k {
			return e, true
		}
	}
	return Endpoint{}, false
}

func Kinds() []Kind {
	out := make([]Kind, len(Endpoints))
	for i, e := range Endpoints {
		out[i] = e.Kind
	}
	return out
}
