// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package chest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels for open and close metrics.
const (
	ResultAccepted      = "accepted"
	ResultUnknownMenu   = "unknown_menu"
	ResultOffline       = "offline"
	ResultDenied        = "permission_denied"
	ResultRequirement   = "requirement_failed"
	ResultNotOpen       = "not_open"
	ResultAlreadyOpen   = "already_open"
	ResultReloadedAway  = "reloaded_away"
	ResultInvalidPlayer = "invalid_player"
)

// OpenRequests counts Open calls by menu and result.
// Use RegisterMetrics to register this with a Prometheus registry.
var OpenRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "virtualchest_open_total",
		Help: "Total number of chest GUI open requests",
	},
	[]string{"menu", "result"},
)

// CloseRequests counts Close calls by menu and result.
var CloseRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "virtualchest_close_total",
		Help: "Total number of chest GUI close requests",
	},
	[]string{"menu", "result"},
)

// RegisteredMenus reports how many menus the last load event registered.
var RegisteredMenus = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "virtualchest_registered_menus",
		Help: "Number of chest GUIs currently registered",
	},
)

// ReloadDuration tracks how long load events take.
var ReloadDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "virtualchest_reload_duration_seconds",
		Help:    "Chest GUI load event duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
)

// ListenerFailures counts load listeners that returned an error.
var ListenerFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "virtualchest_load_listener_failures_total",
		Help: "Total number of load listeners that failed during a load event",
	},
	[]string{"source"},
)

// RegisterMetrics registers chest metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(OpenRequests)
	reg.MustRegister(CloseRequests)
	reg.MustRegister(RegisteredMenus)
	reg.MustRegister(ReloadDuration)
	reg.MustRegister(ListenerFailures)
}

// unknownMenuLabel keeps arbitrary ids out of label cardinality.
const unknownMenuLabel = "_unknown"

func recordOpen(menu, result string) {
	OpenRequests.WithLabelValues(menu, result).Inc()
}

func recordClose(menu, result string) {
	CloseRequests.WithLabelValues(menu, result).Inc()
}

func recordReload(count int, duration time.Duration) {
	RegisteredMenus.Set(float64(count))
	ReloadDuration.Observe(duration.Seconds())
}
