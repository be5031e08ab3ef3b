// Copyright 2025 Acnodal Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package nlquery

import (
	"github.com/prometheus/client_golang/prometheus"

	v1 "etherinfo.io/pkg/apis/v1"
)

const subsystem = "nlquery"

// query kinds used as metric labels. Address queries use the family
// name ("IPv4"/"IPv6") as their kind.
const kindLink = "link"

var (
	// queries counts netlink queries by kind (link, IPv4, IPv6).
	queries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: v1.MetricsNamespace,
		Subsystem: subsystem,
		Name:      "queries_total",
		Help:      "Total number of netlink queries by kind",
	}, []string{"kind"})

	// queryErrors counts failed netlink queries by kind.
	queryErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: v1.MetricsNamespace,
		Subsystem: subsystem,
		Name:      "query_errors_total",
		Help:      "Total number of failed netlink queries by kind",
	}, []string{"kind"})

	// sessionsOpened counts netlink sockets opened.
	sessionsOpened = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: v1.MetricsNamespace,
		Subsystem: subsystem,
		Name:      "sessions_opened_total",
		Help:      "Total number of netlink sessions opened",
	})

	// sessionErrors counts failures to open a netlink socket.
	sessionErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: v1.MetricsNamespace,
		Subsystem: subsystem,
		Name:      "session_errors_total",
		Help:      "Total number of netlink session open failures",
	})
)

func init() {
	prometheus.MustRegister(queries)
	prometheus.MustRegister(queryErrors)
	prometheus.MustRegister(sessionsOpened)
	prometheus.MustRegister(sessionErrors)
}

// recordQuery increments the query counter for kind.
func recordQuery(kind string) {
	queries.WithLabelValues(kind).Inc()
}

// recordQueryError increments the query error counter for kind.
func recordQueryError(kind string) {
	queryErrors.WithLabelValues(kind).Inc()
}

// recordSessionOpened increments the session open counter.
func recordSessionOpened() {
	sessionsOpened.Inc()
}

// recordSessionError increments the session open failure counter.
func recordSessionError() {
	sessionErrors.Inc()
}
