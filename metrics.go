package cart

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/pbanos/cart")

var (
	// grownNodes counts nodes branched out by kind (leaf or decision)
	grownNodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_grown_nodes_total",
		Help: "Total tree nodes grown by kind",
	}, []string{"kind"})

	// splitSearchDuration tracks the time spent searching the best split of a node
	splitSearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cart_split_search_duration_seconds",
		Help:    "Best split search duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
	})
)

const (
	leafKind     = "leaf"
	decisionKind = "decision"
)
