package tree

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// predictionsTotal counts rows classified by any tree
	predictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_tree_predictions_total",
		Help: "Total rows classified by trees",
	})
)
