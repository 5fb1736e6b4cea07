package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

var (
	StoreMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_mutations_total",
		Help:      "Cart and wishlist mutations by store and operation.",
	}, []string{"store", "op"})

	PersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persist_failures_total",
		Help:      "Failed reads or writes against the key value store.",
	}, []string{"store", "op"})

	SessionsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_evicted_total",
		Help:      "Sessions dropped from memory for being idle or over the limit.",
	})

	RemoteFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "remote_catalog_failures_total",
		Help:      "Remote catalog fetches that degraded to local drafts.",
	})

	RejectedRemoteRows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "remote_rows_rejected_total",
		Help:      "Remote rows dropped because they could not be read or lacked required fields.",
	})

	CatalogSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "catalog_products",
		Help:      "Products in the last published catalog by origin.",
	}, []string{"origin"})

	StaleResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_results_discarded_total",
		Help:      "Async results dropped because a newer request superseded them.",
	}, []string{"op"})

	SearchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_seconds",
		Help:      "Time from search submission to published result.",
		Buckets:   prometheus.DefBuckets,
	})

	Listings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listings_total",
		Help:      "Submitted listings by where they were stored.",
	}, []string{"outcome"})

	Checkouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkouts_total",
		Help:      "Completed simulated checkouts.",
	})
)
