package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpChecks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hush_http_checks",
	Help: "Number of check API requests, by kind (single or batch)",
}, []string{"kind"})
