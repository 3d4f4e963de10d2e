// Package metrics registers kinobot's Prometheus collectors.
//
// Collectors are package-level and registered with the default registry via
// promauto; the daemon exposes them on /metrics. Label values are kept to
// small fixed sets so cardinality stays bounded.
package metrics
