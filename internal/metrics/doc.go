// Package metrics defines the gateway's Prometheus collectors.
//
// Collectors are registered with the default registry through promauto, so
// promhttp.Handler exposes them without further wiring. Callers use the
// wrapper functions instead of touching the vectors directly.
package metrics
