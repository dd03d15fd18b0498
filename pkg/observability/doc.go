/*
Package observability provides tools for monitoring tether containers.

Metrics turns the container lifecycle hooks into Prometheus collectors:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	store, _ := tether.CreateStore(State{}, tether.WithLifecycleHooks(metrics.Hooks()))
*/
package observability
