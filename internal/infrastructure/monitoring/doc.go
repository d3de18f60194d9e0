/*
Package monitoring provides Prometheus metrics for the runtime service.

# Overview

Metrics owns a private registry covering HTTP traffic, script executions,
context snapshot installs, text dispatch operations and pool occupancy. It
implements the sandbox recorder interface, so a pool built with
sandbox.WithRecorder(metrics) reports directly into it.

# Usage

	metrics := monitoring.NewMetrics("jsruntime")

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	pool, err := sandbox.NewPool(cfg, sandbox.PoolConfig{Size: 4}, sandbox.WithRecorder(metrics))
*/
package monitoring
