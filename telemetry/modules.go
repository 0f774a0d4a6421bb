package telemetry

// This file declares metric definitions for the belief, coordination, bdi,
// strategy and audit packages. Declaring a metric does not emit it; those
// packages do not call the emission API themselves. It lives in the
// telemetry package to avoid import cycles between declarer and registry,
// matching the gomind convention of a single init()-time declaration site
// per domain.

func init() {
	DeclareMetrics("belief", ModuleConfig{
		Metrics: []MetricDefinition{
			{
				Name:   "belief.updates",
				Type:   "counter",
				Help:   "Belief system writes",
				Labels: []string{"source"},
			},
			{
				Name:   "belief.queries",
				Type:   "counter",
				Help:   "Belief system substring queries",
				Labels: []string{"source"},
			},
		},
	})

	DeclareMetrics("coordination", ModuleConfig{
		Metrics: []MetricDefinition{
			{
				Name:   "coordination.interactions",
				Type:   "counter",
				Help:   "Interactions processed by the coordinator",
				Labels: []string{"type", "status"},
			},
			{
				Name:    "coordination.interaction.duration_ms",
				Type:    "histogram",
				Help:    "Interaction processing duration in milliseconds",
				Labels:  []string{"type"},
				Unit:    "ms",
				Buckets: []float64{1, 10, 100, 1000, 10000},
			},
			{
				Name:   "coordination.backlog.size",
				Type:   "gauge",
				Help:   "Pending improvement backlog items",
				Labels: []string{},
			},
		},
	})

	DeclareMetrics("bdi", ModuleConfig{
		Metrics: []MetricDefinition{
			{
				Name:   "bdi.cycles",
				Type:   "counter",
				Help:   "BDI reasoning cycles executed",
				Labels: []string{"agent_id", "outcome"},
			},
			{
				Name:   "bdi.actions",
				Type:   "counter",
				Help:   "BDI plan step actions executed",
				Labels: []string{"agent_id", "action", "status"},
			},
		},
	})

	DeclareMetrics("strategy", ModuleConfig{
		Metrics: []MetricDefinition{
			{
				Name:   "strategy.campaigns",
				Type:   "counter",
				Help:   "Mastermind campaigns run",
				Labels: []string{"kind", "status"},
			},
		},
	})

	DeclareMetrics("audit", ModuleConfig{
		Metrics: []MetricDefinition{
			{
				Name:   "audit.runs",
				Type:   "counter",
				Help:   "Audit coordinator sweeps executed",
				Labels: []string{"outcome"},
			},
			{
				Name:   "audit.findings",
				Type:   "counter",
				Help:   "Backlog items injected by an audit sweep",
				Labels: []string{},
			},
		},
	})
}
