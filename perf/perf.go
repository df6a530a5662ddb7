// Package perf projects the latency an inference would have on a dedicated
// accelerator.
//
// The projection is simulated: no accelerator is invoked. It scales the observed
// CPU latency by a fixed factor so the display layer can contrast the two. Treat
// it as illustrative, never as a measurement.
package perf

// AccelerationFactor is the assumed speedup of the simulated accelerator.
const AccelerationFactor = 12

// Metric compares observed and projected latency of one inference.
type Metric struct {
	ObservedLatencyMs  int64   `json:"observedLatencyMs"`
	EstimatedLatencyMs int64   `json:"estimatedLatencyMs"`
	SpeedupRatio       float64 `json:"speedupRatio"`
}

// Estimate derives the projected latency, floored at 1ms, and the ratio of the
// observed latency to it. The projection uses integer division, so latencies just
// above a multiple of AccelerationFactor report a ratio above the factor.
func Estimate(observedLatencyMs int64) Metric {
	if observedLatencyMs < 0 {
		observedLatencyMs = 0
	}

	estimated := observedLatencyMs / AccelerationFactor
	if estimated < 1 {
		estimated = 1
	}

	return Metric{
		ObservedLatencyMs:  observedLatencyMs,
		EstimatedLatencyMs: estimated,
		SpeedupRatio:       float64(observedLatencyMs) / float64(estimated),
	}
}
