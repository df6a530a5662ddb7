// Package recommend assembles classification, performance and treatment into the
// single record handed back to callers, and runs the full image-to-advice pipeline.
package recommend

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sdeoras/cropguard/advisor"
	"github.com/sdeoras/cropguard/perf"
	"github.com/sdeoras/cropguard/resolve"
)

// Recommendation is the immutable result of one classification request.
type Recommendation struct {
	RequestID      string           `json:"requestId,omitempty"`
	Classification resolve.Result   `json:"classification"`
	Performance    perf.Metric      `json:"performance"`
	Protocol       advisor.Protocol `json:"protocol"`
	Ranked         []resolve.Score  `json:"ranked,omitempty"`
}

// Assemble checks its inputs and aggregates them.
func Assemble(result resolve.Result, metric perf.Metric, protocol advisor.Protocol) (Recommendation, error) {
	if result.Label == "" {
		return Recommendation{}, errors.New("classification has no label")
	}
	if metric.EstimatedLatencyMs < 1 || metric.ObservedLatencyMs < 0 {
		return Recommendation{}, fmt.Errorf("invalid performance metric %+v", metric)
	}
	if protocol.Authority == "" || len(protocol.Steps) == 0 {
		return Recommendation{}, errors.New("protocol needs an authority and at least one step")
	}

	protocol.Steps = slices.Clone(protocol.Steps)
	return Recommendation{
		Classification: result,
		Performance:    metric,
		Protocol:       protocol,
	}, nil
}

// Summary renders the recommendation as plain text.
func (r Recommendation) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", r.Classification.Label)
	fmt.Fprintf(&b, "%.1f%% Confidence\n", r.Classification.Confidence*100)
	fmt.Fprintf(&b, "Inference: %dms (simulated accelerator %dms, %.1fx)\n",
		r.Performance.ObservedLatencyMs, r.Performance.EstimatedLatencyMs, r.Performance.SpeedupRatio)

	b.WriteString("\n")
	advisor.Render(&b, r.Protocol.Headline, r.Protocol.Steps, r.Protocol.Authority)

	return b.String()
}
