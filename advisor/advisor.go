// Package advisor maps a classified label onto an agronomic treatment protocol.
package advisor

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/google/cel-go/cel"
	"github.com/sdeoras/cropguard/labels"
	"github.com/sirupsen/logrus"
)

// StatusKind tells a healthy plant from one that needs treatment.
type StatusKind int

const (
	Actionable StatusKind = iota
	Healthy
)

func (s StatusKind) String() string {
	if s == Healthy {
		return "healthy"
	}
	return "actionable"
}

// MarshalJSON writes the status name.
func (s StatusKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func parseStatus(v string) (StatusKind, error) {
	switch v {
	case "healthy":
		return Healthy, nil
	case "actionable", "":
		return Actionable, nil
	}
	return Actionable, fmt.Errorf("unknown status %q", v)
}

// Protocol is an ordered set of treatment instructions issued by Authority.
// Authority is "none" when no agronomic body backs the advice.
type Protocol struct {
	Status    StatusKind `json:"status"`
	Headline  string     `json:"headline,omitempty"`
	Steps     []string   `json:"steps"`
	Authority string     `json:"authority"`
}

// Render writes a protocol as display text. A single step is printed bare,
// several are numbered, and Source is omitted for authority "none".
func Render(w io.Writer, headline string, steps []string, authority string) {
	if headline != "" {
		fmt.Fprintf(w, "%s\n\n", headline)
	}
	for i, step := range steps {
		if len(steps) == 1 {
			fmt.Fprintf(w, "%s\n", step)
			continue
		}
		fmt.Fprintf(w, "%d. %s\n", i+1, step)
	}
	if authority != "none" {
		fmt.Fprintf(w, "\nSource: %s\n", authority)
	}
}

func (p Protocol) clone() Protocol {
	p.Steps = slices.Clone(p.Steps)
	return p
}

// Rule is one entry of the ordered rule table.
type Rule struct {
	Name     string
	When     string // CEL expression over the string variable `label`
	Protocol Protocol

	prg cel.Program
}

// Fallback is returned when no rule matches.
var Fallback = Protocol{
	Status:    Actionable,
	Steps:     []string{"Consult your local extension agent."},
	Authority: "none",
}

// Advisor evaluates rules in order; the first match wins.
type Advisor struct {
	rules    []Rule
	fallback Protocol
}

// New compiles the rule predicates. fallback may be nil to use Fallback.
func New(rules []Rule, fallback *Protocol) (*Advisor, error) {
	env, err := newEnv()
	if err != nil {
		return nil, err
	}

	a := &Advisor{
		rules:    make([]Rule, len(rules)),
		fallback: Fallback.clone(),
	}
	if fallback != nil {
		a.fallback = fallback.clone()
	}

	for i, r := range rules {
		prg, err := compile(env, r.When)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.Name, err)
		}
		r.Protocol = r.Protocol.clone()
		r.prg = prg
		a.rules[i] = r
	}

	return a, nil
}

// Rules returns the rule names in evaluation order.
func (a *Advisor) Rules() []string {
	out := make([]string, len(a.rules))
	for i, r := range a.rules {
		out[i] = r.Name
	}
	return out
}

// Advise returns the protocol of the first rule matching label. An unmatched
// label gets the fallback protocol.
func (a *Advisor) Advise(label labels.Label) Protocol {
	input := map[string]any{"label": string(label)}

	for _, r := range a.rules {
		out, _, err := r.prg.Eval(input)
		if err != nil {
			logrus.WithField("rule", r.Name).
				WithField("label", label).
				Warn("rule evaluation failed: ", err)
			continue
		}
		if matched, ok := out.Value().(bool); ok && matched {
			return r.Protocol.clone()
		}
	}

	return a.fallback.clone()
}
