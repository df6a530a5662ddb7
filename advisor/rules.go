package advisor

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

const ruleSchema = `{
  "type": "object",
  "required": ["rules"],
  "additionalProperties": false,
  "properties": {
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "when", "authority", "steps"],
        "additionalProperties": false,
        "properties": {
          "name":      {"type": "string", "minLength": 1},
          "when":      {"type": "string", "minLength": 1},
          "status":    {"enum": ["healthy", "actionable"]},
          "authority": {"type": "string", "minLength": 1},
          "headline":  {"type": "string"},
          "steps":     {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}}
        }
      }
    },
    "fallback": {
      "type": "object",
      "required": ["authority", "steps"],
      "additionalProperties": false,
      "properties": {
        "status":    {"enum": ["healthy", "actionable"]},
        "authority": {"type": "string", "minLength": 1},
        "headline":  {"type": "string"},
        "steps":     {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}}
      }
    }
  }
}`

var schema = jsonschema.MustCompileString("rules.schema.json", ruleSchema)

type protocolDoc struct {
	Status    string   `yaml:"status"`
	Authority string   `yaml:"authority"`
	Headline  string   `yaml:"headline"`
	Steps     []string `yaml:"steps"`
}

type ruleDoc struct {
	Name        string `yaml:"name"`
	When        string `yaml:"when"`
	protocolDoc `yaml:",inline"`
}

type rulesDoc struct {
	Rules    []ruleDoc    `yaml:"rules"`
	Fallback *protocolDoc `yaml:"fallback"`
}

func (d protocolDoc) protocol() (Protocol, error) {
	status, err := parseStatus(d.Status)
	if err != nil {
		return Protocol{}, err
	}
	return Protocol{
		Status:    status,
		Headline:  d.Headline,
		Steps:     d.Steps,
		Authority: d.Authority,
	}, nil
}

// Default returns the advisor built from the embedded cocoa/maize rule table.
var Default = sync.OnceValue(func() *Advisor {
	a, err := Parse(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded rule table: %v", err))
	}
	return a
})

// LoadFile reads a YAML rule table from path.
func LoadFile(path string) (*Advisor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// Parse validates a YAML rule table and compiles it.
func Parse(data []byte) (*Advisor, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}

	var doc rulesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	rules := make([]Rule, 0, len(doc.Rules))
	for _, r := range doc.Rules {
		p, err := r.protocol()
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.Name, err)
		}
		rules = append(rules, Rule{Name: r.Name, When: r.When, Protocol: p})
	}

	var fallback *Protocol
	if doc.Fallback != nil {
		p, err := doc.Fallback.protocol()
		if err != nil {
			return nil, fmt.Errorf("fallback: %w", err)
		}
		fallback = &p
	}

	return New(rules, fallback)
}

func newEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("label", cel.StringType),
		ext.Strings(),
		// lowerAscii leaves non-ASCII letters alone
		cel.Function("lower",
			cel.MemberOverload("string_lower", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(lower))),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

func lower(v ref.Val) ref.Val {
	s, ok := v.(types.String)
	if !ok {
		return types.MaybeNoSuchOverloadErr(v)
	}
	return types.String(strings.ToLower(string(s)))
}

func compile(env *cel.Env, expr string) (cel.Program, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression %q is %v, want bool", expr, ast.OutputType())
	}
	prg, err := env.Program(ast, cel.CostLimit(10000))
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	return prg, nil
}
