package main

import (
	"strings"

	"github.com/vango-dev/tx/internal/errors"
	"github.com/vango-dev/tx/pkg/engine"
)

// step is one user action replayed against the page.
type step struct {
	kind     string
	selector string
	value    string
	raw      string
}

// parseStep parses click:SELECTOR, input:SELECTOR=VALUE or
// fire:SELECTOR=EVENT. The separating '=' is the first one outside an
// attribute selector's brackets.
func parseStep(s string) (step, error) {
	kind, rest, ok := strings.Cut(s, ":")
	if !ok || rest == "" {
		return step{}, invalidStep(s, "missing selector")
	}
	st := step{kind: kind, raw: s}
	switch kind {
	case "click":
		st.selector = rest
	case "input", "fire":
		i := splitIndex(rest)
		if i < 0 {
			return step{}, invalidStep(s, kind+" steps need SELECTOR=VALUE")
		}
		st.selector, st.value = rest[:i], rest[i+1:]
		if st.selector == "" {
			return step{}, invalidStep(s, "missing selector")
		}
		if kind == "fire" && st.value == "" {
			return step{}, invalidStep(s, "missing event type")
		}
	default:
		return step{}, invalidStep(s, "unknown step kind "+kind)
	}
	return st, nil
}

func splitIndex(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case '=':
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func invalidStep(s, why string) error {
	return errors.New("E030").WithDetail(why + ": " + s)
}

func parseSteps(raw []string) ([]step, error) {
	steps := make([]step, 0, len(raw))
	for _, s := range raw {
		st, err := parseStep(s)
		if err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
	return steps, nil
}

// apply performs the step on e.
func (s step) apply(e *engine.Engine) error {
	switch s.kind {
	case "click":
		return e.Click(s.selector)
	case "input":
		return e.Input(s.selector, s.value)
	default:
		return e.Trigger(s.selector, s.value)
	}
}
