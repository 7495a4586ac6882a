package txtest

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/vango-dev/tx/pkg/engine"
)

// ExpectContains asserts that the rendered document contains expected.
func ExpectContains(t testing.TB, e *engine.Engine, expected string) {
	t.Helper()
	html := e.Document().String()
	if !strings.Contains(html, expected) {
		t.Errorf("expected document to contain %q, got:\n%s", expected, truncate(html, 500))
	}
}

// ExpectNotContains asserts that the rendered document lacks unexpected.
func ExpectNotContains(t testing.TB, e *engine.Engine, unexpected string) {
	t.Helper()
	html := e.Document().String()
	if strings.Contains(html, unexpected) {
		t.Errorf("expected document NOT to contain %q, got:\n%s", unexpected, truncate(html, 500))
	}
}

// ExpectCount asserts the number of elements matching sel.
func ExpectCount(t testing.TB, e *engine.Engine, sel string, want int) {
	t.Helper()
	nodes, err := e.Document().QueryAll(sel)
	if err != nil {
		t.Fatalf("QueryAll(%q): %v", sel, err)
	}
	if len(nodes) != want {
		t.Errorf("count(%q) = %d, want %d", sel, len(nodes), want)
	}
}

// ExpectField asserts state[region][field]. Numbers are compared by their
// string form.
func ExpectField(t testing.TB, e *engine.Engine, region, field string, want any) {
	t.Helper()
	got, ok := e.State().Field(region, field)
	if !ok {
		t.Errorf("state[%q][%q] missing, want %v", region, field, want)
		return
	}
	if !reflect.DeepEqual(got, want) && fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("state[%q][%q] = %v, want %v", region, field, got, want)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
