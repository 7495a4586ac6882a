package main

import (
	stderrors "errors"
	"testing"

	"github.com/vango-dev/tx/internal/errors"
)

func TestParseStep(t *testing.T) {
	tests := []struct {
		in       string
		kind     string
		selector string
		value    string
	}{
		{"click:#add", "click", "#add", ""},
		{"click:ul li button.remove", "click", "ul li button.remove", ""},
		{"input:#item=milk", "input", "#item", "milk"},
		{"input:#item=a=b", "input", "#item", "a=b"},
		{"input:#item=", "input", "#item", ""},
		{"input:[name=item]=eggs", "input", "[name=item]", "eggs"},
		{"fire:select#kind=change", "fire", "select#kind", "change"},
		{`click:[tx-onclick="todo_remove?i=0"]`, "click", `[tx-onclick="todo_remove?i=0"]`, ""},
		{`input:[name="a=b"]=x`, "input", `[name="a=b"]`, "x"},
		{"click:body > ul > li:first-child button", "click", "body > ul > li:first-child button", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			s, err := parseStep(tt.in)
			if err != nil {
				t.Fatalf("parseStep(%q) error = %v", tt.in, err)
			}
			if s.kind != tt.kind || s.selector != tt.selector || s.value != tt.value {
				t.Errorf("parseStep(%q) = {%q %q %q}, want {%q %q %q}",
					tt.in, s.kind, s.selector, s.value, tt.kind, tt.selector, tt.value)
			}
			if s.raw != tt.in {
				t.Errorf("raw = %q, want %q", s.raw, tt.in)
			}
		})
	}
}

func TestParseStepErrors(t *testing.T) {
	for _, in := range []string{
		"",
		"click",
		"click:",
		"hover:#x",
		"input:#item",
		"input:=milk",
		"fire:#x=",
		"input:[name=item]",
	} {
		_, err := parseStep(in)
		var te *errors.TxError
		if !stderrors.As(err, &te) || te.Code != "E030" {
			t.Errorf("parseStep(%q) error = %v, want E030", in, err)
		}
	}
}

func TestParseSteps(t *testing.T) {
	steps, err := parseSteps([]string{"input:#item=milk", "click:#add"})
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 2 {
		t.Fatalf("len = %d, want 2", len(steps))
	}
	if got := stepList(steps); got != "input:#item=milk, click:#add" {
		t.Errorf("stepList = %q", got)
	}

	if _, err := parseSteps([]string{"click:#add", "bogus"}); err == nil {
		t.Error("parseSteps should fail on the first bad step")
	}
}
