package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ANSI color codes for terminal output.
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"
	colorWhite = "\033[37m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

// colorEnabled controls whether ANSI colors are used.
var colorEnabled = true

// DisableColors disables ANSI color output.
func DisableColors() {
	colorEnabled = false
}

// EnableColors enables ANSI color output.
func EnableColors() {
	colorEnabled = true
}

func color(code, text string) string {
	if !colorEnabled {
		return text
	}
	return code + text + colorReset
}

func red(text string) string   { return color(colorRed, text) }
func cyan(text string) string  { return color(colorCyan, text) }
func white(text string) string { return color(colorWhite, text) }
func gray(text string) string  { return color(colorGray, text) }
func bold(text string) string  { return color(colorBold, text) }

// Format returns the error formatted for terminal display.
func (e *TxError) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	if e.Code != "" {
		b.WriteString(red(bold("ERROR ")))
		b.WriteString(white(bold(e.Code + ": ")))
	} else {
		b.WriteString(red(bold("ERROR: ")))
	}
	b.WriteString(white(e.Message))
	b.WriteString("\n\n")

	if e.Detail != "" {
		for _, line := range wrapText(e.Detail, 70) {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if e.Wrapped != nil {
		b.WriteString("  ")
		b.WriteString(gray("Cause: "))
		b.WriteString(e.Wrapped.Error())
		b.WriteString("\n\n")
	}

	if e.Suggestion != "" {
		b.WriteString("  ")
		b.WriteString(cyan("Hint: "))
		b.WriteString(e.Suggestion)
		b.WriteString("\n")
	}

	return b.String()
}

// FormatCompact returns a single-line form.
func (e *TxError) FormatCompact() string {
	return e.Error()
}

// FormatJSON returns the error as a JSON object.
func (e *TxError) FormatJSON() string {
	out := struct {
		Code       string   `json:"code,omitempty"`
		Category   Category `json:"category"`
		Message    string   `json:"message"`
		Detail     string   `json:"detail,omitempty"`
		Suggestion string   `json:"suggestion,omitempty"`
		Cause      string   `json:"cause,omitempty"`
	}{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	data, _ := json.Marshal(out)
	return string(data)
}

// wrapText wraps text to the specified width.
func wrapText(text string, width int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= width {
		return []string{text}
	}

	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len() > 0 && current.Len()+len(word)+1 > width {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

// Output selects how Print renders an error.
type Output string

const (
	OutputText    Output = "text"
	OutputCompact Output = "compact"
	OutputJSON    Output = "json"
)

// ParseOutput validates an output name. The empty string means text.
func ParseOutput(name string) (Output, error) {
	switch o := Output(strings.ToLower(name)); o {
	case "":
		return OutputText, nil
	case OutputText, OutputCompact, OutputJSON:
		return o, nil
	}
	return "", New("E020").
		WithDetail(fmt.Sprintf("Unknown error format %q.", name)).
		WithSuggestion("Use text, compact or json")
}

// Print writes err to w in the given output. Unknown outputs fall back to
// text.
func Print(w io.Writer, err error, out Output) {
	te := Classify(err)
	switch out {
	case OutputCompact:
		fmt.Fprintln(w, te.FormatCompact())
	case OutputJSON:
		fmt.Fprintln(w, te.FormatJSON())
	default:
		PrintError(w, err)
	}
}

// PrintError writes err to w, formatted when it classifies to a TxError
// with a code.
func PrintError(w io.Writer, err error) {
	te := Classify(err)
	if te.Code != "" {
		fmt.Fprint(w, te.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", red(bold("ERROR:")), err.Error())
}
