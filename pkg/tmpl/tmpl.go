// Package tmpl renders user supplied Go templates for command output.
package tmpl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// millis formats a millisecond count as a duration rounded to the second.
func millis(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func date(layout string, t time.Time) string {
	return t.Local().Format(layout)
}

var funcs = template.FuncMap{
	"ms":    millis,
	"json":  toJSON,
	"date":  date,
	"upper": strings.ToUpper,
	"join":  strings.Join,
}

// Parse compiles a template for repeated use. Escaped tabs and newlines
// ("\t", "\n") in the source are expanded so templates can be passed on the
// command line.
//
// Available template functions:
//   - ms: format milliseconds as a duration ("1m30s")
//   - json: encode a value as JSON
//   - date: format a time with a layout, in local time
//   - upper: upper-case a string
//   - join: join a string slice with a separator
func Parse(text string) (*template.Template, error) {
	text = strings.NewReplacer(`\t`, "\t", `\n`, "\n").Replace(text)

	t, err := template.New("").Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return t, nil
}

// Render executes a Go template string with the given data.
// Returns an error if the template is invalid or references undefined keys.
func Render(text string, data any) (string, error) {
	t, err := Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}
