// Package printer formats cafectl output.
package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)

	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
)

// SetOutput redirects normal and error output. nil restores the process
// streams.
func SetOutput(stdout, stderr io.Writer) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	out = stdout
	errOut = stderr
}

// Success prints a message in green with a checkmark prefix.
func Success(format string, a ...any) {
	green.Fprintf(out, "✓ %s\n", fmt.Sprintf(format, a...))
}

func Info(format string, a ...any) {
	fmt.Fprintf(out, format+"\n", a...)
}

// Warning prints a message in yellow with a warning prefix.
func Warning(format string, a ...any) {
	yellow.Fprintf(out, "⚠️  %s\n", fmt.Sprintf(format, a...))
}

// Step prints an in-progress step, e.g. the optimistic phase of a mutation.
func Step(format string, a ...any) {
	cyan.Fprintf(out, "→ %s\n", fmt.Sprintf(format, a...))
}

// Error prints title, explanation and suggestions to stderr and returns a
// plain error carrying the title, for cobra to propagate.
func Error(title string, explanation string, suggestions []string) error {
	red.Fprintf(errOut, "%s\n\n", title)
	if explanation != "" {
		fmt.Fprintf(errOut, "%s\n", explanation)
	}
	if len(suggestions) > 0 {
		fmt.Fprintf(errOut, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(errOut, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(errOut, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(errOut, "  %d. %s\n", i+1, suggestion)
			}
		}
	}
	return fmt.Errorf("%s", title)
}

// KeyValues prints pairs in key order, aligned.
func KeyValues(pairs map[string]string) {
	keys := make([]string, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, key := range keys {
		fmt.Fprintf(w, "%s:\t%s\n", key, pairs[key])
	}
	_ = w.Flush()
}

// Records prints records as a table. Columns are the JSON field names of
// the first record; id comes first, the rest in alphabetical order.
// Nested values are printed as compact JSON.
func Records[T any](records []T) error {
	if len(records) == 0 {
		Info("(no records)")
		return nil
	}
	rows := make([]map[string]json.RawMessage, 0, len(records))
	for _, record := range records {
		raw, err := json.Marshal(record)
		if err != nil {
			return err
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return err
		}
		rows = append(rows, fields)
	}

	columns := columnsOf(rows[0])
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = bold.Sprint(strings.ToUpper(col))
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = cell(row[col])
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

// JSON pretty-prints v.
func JSON(v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func columnsOf(fields map[string]json.RawMessage) []string {
	columns := make([]string, 0, len(fields))
	for key := range fields {
		if key != "id" {
			columns = append(columns, key)
		}
	}
	sort.Strings(columns)
	if _, ok := fields["id"]; ok {
		columns = append([]string{"id"}, columns...)
	}
	return columns
}

func cell(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "-"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
