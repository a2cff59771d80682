package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/devdox/dashboard/internal/notify"
)

type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
)

func parseFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case formatTable, formatJSON, formatYAML:
		return f, nil
	case "":
		return formatTable, nil
	}
	return "", fmt.Errorf("unknown output format %q: want table, json or yaml", s)
}

// print writes v as JSON or YAML, or calls table with a tabwriter.
func (a *app) print(v any, table func(w *tabwriter.Writer)) error {
	format, err := parseFormat(a.v.GetString("output"))
	if err != nil {
		return err
	}

	switch format {
	case formatJSON:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		return writeYAML(a.out, v)
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	table(w)
	return w.Flush()
}

// writeYAML goes through JSON so field names follow the API's json tags.
func writeYAML(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

func ago(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return humanize.Time(*t)
}

func printNotifications(w io.Writer, center *notify.Center) {
	for _, n := range center.List() {
		if n.Message == "" {
			fmt.Fprintln(w, n.Title)
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", n.Title, n.Message)
	}
}
