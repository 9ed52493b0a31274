package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/normalize"
	"github.com/ogulcanaydogan/unicom-bill-guardian/pkg/sensor"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --output.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// AccountReport is what query prints for one account.
type AccountReport struct {
	Account  string             `json:"account" yaml:"account"`
	Error    string             `json:"error,omitempty" yaml:"error,omitempty"`
	Readings normalize.Readings `json:"readings" yaml:"readings"`
	Sensors  []sensor.Reading   `json:"sensors" yaml:"sensors"`
}

func writeReports(w io.Writer, format string, reports []AccountReport) error {
	switch format {
	case OutputJSON:
		b, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(reports); err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		return enc.Close()
	case OutputTable, "":
		for _, r := range reports {
			writeTable(w, r)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q (use table, json, or yaml)", format)
	}
}

func writeTable(w io.Writer, r AccountReport) {
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.ASCIIBorder()).
		StyleFunc(func(_, _ int) lipgloss.Style {
			return cellStyle
		}).
		Headers("SENSOR", "VALUE", "DETAILS")

	for _, s := range r.Sensors {
		t.Row(s.Name, s.Value.String(), formatAttributes(s.Attributes))
	}

	fmt.Fprintf(w, "Account: %s\n", r.Account)
	fmt.Fprintln(w, t)
	if r.Error != "" {
		fmt.Fprintf(w, "Last refresh failed: %s\n", r.Error)
	}
	if !r.Readings.FetchedAt.IsZero() {
		fmt.Fprintf(w, "Fetched: %s\n", r.Readings.FetchedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(w)
}

func formatAttributes(attrs map[string]string) string {
	if len(attrs) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+attrs[k])
	}
	return strings.Join(parts, "\n")
}
