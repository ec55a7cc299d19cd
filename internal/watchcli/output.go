package watchcli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

// render writes data as JSON or YAML, or calls table for the default format.
func render(cmd *cobra.Command, data interface{}, table func(tw *tabwriter.Writer)) error {
	out := cmd.OutOrStdout()
	switch strings.ToLower(outputFormat) {
	case "json":
		return printJSON(out, data)
	case "yaml":
		return printYAML(out, data)
	case "table", "":
		tw := newTable(out)
		table(tw)
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}
}

func printJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printYAML(w io.Writer, data interface{}) error {
	raw, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	return err
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func humanDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	units := []struct {
		Dur  time.Duration
		Name string
	}{
		{24 * time.Hour, "d"},
		{time.Hour, "h"},
		{time.Minute, "m"},
		{time.Second, "s"},
	}
	var parts []string
	remainder := d
	for _, unit := range units {
		if remainder >= unit.Dur {
			value := remainder / unit.Dur
			remainder -= value * unit.Dur
			parts = append(parts, fmt.Sprintf("%d%s", value, unit.Name))
			if len(parts) == 2 {
				break
			}
		}
	}
	if len(parts) == 0 {
		return "0s"
	}
	return strings.Join(parts, " ")
}

// relativeTime renders an ISO timestamp relative to now, or "-" when empty.
// Unparseable values are returned unchanged.
func relativeTime(iso string) string {
	if iso == "" {
		return "-"
	}
	t, err := time.Parse(time.RFC3339Nano, iso)
	if err != nil {
		return iso
	}
	diff := time.Since(t)
	suffix := "ago"
	if diff < 0 {
		diff = -diff
		suffix = "from now"
	}
	return fmt.Sprintf("%s %s", humanDuration(diff), suffix)
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func confirmPrompt(prompt string, in io.Reader, out io.Writer) (bool, error) {
	reader := bufio.NewReader(in)
	fmt.Fprint(out, prompt)
	input, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes" || input == "s" || input == "si" || input == "sí", nil
}

// jsonLine encodes v as a single newline-terminated JSON line.
func jsonLine(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(raw, '\n'), nil
}
