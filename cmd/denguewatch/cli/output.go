package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"golang.org/x/term"
)

// wantJSON decides the format for w. "auto" prints tables to a terminal and
// JSON everywhere else so output can be piped into other tools.
func wantJSON(format string, w io.Writer) (bool, error) {
	switch format {
	case "json":
		return true, nil
	case "table":
		return false, nil
	case "", "auto":
		f, ok := w.(*os.File)
		return !ok || !term.IsTerminal(int(f.Fd())), nil
	default:
		return false, fmt.Errorf("unknown output format %q (want auto, table or json)", format)
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// render prints v as JSON or hands a tabwriter to table.
func render(w io.Writer, format string, v interface{}, table func(tw *tabwriter.Writer)) error {
	asJSON, err := wantJSON(format, w)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(w, v)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}
