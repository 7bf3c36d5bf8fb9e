package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// printer writes command results as an aligned table or as JSON.
type printer struct {
	asJSON bool
	w      io.Writer
}

func newPrinter(format string, w io.Writer) (*printer, error) {
	switch format {
	case "table":
		return &printer{w: w}, nil
	case "json":
		return &printer{asJSON: true, w: w}, nil
	}
	return nil, fmt.Errorf("unknown output format %q (want table or json)", format)
}

func (p *printer) isJSON() bool { return p.asJSON }

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table aligns header and rows on tab stops. Cells must not contain tabs.
func (p *printer) table(header []string, rows [][]string) {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
}
