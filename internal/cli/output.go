package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/phrazzld/taskboard-api/internal/ordering"
	"github.com/spf13/cobra"
)

// printer renders command results as aligned text or JSON.
type printer struct {
	out    io.Writer
	format string
}

func newPrinter(cmd *cobra.Command, format string) *printer {
	return &printer{out: cmd.OutOrStdout(), format: format}
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type columnOutput struct {
	Scope   string           `json:"scope"`
	Status  string           `json:"status"`
	Entries []ordering.Entry `json:"entries"`
}

func (p *printer) column(col ordering.Column) error {
	if p.format == "json" {
		entries := col.Entries
		if entries == nil {
			entries = []ordering.Entry{}
		}
		return p.json(columnOutput{Scope: col.Scope.String(), Status: string(col.Status), Entries: entries})
	}

	fmt.Fprintf(p.out, "%s %s (%d tasks)\n", col.Scope, col.Status, col.Len())
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tPOSITION\tTASK")
	for i, e := range col.Entries {
		fmt.Fprintf(tw, "%d\t%g\t%s\n", i, e.Position, e.TaskID)
	}
	return tw.Flush()
}

func (p *printer) verification(col ordering.Column, verr error) error {
	if p.format == "json" {
		out := struct {
			Scope  string `json:"scope"`
			Status string `json:"status"`
			Tasks  int    `json:"tasks"`
			Valid  bool   `json:"valid"`
			Error  string `json:"error,omitempty"`
		}{Scope: col.Scope.String(), Status: string(col.Status), Tasks: col.Len(), Valid: verr == nil}
		if verr != nil {
			out.Error = verr.Error()
		}
		return p.json(out)
	}
	if verr != nil {
		_, err := fmt.Fprintf(p.out, "FAIL %s %s: %v\n", col.Scope, col.Status, verr)
		return err
	}
	_, err := fmt.Fprintf(p.out, "OK %s %s: %d tasks in order\n", col.Scope, col.Status, col.Len())
	return err
}

func (p *printer) token(token string, expires time.Time) error {
	if p.format == "json" {
		return p.json(struct {
			Token     string    `json:"token"`
			ExpiresAt time.Time `json:"expires_at"`
		}{token, expires.UTC()})
	}
	_, err := fmt.Fprintln(p.out, token)
	return err
}
