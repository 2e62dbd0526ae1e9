package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Quidge/reactortest/internal/backend"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List the backend registry",
	Long: `List the backends a test run covers, in run order, with their short
names and whether they resolve on this platform.

Backends that do not resolve produce skipped cases.`,
	Args: cobra.NoArgs,
	RunE: runBackends,
}

func init() {
	rootCmd.AddCommand(backendsCmd)

	backendsCmd.Flags().Bool("json", false, "output as JSON")
}

// backendInfo is one registry entry as shown by `reactortest backends`.
type backendInfo struct {
	ID       string `json:"id"`
	Short    string `json:"short"`
	Resolved bool   `json:"resolved"`
	Reason   string `json:"reason,omitempty"`
}

func describeBackends(reg backend.Registry, r backend.Resolver) []backendInfo {
	infos := make([]backendInfo, 0, len(reg))
	for _, id := range reg {
		info := backendInfo{ID: id, Short: backend.ShortName(id), Resolved: true}
		if _, err := r.Resolve(id); err != nil {
			info.Resolved = false
			info.Reason = resolutionReason(err)
		}
		infos = append(infos, info)
	}
	return infos
}

// resolutionReason prefers the resolver's reason over the full message.
func resolutionReason(err error) string {
	var resErr *backend.ResolutionError
	if errors.As(err, &resErr) && resErr.Reason != "" {
		return resErr.Reason
	}
	return err.Error()
}

func runBackends(cmd *cobra.Command, _ []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	infos := describeBackends(cfg.Registry(), backend.Default)

	w := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	if len(infos) == 0 {
		fmt.Fprintln(w, "No backends configured.")
		return nil
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"#", "BACKEND", "SHORT", "STATUS"})
	for i, info := range infos {
		status := paint(text.FgGreen, "resolved")
		if !info.Resolved {
			status = paint(text.FgYellow, "skip: "+info.Reason)
		}
		t.AppendRow(table.Row{i + 1, info.ID, info.Short, status})
	}
	t.Render()
	return nil
}

// newTable creates a table with the standard styling writing to w.
func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

// paint colors s when output goes to a terminal.
func paint(c text.Color, s string) string {
	if !colorOutput {
		return s
	}
	return c.Sprint(s)
}
