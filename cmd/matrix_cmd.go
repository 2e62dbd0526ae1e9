package cmd

import (
	"fmt"

	"github.com/Quidge/reactortest/internal/backend"
	"github.com/Quidge/reactortest/internal/matrix"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var matrixCmd = &cobra.Command{
	Use:   "matrix BEHAVIOR",
	Short: "Show the cases a behavior expands to",
	Long: `Show the test cases generated for a behavior name: one case per
backend in the registry, named <BEHAVIOR>_<short name>.

Example:
  reactortest matrix Lifecycle`,
	Args: cobra.ExactArgs(1),
	RunE: runMatrix,
}

func init() {
	rootCmd.AddCommand(matrixCmd)
}

func runMatrix(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	m := matrix.Generate(matrix.Behavior{Name: args[0]}, cfg.Registry(), backend.Default)

	w := cmd.OutOrStdout()
	if m.Len() == 0 {
		fmt.Fprintln(w, "No cases generated.")
		return nil
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"CASE", "BACKEND", "STATUS"})
	for _, c := range m.Cases() {
		status := paint(text.FgGreen, "run")
		if c.Skip {
			status = paint(text.FgYellow, "skip: "+c.SkipReason)
		}
		t.AppendRow(table.Row{c.Name, c.Backend, status})
	}
	t.Render()
	return nil
}
