package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/lsp/app"
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Print the resource scheduling order of the selected plan",
	RunE: func(cmd *cobra.Command, _ []string) error {
		l, _, err := app.LoadScenario(cfg.Scenario)
		if err != nil {
			return err
		}
		order, err := l.Selected().ScheduleOrder()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "#\tRESOURCE\tKIND\tCLIENT ELEMENTS\n")
		for i, r := range order {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", i+1, r.ID(), r.Kind(), len(l.Selected().ClientElements(r.ID())))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(orderCmd)
}
