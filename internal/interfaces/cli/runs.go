package cli

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/CiteDisrupt/internal/domain/panel"
)

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded batch runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			_, runs, closeStore, err := openPanelStore(cliCtx)
			if err != nil {
				return err
			}
			defer closeStore()

			records, err := runs.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			return PrintResult(cmd, runList(records))
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}

// runList renders run records in every output format.
type runList []panel.RunRecord

func (l runList) TableHeaders() []string {
	return []string{"RUN_ID", "STARTED", "FINISHED", "COMPANIES", "FAILED"}
}

func (l runList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, r := range l {
		rows = append(rows, []string{
			r.RunID,
			r.StartedAt.Format(time.RFC3339),
			r.FinishedAt.Format(time.RFC3339),
			strconv.Itoa(r.CompaniesTotal),
			strconv.Itoa(r.CompaniesFailed),
		})
	}
	return rows
}

func (l runList) String() string {
	if len(l) == 0 {
		return "no runs recorded"
	}
	return strings.TrimRight(FormatTable(l.TableHeaders(), l.TableRows()), "\n")
}
