package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/CiteDisrupt/internal/domain/panel"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/ingest"
)

func newPanelCmd() *cobra.Command {
	var company string

	cmd := &cobra.Command{
		Use:   "panel",
		Short: "Print the stored company-year panel",
		Long:  "Reads the company-year panel from PostgreSQL, either the whole panel\nor one company's rows.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			repo, _, closeStore, err := openPanelStore(cliCtx)
			if err != nil {
				return err
			}
			defer closeStore()

			var records []panel.CompanyYearRecord
			if company != "" {
				records, err = repo.GetCompanyYears(ctx, ingest.StandardizeCompanyName(company))
			} else {
				records, err = repo.GetPanel(ctx)
			}
			if err != nil {
				return err
			}
			return PrintResult(cmd, panelRows(records))
		},
	}

	cmd.Flags().StringVar(&company, "company", "", "print only this company's rows")
	return cmd
}

// panelRows renders panel records in every output format.
type panelRows []panel.CompanyYearRecord

func (p panelRows) TableHeaders() []string {
	return []string{"COMPANY", "YEAR", "DI", "MDI", "J5", "I5", "K5", "PURE_F", "CITES", "MATCHED", "DENSITY", "CPP"}
}

func (p panelRows) TableRows() [][]string {
	rows := make([][]string, 0, len(p))
	for _, r := range p {
		rows = append(rows, []string{
			r.CompanyName,
			strconv.Itoa(r.Year),
			formatScore(r.DisruptionIndex),
			formatScore(r.ModifiedDisruptionIndex),
			formatScore(r.J5Score),
			formatScore(r.I5Score),
			formatScore(r.K5Score),
			formatScore(r.PureFScore),
			strconv.Itoa(r.TotalCitations),
			strconv.Itoa(r.MatchedCitations),
			formatScore(r.NetworkDensity),
			formatScore(r.CitationsPerPatent),
		})
	}
	return rows
}

func (p panelRows) String() string {
	if len(p) == 0 {
		return "panel is empty"
	}
	return strings.TrimRight(FormatTable(p.TableHeaders(), p.TableRows()), "\n")
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
