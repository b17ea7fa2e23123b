package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/CiteDisrupt/internal/domain/panel"
)

func newSummaryCmd() *cobra.Command {
	var topN int

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print summary statistics and rankings from the stored panel",
		Long:  "Recomputes the cross-sectional statistics over the stored panel rows\nand pulls the company rankings from the aggregate queries.",
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

			report, err := buildSummaryReport(ctx, cliCtx, repo, topN)
			if err != nil {
				return err
			}
			return PrintResult(cmd, report)
		},
	}

	cmd.Flags().IntVar(&topN, "top", 10, "ranking list length")
	return cmd
}

// buildSummaryReport feeds the stored rows back through the panel
// aggregator, so the statistics printed here match what the same rows
// produced at batch time.
func buildSummaryReport(ctx context.Context, cliCtx *CLIContext, repo panel.PanelRepository, topN int) (*summaryReport, error) {
	records, err := repo.GetPanel(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := repo.CompanyTotals(ctx)
	if err != nil {
		return nil, err
	}

	// GetPanel orders by company, so the merge order is deterministic.
	agg := panel.NewAggregator(cliCtx.Config.Engine.Params(), cliCtx.Logger)
	grouped := make(map[string][]panel.CompanyYearRecord)
	var order []string
	for _, rec := range records {
		if _, ok := grouped[rec.CompanyName]; !ok {
			order = append(order, rec.CompanyName)
		}
		grouped[rec.CompanyName] = append(grouped[rec.CompanyName], rec)
	}
	for _, name := range order {
		agg.Merge(panel.CompanyPanel{
			CompanyName:  name,
			TotalPatents: totals[name],
			Records:      grouped[name],
		})
	}

	byDI, err := repo.TopByDisruption(ctx, topN)
	if err != nil {
		return nil, err
	}
	byPureF, err := repo.TopByPureF(ctx, topN)
	if err != nil {
		return nil, err
	}
	byCPP, err := repo.TopByCitationsPerPatent(ctx, topN)
	if err != nil {
		return nil, err
	}

	return &summaryReport{
		Summary: agg.Summary(),
		Rankings: panel.Rankings{
			ByDisruption:         byDI,
			ByPureF:              byPureF,
			ByCitationsPerPatent: byCPP,
		},
	}, nil
}

// summaryReport is the summary command's printable outcome.
type summaryReport struct {
	Summary  panel.Summary  `json:"summary"`
	Rankings panel.Rankings `json:"rankings"`
}

func (r *summaryReport) String() string {
	var sb strings.Builder
	s := r.Summary
	fmt.Fprintf(&sb, "Panel: %d companies, %d patents, %d citations\n",
		s.TotalCompanies, s.TotalPatents, s.TotalCitations)
	fmt.Fprintf(&sb, "Disruption index: mean %.4f, median %.4f, stddev %.4f\n",
		s.AverageDI, s.MedianDI, s.StdDevDI)
	fmt.Fprintf(&sb, "Pure F:           mean %.4f, median %.4f\n",
		s.AveragePureF, s.MedianPureF)
	sb.WriteString("\nTop by disruption index\n")
	sb.WriteString(rankingTable(r.Rankings.ByDisruption))
	sb.WriteString("\nTop by Pure F\n")
	sb.WriteString(rankingTable(r.Rankings.ByPureF))
	sb.WriteString("\nTop by citations per patent\n")
	sb.WriteString(rankingTable(r.Rankings.ByCitationsPerPatent))
	return strings.TrimRight(sb.String(), "\n")
}

func rankingTable(lines []panel.RankedCompany) string {
	headers := []string{"COMPANY", "YEARS", "AVG_DI", "AVG_PURE_F", "CITES", "CPP"}
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []string{
			l.CompanyName,
			strconv.Itoa(l.Years),
			formatScore(l.AverageDI),
			formatScore(l.AveragePureF),
			strconv.Itoa(l.TotalCitations),
			formatScore(l.CitationsPerPatent),
		})
	}
	return FormatTable(headers, rows)
}
