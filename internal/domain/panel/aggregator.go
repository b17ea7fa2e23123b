package panel

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/turtacn/CiteDisrupt/internal/domain/engine"
	"github.com/turtacn/CiteDisrupt/internal/domain/numeric"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

// CompanyPanel is one company's finished contribution to the batch:
// its yearly records plus the focal patent total behind them.
type CompanyPanel struct {
	CompanyName  string              `json:"company_name"`
	TotalPatents int                 `json:"total_patents"`
	Records      []CompanyYearRecord `json:"records"`
}

// CompanyFailure records a company whose processing failed and was
// therefore omitted from the panel.
type CompanyFailure struct {
	CompanyName string `json:"company_name"`
	Reason      string `json:"reason"`
}

// Summary holds cross-sectional statistics over all panel rows.
type Summary struct {
	TotalCompanies int     `json:"total_companies"`
	TotalPatents   int     `json:"total_patents"`
	TotalCitations int     `json:"total_citations"`
	AverageDI      float64 `json:"average_di"`
	MedianDI       float64 `json:"median_di"`
	StdDevDI       float64 `json:"std_dev_di"`
	AveragePureF   float64 `json:"average_pure_f"`
	MedianPureF    float64 `json:"median_pure_f"`
}

// RankedCompany is one company's aggregate line in a ranking.
type RankedCompany struct {
	CompanyName        string  `json:"company_name"`
	Years              int     `json:"years"`
	AverageDI          float64 `json:"average_di"`
	AveragePureF       float64 `json:"average_pure_f"`
	TotalCitations     int     `json:"total_citations"`
	CitationsPerPatent float64 `json:"citations_per_patent"`
}

// Rankings orders companies by the three headline metrics. Ties break
// on company name so reruns produce identical output.
type Rankings struct {
	ByDisruption         []RankedCompany `json:"by_disruption"`
	ByPureF              []RankedCompany `json:"by_pure_f"`
	ByCitationsPerPatent []RankedCompany `json:"by_citations_per_patent"`
}

// Aggregator collects per-company records at the batch fan-in point.
// Merging a company replaces any rows it contributed before, so
// re-running a company leaves the panel exactly as a single run would.
// Not safe for concurrent use; the pipeline merges from one goroutine.
type Aggregator struct {
	params   engine.Params
	log      logging.Logger
	rows     map[Key]CompanyYearRecord
	patents  map[string]int
	failed   []CompanyFailure
	warnings []engine.Warning
}

// NewAggregator returns an empty aggregator.
func NewAggregator(params engine.Params, log logging.Logger) *Aggregator {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Aggregator{
		params:  params,
		log:     log,
		rows:    make(map[Key]CompanyYearRecord),
		patents: make(map[string]int),
	}
}

// Merge folds companies into the panel. Records failing validation are
// kept with a warning; records whose company name contradicts their
// batch are skipped with a conflict warning.
func (a *Aggregator) Merge(companies ...CompanyPanel) {
	for _, c := range companies {
		if c.CompanyName == "" {
			a.warn(engine.Warning{
				Code:    errors.ErrCodePanelRecordInvalid,
				Message: "company batch without a name skipped",
			})
			continue
		}
		a.drop(c.CompanyName)
		a.patents[c.CompanyName] = c.TotalPatents
		for _, r := range c.Records {
			if r.CompanyName != c.CompanyName {
				a.warn(engine.Warning{
					Code:    errors.ErrCodePanelMergeConflict,
					Message: "record for " + r.CompanyName + " found in batch " + c.CompanyName,
					Value:   float64(r.Year),
				})
				continue
			}
			for _, w := range r.validate() {
				a.warn(w)
			}
			a.rows[r.Key()] = r
		}
	}
}

// MarkFailed omits a company from the panel and records why. Rows the
// company contributed earlier are removed; every other company is
// untouched.
func (a *Aggregator) MarkFailed(company string, err error) {
	a.drop(company)
	delete(a.patents, company)
	f := CompanyFailure{CompanyName: company}
	if err != nil {
		f.Reason = err.Error()
	}
	a.failed = append(a.failed, f)
	a.log.Error("company omitted from panel",
		logging.String(logging.FieldCompany, company),
		logging.String("code", errors.ErrCodePanelCompanyFailed.String()),
		logging.Err(err))
}

// Panel returns the rows ordered by (company_name, year).
func (a *Aggregator) Panel() []CompanyYearRecord {
	keys := make([]Key, 0, len(a.rows))
	for k := range a.rows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CompanyName != keys[j].CompanyName {
			return keys[i].CompanyName < keys[j].CompanyName
		}
		return keys[i].Year < keys[j].Year
	})
	out := make([]CompanyYearRecord, 0, len(keys))
	for _, k := range keys {
		out = append(out, a.rows[k])
	}
	return out
}

// Summary derives the cross-sectional statistics, one observation per
// panel row. Empty panels summarize to the zero value.
func (a *Aggregator) Summary() Summary {
	rows := a.Panel()
	s := Summary{}
	if len(rows) == 0 {
		return s
	}

	companies := make(map[string]struct{})
	dis := make([]float64, 0, len(rows))
	pures := make([]float64, 0, len(rows))
	for _, r := range rows {
		companies[r.CompanyName] = struct{}{}
		dis = append(dis, r.DisruptionIndex)
		pures = append(pures, r.PureFScore)
		s.TotalCitations += r.TotalCitations
	}
	for _, n := range a.patents {
		s.TotalPatents += n
	}
	s.TotalCompanies = len(companies)

	prec := a.params.ScorePrecision
	s.AverageDI = numeric.Round(stat.Mean(dis, nil), prec)
	s.AveragePureF = numeric.Round(stat.Mean(pures, nil), prec)
	if len(dis) > 1 {
		s.StdDevDI = numeric.Round(stat.StdDev(dis, nil), prec)
	}
	sort.Float64s(dis)
	sort.Float64s(pures)
	s.MedianDI = numeric.Round(stat.Quantile(0.5, stat.Empirical, dis, nil), prec)
	s.MedianPureF = numeric.Round(stat.Quantile(0.5, stat.Empirical, pures, nil), prec)
	return s
}

// Rankings orders companies by mean DI, mean Pure F and citations per
// patent, truncated to topN when topN > 0.
func (a *Aggregator) Rankings(topN int) Rankings {
	lines := a.companyLines()
	return Rankings{
		ByDisruption:         topBy(lines, topN, func(c RankedCompany) float64 { return c.AverageDI }),
		ByPureF:              topBy(lines, topN, func(c RankedCompany) float64 { return c.AveragePureF }),
		ByCitationsPerPatent: topBy(lines, topN, func(c RankedCompany) float64 { return c.CitationsPerPatent }),
	}
}

// Failed lists the omitted companies in the order they were reported.
func (a *Aggregator) Failed() []CompanyFailure {
	out := make([]CompanyFailure, len(a.failed))
	copy(out, a.failed)
	return out
}

// Warnings returns the validation warnings collected so far.
func (a *Aggregator) Warnings() []engine.Warning {
	out := make([]engine.Warning, len(a.warnings))
	copy(out, a.warnings)
	return out
}

func (a *Aggregator) companyLines() []RankedCompany {
	type acc struct {
		years     int
		diSum     float64
		pureSum   float64
		citations int
	}
	byCompany := make(map[string]*acc)
	for _, r := range a.rows {
		c, ok := byCompany[r.CompanyName]
		if !ok {
			c = &acc{}
			byCompany[r.CompanyName] = c
		}
		c.years++
		c.diSum += r.DisruptionIndex
		c.pureSum += r.PureFScore
		c.citations += r.TotalCitations
	}

	names := make([]string, 0, len(byCompany))
	for name := range byCompany {
		names = append(names, name)
	}
	sort.Strings(names)

	prec := a.params.ScorePrecision
	lines := make([]RankedCompany, 0, len(names))
	for _, name := range names {
		c := byCompany[name]
		lines = append(lines, RankedCompany{
			CompanyName:        name,
			Years:              c.years,
			AverageDI:          numeric.Round(numeric.Ratio(c.diSum, float64(c.years)), prec),
			AveragePureF:       numeric.Round(numeric.Ratio(c.pureSum, float64(c.years)), prec),
			TotalCitations:     c.citations,
			CitationsPerPatent: numeric.Round(numeric.RatioInt(c.citations, a.patents[name]), prec),
		})
	}
	return lines
}

func topBy(lines []RankedCompany, topN int, metric func(RankedCompany) float64) []RankedCompany {
	out := make([]RankedCompany, len(lines))
	copy(out, lines)
	sort.SliceStable(out, func(i, j int) bool {
		mi, mj := metric(out[i]), metric(out[j])
		if mi != mj {
			return mi > mj
		}
		return out[i].CompanyName < out[j].CompanyName
	})
	if topN > 0 && topN < len(out) {
		out = out[:topN]
	}
	return out
}

func (a *Aggregator) drop(company string) {
	for k := range a.rows {
		if k.CompanyName == company {
			delete(a.rows, k)
		}
	}
}

func (a *Aggregator) warn(w engine.Warning) {
	a.warnings = append(a.warnings, w)
	a.log.Warn(w.Message,
		logging.String("code", w.Code.String()),
		logging.Float64("value", w.Value))
}
