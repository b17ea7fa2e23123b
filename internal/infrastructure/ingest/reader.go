// Package ingest reads per-company citation tables from CSV into
// validated typed records. It is the only layer that touches the raw
// input format: malformed rows become RowError diagnostics and are
// skipped, while a missing required column fails the whole table. Every
// date is resolved before a record leaves this package.
package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/CiteDisrupt/internal/domain/citation"
	"github.com/turtacn/CiteDisrupt/internal/domain/engine"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

// Required input columns. Tables may carry more; extra columns are
// ignored.
const (
	colCitingPatentID  = "citing_patent_id"
	colForwardCount    = "forward_citation_count"
	colForwardNumbers  = "forward_cited_numbers"
	colForwardDates    = "forward_cited_dates"
	colBackwardNumbers = "backward_cited_numbers"
	colBackwardDates   = "backward_cited_dates"
	colGrantDate       = "grant_date"
	colIPCCode         = "ipc_code"
	colApplicationDate = "application_date"
	colAssigneeName    = "assignee_name"
)

var requiredColumns = []string{
	colCitingPatentID,
	colForwardCount,
	colForwardNumbers,
	colForwardDates,
	colBackwardNumbers,
	colBackwardDates,
	colGrantDate,
	colIPCCode,
}

// dateLayouts are tried in order when resolving a date cell.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"20060102",
}

// ipcPattern extracts the section/class/subclass prefix from a raw
// classification cell, e.g. "A61K31/4745" -> "A61K31".
var ipcPattern = regexp.MustCompile(`[A-H][0-9]+[A-Z][0-9]+`)

// CompanyTable is the parsed form of one company's citation table.
type CompanyTable struct {
	CompanyName string
	Records     []citation.PatentRecord
	RowErrors   []citation.RowError

	// FilteredRows counts rows whose grant year fell outside the
	// configured year window. They are neither records nor errors.
	FilteredRows int
}

// CSVReader parses company citation tables.
type CSVReader struct {
	params engine.Params
	log    logging.Logger
}

// NewCSVReader creates a reader that admits grant years inside the
// params year window.
func NewCSVReader(params engine.Params, log logging.Logger) *CSVReader {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CSVReader{params: params, log: log}
}

// StandardizeCompanyName maps a display name onto the canonical form
// used as panel key: lower case, spaces to underscores, "&" to "and".
func StandardizeCompanyName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "&", "and")
	return name
}

// ListCompanyFiles returns the CSV files directly under dir, sorted by
// name. Each file is one company table named after the company.
func ListCompanyFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnreadable, "input directory unreadable: "+dir)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// ReadCompanyFile reads one company table from path. The company name
// is the file base name, standardized.
func (r *CSVReader) ReadCompanyFile(ctx context.Context, path string) (*CompanyTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnreadable, "company table unreadable: "+path)
	}
	defer f.Close()

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return r.ReadCompanyTable(ctx, base, f)
}

// ReadCompanyTable parses a company citation table from src. Rows that
// cannot be repaired are recorded as RowErrors and skipped; a header
// missing a required column fails the table as a whole.
func (r *CSVReader) ReadCompanyTable(ctx context.Context, company string, src io.Reader) (*CompanyTable, error) {
	name := StandardizeCompanyName(company)
	if name == "" {
		return nil, errors.New(errors.ErrCodeCompanyLoadFailed, "company name is empty")
	}

	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeDatasetEmpty, "company table has no header: "+name)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSourceUnreadable, "company table header unreadable: "+name)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	table := &CompanyTable{CompanyName: name}
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCompanyLoadFailed, "table read cancelled: "+name)
		}
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			table.RowErrors = append(table.RowErrors, citation.RowError{
				Line:    line,
				Code:    errors.ErrCodeRowMalformed,
				Message: err.Error(),
			})
			continue
		}

		rec, rowErr := r.parseRow(cols, row, line)
		if rowErr != nil {
			table.RowErrors = append(table.RowErrors, *rowErr)
			continue
		}
		if y := rec.GrantDate.Year(); y < r.params.MinYear || y > r.params.MaxYear {
			table.FilteredRows++
			continue
		}
		table.Records = append(table.Records, rec)
	}

	r.log.Info("company table read",
		logging.String(logging.FieldCompany, name),
		logging.Int("records", len(table.Records)),
		logging.Int("row_errors", len(table.RowErrors)),
		logging.Int("filtered", table.FilteredRows))
	return table, nil
}

// columnIndex maps the known columns onto their header positions.
// Optional columns sit at -1 when absent.
type columnIndex struct {
	citingID        int
	forwardCount    int
	forwardNumbers  int
	forwardDates    int
	backwardNumbers int
	backwardDates   int
	grantDate       int
	ipcCode         int
	applicationDate int
	assigneeName    int
}

func resolveColumns(header []string) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\uFEFF")
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := pos[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return columnIndex{}, errors.New(errors.ErrCodeHeaderInvalid,
			"missing required columns: "+strings.Join(missing, ", "))
	}

	optional := func(col string) int {
		if i, ok := pos[col]; ok {
			return i
		}
		return -1
	}
	return columnIndex{
		citingID:        pos[colCitingPatentID],
		forwardCount:    pos[colForwardCount],
		forwardNumbers:  pos[colForwardNumbers],
		forwardDates:    pos[colForwardDates],
		backwardNumbers: pos[colBackwardNumbers],
		backwardDates:   pos[colBackwardDates],
		grantDate:       pos[colGrantDate],
		ipcCode:         pos[colIPCCode],
		applicationDate: optional(colApplicationDate),
		assigneeName:    optional(colAssigneeName),
	}, nil
}

func (r *CSVReader) parseRow(cols columnIndex, row []string, line int) (citation.PatentRecord, *citation.RowError) {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	id := cell(cols.citingID)
	if id == "" {
		return citation.PatentRecord{}, &citation.RowError{
			Line:    line,
			Code:    errors.ErrCodeRowFieldMissing,
			Message: "citing_patent_id is empty",
		}
	}

	grantRaw := cell(cols.grantDate)
	grant, ok := parseDate(grantRaw)
	if !ok {
		return citation.PatentRecord{}, &citation.RowError{
			Line:     line,
			PatentID: id,
			Code:     errors.ErrCodeRowDateUnparseable,
			Message:  "grant_date " + strconv.Quote(grantRaw) + " is unparsable",
		}
	}

	rec := citation.PatentRecord{
		PatentID:  id,
		GrantDate: grant,
		IPCCode:   ipcPattern.FindString(cell(cols.ipcCode)),
		Assignee:  cell(cols.assigneeName),
	}
	if app, ok := parseDate(cell(cols.applicationDate)); ok {
		rec.ApplicationDate = &app
	}

	// Forward citer dates that are absent or unreadable fall back to one
	// year after grant; backward ones to one year before.
	rec.Forward = parseCitationList(cell(cols.forwardNumbers), cell(cols.forwardDates), grant.AddDate(1, 0, 0))
	rec.Backward = parseCitationList(cell(cols.backwardNumbers), cell(cols.backwardDates), grant.AddDate(-1, 0, 0))

	// The declared count wins over the listed citers when the source
	// truncates its lists; an unreadable count falls back to the list.
	if declared, err := strconv.Atoi(cell(cols.forwardCount)); err == nil && declared >= 0 {
		rec.DeclaredForward = declared
	} else {
		rec.DeclaredForward = len(rec.Forward)
	}
	return rec, nil
}

// parseCitationList splits index-matched comma lists of patent numbers
// and dates. Blank number entries are dropped; a missing or unparsable
// date at an index takes the fallback.
func parseCitationList(numbers, dates string, fallback time.Time) []citation.Citation {
	if numbers == "" {
		return nil
	}
	nums := strings.Split(numbers, ",")
	ds := strings.Split(dates, ",")

	out := make([]citation.Citation, 0, len(nums))
	for i, n := range nums {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		date := fallback
		if i < len(ds) {
			if d, ok := parseDate(strings.TrimSpace(ds[i])); ok {
				date = d
			}
		}
		out = append(out, citation.Citation{PatentID: n, Date: date})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
