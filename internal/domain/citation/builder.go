package citation

import (
	"sort"

	"github.com/turtacn/CiteDisrupt/internal/domain/engine"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

// Builder assembles per-company citation graphs from validated rows.
// A single builder can be reused across companies; Build itself is
// stateless.
type Builder struct {
	params engine.Params
	log    logging.Logger
}

// NewBuilder returns a builder using the given engine parameters. A nil
// logger falls back to a no-op logger.
func NewBuilder(params engine.Params, log logging.Logger) *Builder {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Builder{params: params, log: log}
}

// Build assembles the company graph from its citation-table rows.
//
// Every edge a row declares is merged into one deduplicated edge set:
// a backward entry of the focal row and a forward entry of the cited
// row describe the same edge and collapse to a single entry, first
// occurrence wins. Duplicate focal rows, self-citations, inverted-date
// edges and malformed edges are dropped and counted in the report; the
// build never aborts on bad rows. An empty record set yields a valid
// empty graph.
func (b *Builder) Build(company string, records []PatentRecord) (*Graph, error) {
	if company == "" {
		return nil, errors.New(errors.ErrCodeGraphBuildFailed, "company name is empty")
	}

	report := &BuildReport{Records: len(records)}
	patents := make(map[string]*Patent, len(records))
	edges := make(map[edgeKey]CitationEdge)

	for _, rec := range records {
		if rec.PatentID == "" || rec.GrantDate.IsZero() {
			report.Issues = append(report.Issues, BuildIssue{
				PatentID: rec.PatentID,
				Code:     errors.ErrCodeRowFieldMissing,
				Message:  "missing patent id or grant date",
			})
			b.log.Warn("skipping record with missing patent id or grant date",
				logging.String(logging.FieldCompany, company),
				logging.String(logging.FieldPatent, rec.PatentID))
			continue
		}
		if _, dup := patents[rec.PatentID]; dup {
			report.DuplicatePatents++
			report.Issues = append(report.Issues, BuildIssue{
				PatentID: rec.PatentID,
				Code:     errors.ErrCodeRowMalformed,
				Message:  "duplicate focal patent row",
			})
			b.log.Warn("skipping duplicate focal patent row",
				logging.String(logging.FieldCompany, company),
				logging.String(logging.FieldPatent, rec.PatentID))
			continue
		}

		p := &Patent{
			ID:              rec.PatentID,
			Company:         company,
			GrantDate:       rec.GrantDate,
			GrantYear:       rec.GrantDate.Year(),
			ApplicationDate: rec.ApplicationDate,
			Assignee:        rec.Assignee,
			IPCCode:         rec.IPCCode,
			DeclaredForward: rec.DeclaredForward,
		}
		patents[p.ID] = p
		report.Accepted++

		for _, c := range rec.Backward {
			b.addEdge(edges, report, CitationEdge{
				CitingID:   p.ID,
				CitedID:    c.PatentID,
				CitingDate: p.GrantDate,
				CitedDate:  c.Date,
			})
		}
		for _, c := range rec.Forward {
			b.addEdge(edges, report, CitationEdge{
				CitingID:   c.PatentID,
				CitedID:    p.ID,
				CitingDate: c.Date,
				CitedDate:  p.GrantDate,
			})
		}
	}

	g := assemble(company, b.params, patents, edges, report)

	if dropped := report.DroppedEdges(); dropped > 0 || report.DuplicatePatents > 0 {
		b.log.Warn("graph built with dropped elements",
			logging.String(logging.FieldCompany, company),
			logging.Int("patents", g.Size()),
			logging.Int("edges", g.EdgeCount()),
			logging.Int("duplicate_patents", report.DuplicatePatents),
			logging.Int("self_citations", report.SelfCitations),
			logging.Int("inverted_edges", report.InvertedEdges),
			logging.Int("malformed_edges", report.MalformedEdges),
			logging.Int("duplicate_edges", report.DuplicateEdges))
	}
	if g.Size() == 0 {
		b.log.Warn("company network is empty",
			logging.String(logging.FieldCompany, company),
			logging.String("code", errors.ErrCodeGraphEmptyNetwork.String()))
	}
	return g, nil
}

func (b *Builder) addEdge(edges map[edgeKey]CitationEdge, report *BuildReport, e CitationEdge) {
	if err := e.Validate(); err != nil {
		switch {
		case e.CitingID == "" || e.CitedID == "":
			report.MalformedEdges++
		case e.CitingID == e.CitedID:
			report.SelfCitations++
		default:
			report.InvertedEdges++
		}
		return
	}
	key := edgeKey{citing: e.CitingID, cited: e.CitedID}
	if _, ok := edges[key]; ok {
		report.DuplicateEdges++
		return
	}
	edges[key] = e
}

// assemble freezes the collected rows and edges into a queryable graph.
// Edge keys are sorted before adjacency construction so that every
// derived list is ordered by patent ID and reruns produce identical
// graphs.
func assemble(company string, params engine.Params, patents map[string]*Patent, edges map[edgeKey]CitationEdge, report *BuildReport) *Graph {
	keys := make([]edgeKey, 0, len(edges))
	for k := range edges {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].citing != keys[j].citing {
			return keys[i].citing < keys[j].citing
		}
		return keys[i].cited < keys[j].cited
	})

	edgeList := make([]CitationEdge, 0, len(keys))
	edgeSet := make(map[edgeKey]struct{}, len(keys))
	forward := make(map[string][]Citation)
	backward := make(map[string][]Citation)
	for _, k := range keys {
		e := edges[k]
		edgeList = append(edgeList, e)
		edgeSet[k] = struct{}{}
		if _, ok := patents[e.CitedID]; ok {
			forward[e.CitedID] = append(forward[e.CitedID], Citation{PatentID: e.CitingID, Date: e.CitingDate})
		}
		if _, ok := patents[e.CitingID]; ok {
			backward[e.CitingID] = append(backward[e.CitingID], Citation{PatentID: e.CitedID, Date: e.CitedDate})
		}
	}

	ids := make([]string, 0, len(patents))
	for id := range patents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return &Graph{
		company:  company,
		params:   params,
		patents:  patents,
		forward:  forward,
		backward: backward,
		edgeSet:  edgeSet,
		edges:    edgeList,
		ids:      ids,
		report:   report,
	}
}
