package citation

import (
	"time"

	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

// Patent is one in-corpus focal patent. Instances are created by the
// graph builder and never mutated afterwards.
type Patent struct {
	ID              string     `json:"id"`
	Company         string     `json:"company"`
	GrantDate       time.Time  `json:"grant_date"`
	GrantYear       int        `json:"grant_year"`
	ApplicationDate *time.Time `json:"application_date,omitempty"`
	Assignee        string     `json:"assignee,omitempty"`
	IPCCode         string     `json:"ipc_code,omitempty"`

	// DeclaredForward is the forward citation count the source table
	// declared for this patent. It may exceed the number of resolvable
	// citer entries when the source truncates its citation lists.
	DeclaredForward int `json:"declared_forward"`
}

// Citation is one dated reference to or from another patent.
type Citation struct {
	PatentID string    `json:"patent_id"`
	Date     time.Time `json:"date"`
}

// PatentRecord is one validated row of a company citation table: the
// focal patent plus its declared forward citers and backward citations.
// Rows are produced by the ingest layer with all dates resolved.
type PatentRecord struct {
	PatentID        string
	GrantDate       time.Time
	ApplicationDate *time.Time
	Assignee        string
	IPCCode         string
	DeclaredForward int
	Forward         []Citation
	Backward        []Citation
}

// CitationEdge is a directed citing-to-cited edge carrying both endpoint
// dates.
type CitationEdge struct {
	CitingID   string    `json:"citing_id"`
	CitedID    string    `json:"cited_id"`
	CitingDate time.Time `json:"citing_date"`
	CitedDate  time.Time `json:"cited_date"`
}

// Validate reports whether the edge is structurally sound. Self-citations
// and edges whose cited date falls after the citing date are invalid and
// get dropped by the builder, never corrected.
func (e CitationEdge) Validate() error {
	if e.CitingID == "" || e.CitedID == "" {
		return errors.New(errors.ErrCodeRowFieldMissing, "citation edge endpoint is empty")
	}
	if e.CitingID == e.CitedID {
		return errors.New(errors.ErrCodeRowMalformed, "self-citation")
	}
	if !e.CitingDate.IsZero() && !e.CitedDate.IsZero() && e.CitedDate.After(e.CitingDate) {
		return errors.New(errors.ErrCodeRowMalformed, "cited date after citing date")
	}
	return nil
}

// NetworkStats summarizes a company's assembled citation network.
type NetworkStats struct {
	CompanyName         string  `json:"company_name"`
	FocalPatents        int     `json:"focal_patents"`
	Edges               int     `json:"edges"`
	UniqueCitingPatents int     `json:"unique_citing_patents"`
	UniqueCitedPatents  int     `json:"unique_cited_patents"`
	CompanyDensity      float64 `json:"company_density"`
	MeanCitationLag     float64 `json:"mean_citation_lag"`
}

// BuildIssue is one record-level problem found during graph assembly.
type BuildIssue struct {
	PatentID string           `json:"patent_id"`
	Code     errors.ErrorCode `json:"code"`
	Message  string           `json:"message"`
}

// RowError is one rejected input-table row. The row is skipped and the
// company's remaining rows proceed.
type RowError struct {
	Line     int              `json:"line"`
	PatentID string           `json:"patent_id,omitempty"`
	Code     errors.ErrorCode `json:"code"`
	Message  string           `json:"message"`
}

// BuildReport counts what the builder kept and dropped. Dropped rows and
// edges are skipped with a warning; the build always continues.
type BuildReport struct {
	Records          int          `json:"records"`
	Accepted         int          `json:"accepted"`
	DuplicatePatents int          `json:"duplicate_patents"`
	SelfCitations    int          `json:"self_citations"`
	InvertedEdges    int          `json:"inverted_edges"`
	MalformedEdges   int          `json:"malformed_edges"`
	DuplicateEdges   int          `json:"duplicate_edges"`
	Issues           []BuildIssue `json:"issues,omitempty"`
}

// DroppedEdges returns the total number of edges discarded during the
// build, duplicates included.
func (r *BuildReport) DroppedEdges() int {
	return r.SelfCitations + r.InvertedEdges + r.MalformedEdges + r.DuplicateEdges
}
