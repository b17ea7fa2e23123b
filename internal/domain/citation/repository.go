package citation

import "context"

// NetworkRepository persists company citation networks to a graph
// store. Implementations must be safe for concurrent use; the pipeline
// persists several company networks at once.
type NetworkRepository interface {
	// EnsurePatentNodes upserts the focal patent nodes of a company.
	EnsurePatentNodes(ctx context.Context, company string, patents []*Patent) error

	// BatchCreateCitations upserts citation edges. Re-running with the
	// same edges must not create duplicates.
	BatchCreateCitations(ctx context.Context, edges []CitationEdge) error

	// SaveNetworkStats records the computed statistics of a company
	// network together with the run that produced them. A later run for
	// the same company overwrites the earlier snapshot.
	SaveNetworkStats(ctx context.Context, runID string, stats NetworkStats) error

	// GetCompanyNetworkStats reads back network statistics for one
	// company from the store.
	GetCompanyNetworkStats(ctx context.Context, company string) (*NetworkStats, error)

	// DeleteCompanyNetwork removes a company's nodes and edges so a
	// fresh run can repopulate them.
	DeleteCompanyNetwork(ctx context.Context, company string) error

	// Ping verifies store connectivity.
	Ping(ctx context.Context) error
}
