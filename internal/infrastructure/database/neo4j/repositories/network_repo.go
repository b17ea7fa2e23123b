// Package repositories provides the Neo4j-backed implementation of the
// citation network store.
package repositories

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/turtacn/CiteDisrupt/internal/domain/citation"
	driver "github.com/turtacn/CiteDisrupt/internal/infrastructure/database/neo4j"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

// batchSize caps how many rows one UNWIND statement carries, so a large
// company table never becomes a single oversized transaction.
const batchSize = 1000

const dateLayout = "2006-01-02"

type networkRepo struct {
	driver driver.DriverInterface
	log    logging.Logger
}

var _ citation.NetworkRepository = (*networkRepo)(nil)

// NewNetworkRepository returns the graph-backed network store.
func NewNetworkRepository(d driver.DriverInterface, log logging.Logger) citation.NetworkRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &networkRepo{driver: d, log: log}
}

// EnsurePatentNodes upserts the focal patent nodes of a company in
// UNWIND batches. Counterpart patents that only ever appear as citation
// endpoints are created later by the edge writes and stay bare.
func (r *networkRepo) EnsurePatentNodes(ctx context.Context, company string, patents []*citation.Patent) error {
	if len(patents) == 0 {
		return nil
	}
	query := `
		UNWIND $batch AS row
		MERGE (p:Patent {number: row.number})
		ON CREATE SET p.company = row.company, p.grant_date = date(row.grant_date),
			p.grant_year = row.grant_year, p.assignee = row.assignee,
			p.ipc_code = row.ipc_code, p.created_at = datetime()
		ON MATCH SET p.company = row.company, p.grant_date = date(row.grant_date),
			p.grant_year = row.grant_year, p.assignee = row.assignee,
			p.ipc_code = row.ipc_code
	`
	for start := 0; start < len(patents); start += batchSize {
		end := start + batchSize
		if end > len(patents) {
			end = len(patents)
		}
		batch := make([]map[string]interface{}, 0, end-start)
		for _, p := range patents[start:end] {
			row := map[string]interface{}{
				"number":     p.ID,
				"company":    company,
				"grant_year": p.GrantYear,
				"assignee":   p.Assignee,
				"ipc_code":   p.IPCCode,
			}
			if !p.GrantDate.IsZero() {
				row["grant_date"] = p.GrantDate.Format(dateLayout)
			}
			batch = append(batch, row)
		}
		_, err := r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (interface{}, error) {
			_, err := tx.Run(ctx, query, map[string]interface{}{"batch": batch})
			return nil, err
		})
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeGraphPersistFailed,
				fmt.Sprintf("patent node upsert failed for %s", company))
		}
	}
	r.log.Debug("patent nodes ensured",
		logging.String(logging.FieldCompany, company),
		logging.Int("patents", len(patents)))
	return nil
}

// BatchCreateCitations upserts citation edges in UNWIND batches. Edge
// endpoints are merged by patent number, so dangling citers and cited
// patents outside the corpus get a node of their own. MERGE on the
// relationship keeps reruns from duplicating edges.
func (r *networkRepo) BatchCreateCitations(ctx context.Context, edges []citation.CitationEdge) error {
	if len(edges) == 0 {
		return nil
	}
	query := `
		UNWIND $batch AS row
		MERGE (a:Patent {number: row.citing})
		MERGE (b:Patent {number: row.cited})
		MERGE (a)-[c:CITES]->(b)
		ON CREATE SET c.citing_date = date(row.citing_date),
			c.cited_date = date(row.cited_date), c.created_at = datetime()
	`
	created := 0
	for start := 0; start < len(edges); start += batchSize {
		end := start + batchSize
		if end > len(edges) {
			end = len(edges)
		}
		batch := make([]map[string]interface{}, 0, end-start)
		for _, e := range edges[start:end] {
			row := map[string]interface{}{
				"citing": e.CitingID,
				"cited":  e.CitedID,
			}
			if !e.CitingDate.IsZero() {
				row["citing_date"] = e.CitingDate.Format(dateLayout)
			}
			if !e.CitedDate.IsZero() {
				row["cited_date"] = e.CitedDate.Format(dateLayout)
			}
			batch = append(batch, row)
		}
		res, err := r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (interface{}, error) {
			result, err := tx.Run(ctx, query, map[string]interface{}{"batch": batch})
			if err != nil {
				return nil, err
			}
			summary, err := result.Consume(ctx)
			if err != nil || summary == nil {
				return 0, err
			}
			return summary.Counters().RelationshipsCreated(), nil
		})
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeGraphPersistFailed, "citation edge upsert failed")
		}
		if n, ok := res.(int); ok {
			created += n
		}
	}
	r.log.Debug("citation edges ensured",
		logging.Int("edges", len(edges)),
		logging.Int("created", created))
	return nil
}

// SaveNetworkStats upserts the per-company stats node. One node per
// company; a rerun overwrites the previous snapshot and stamps the run
// that produced it.
func (r *networkRepo) SaveNetworkStats(ctx context.Context, runID string, stats citation.NetworkStats) error {
	if stats.CompanyName == "" {
		return errors.New(errors.ErrCodeInvalidParam, "company name is required")
	}
	query := `
		MERGE (c:CompanyNetwork {company: $company})
		SET c.run_id = $run_id,
			c.focal_patents = $focal_patents,
			c.edges = $edges,
			c.unique_citing_patents = $unique_citing_patents,
			c.unique_cited_patents = $unique_cited_patents,
			c.company_density = $company_density,
			c.mean_citation_lag = $mean_citation_lag,
			c.updated_at = datetime()
	`
	params := map[string]interface{}{
		"company":               stats.CompanyName,
		"run_id":                runID,
		"focal_patents":         stats.FocalPatents,
		"edges":                 stats.Edges,
		"unique_citing_patents": stats.UniqueCitingPatents,
		"unique_cited_patents":  stats.UniqueCitedPatents,
		"company_density":       stats.CompanyDensity,
		"mean_citation_lag":     stats.MeanCitationLag,
	}
	_, err := r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (interface{}, error) {
		_, err := tx.Run(ctx, query, params)
		return nil, err
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeGraphPersistFailed,
			fmt.Sprintf("network stats save failed for %s", stats.CompanyName))
	}
	return nil
}

// GetCompanyNetworkStats reads back the stats node of one company.
func (r *networkRepo) GetCompanyNetworkStats(ctx context.Context, company string) (*citation.NetworkStats, error) {
	query := `
		MATCH (c:CompanyNetwork {company: $company})
		RETURN c.focal_patents AS focal_patents,
			c.edges AS edges,
			c.unique_citing_patents AS unique_citing_patents,
			c.unique_cited_patents AS unique_cited_patents,
			c.company_density AS company_density,
			c.mean_citation_lag AS mean_citation_lag
	`
	res, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (interface{}, error) {
		result, err := tx.Run(ctx, query, map[string]interface{}{"company": company})
		if err != nil {
			return nil, err
		}
		return driver.ExtractSingleRecord(ctx, result, func(rec *neo4j.Record) (*citation.NetworkStats, error) {
			return &citation.NetworkStats{
				CompanyName:         company,
				FocalPatents:        intValue(rec, "focal_patents"),
				Edges:               intValue(rec, "edges"),
				UniqueCitingPatents: intValue(rec, "unique_citing_patents"),
				UniqueCitedPatents:  intValue(rec, "unique_cited_patents"),
				CompanyDensity:      floatValue(rec, "company_density"),
				MeanCitationLag:     floatValue(rec, "mean_citation_lag"),
			}, nil
		})
	})
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeNotFound) {
			return nil, errors.New(errors.ErrCodeNotFound,
				fmt.Sprintf("no network stats for company %s", company))
		}
		return nil, err
	}
	return res.(*citation.NetworkStats), nil
}

// DeleteCompanyNetwork removes a company's focal patent nodes with
// their edges, the stats node, and any counterpart node the deletion
// left without relationships.
func (r *networkRepo) DeleteCompanyNetwork(ctx context.Context, company string) error {
	res, err := r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (interface{}, error) {
		result, err := tx.Run(ctx,
			`MATCH (p:Patent {company: $company}) DETACH DELETE p`,
			map[string]interface{}{"company": company})
		if err != nil {
			return nil, err
		}
		deleted := 0
		if summary, err := result.Consume(ctx); err != nil {
			return nil, err
		} else if summary != nil {
			deleted = summary.Counters().NodesDeleted()
		}
		if _, err := tx.Run(ctx,
			`MATCH (c:CompanyNetwork {company: $company}) DELETE c`,
			map[string]interface{}{"company": company}); err != nil {
			return nil, err
		}
		// Counterpart nodes carry no company of their own; once their
		// last edge is gone they are unreachable and can go too.
		if _, err := tx.Run(ctx,
			`MATCH (q:Patent) WHERE q.company IS NULL AND NOT (q)--() DELETE q`,
			nil); err != nil {
			return nil, err
		}
		return deleted, nil
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeGraphPersistFailed,
			fmt.Sprintf("network delete failed for %s", company))
	}
	if n, ok := res.(int); ok {
		r.log.Debug("company network deleted",
			logging.String(logging.FieldCompany, company),
			logging.Int("nodes", n))
	}
	return nil
}

// Ping verifies graph store connectivity.
func (r *networkRepo) Ping(ctx context.Context) error {
	return r.driver.HealthCheck(ctx)
}

func intValue(rec *neo4j.Record, key string) int {
	if v, ok := rec.Get(key); ok {
		if n, ok := v.(int64); ok {
			return int(n)
		}
	}
	return 0
}

func floatValue(rec *neo4j.Record, key string) float64 {
	if v, ok := rec.Get(key); ok {
		switch n := v.(type) {
		case float64:
			return n
		case int64:
			return float64(n)
		}
	}
	return 0
}
