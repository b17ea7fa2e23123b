package repositories

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	driver "github.com/turtacn/CiteDisrupt/internal/infrastructure/database/neo4j"
)

// mockGraphDriver drives repository work functions against a shared
// mockTransaction, recording every statement the repository runs.
type mockGraphDriver struct {
	tx        *mockTransaction
	execErr   error
	healthErr error
	reads     int
	writes    int
}

var _ driver.DriverInterface = (*mockGraphDriver)(nil)

func newMockGraphDriver() *mockGraphDriver {
	return &mockGraphDriver{tx: &mockTransaction{}}
}

func (m *mockGraphDriver) ExecuteRead(ctx context.Context, work driver.TransactionWork) (interface{}, error) {
	m.reads++
	if m.execErr != nil {
		return nil, m.execErr
	}
	return work(m.tx)
}

func (m *mockGraphDriver) ExecuteWrite(ctx context.Context, work driver.TransactionWork) (interface{}, error) {
	m.writes++
	if m.execErr != nil {
		return nil, m.execErr
	}
	return work(m.tx)
}

func (m *mockGraphDriver) HealthCheck(ctx context.Context) error {
	return m.healthErr
}

func (m *mockGraphDriver) Close() error { return nil }

type runCall struct {
	cypher string
	params map[string]any
}

// mockTransaction hands out queued results in call order, falling back
// to an empty result once the queue is drained.
type mockTransaction struct {
	calls   []runCall
	results []*mockResult
	errAt   int // 1-based call number that fails, 0 never
	err     error
}

func (t *mockTransaction) Run(ctx context.Context, cypher string, params map[string]any) (driver.Result, error) {
	t.calls = append(t.calls, runCall{cypher: cypher, params: params})
	if t.errAt != 0 && len(t.calls) == t.errAt {
		return nil, t.err
	}
	if len(t.results) >= len(t.calls) {
		return t.results[len(t.calls)-1], nil
	}
	return &mockResult{}, nil
}

// batchArg returns the UNWIND batch of the i-th recorded call.
func (t *mockTransaction) batchArg(i int) []map[string]interface{} {
	batch, _ := t.calls[i].params["batch"].([]map[string]interface{})
	return batch
}

// mockResult walks a fixed record list the way the vendor cursor does.
type mockResult struct {
	records []*neo4j.Record
	pos     int
	summary *mockSummary
	err     error
}

func (r *mockResult) Next(context.Context) bool {
	if r.err != nil {
		return false
	}
	if r.pos < len(r.records) {
		r.pos++
		return true
	}
	return false
}

func (r *mockResult) Record() *neo4j.Record { return r.records[r.pos-1] }

func (r *mockResult) Err() error { return r.err }

func (r *mockResult) Consume(context.Context) (neo4j.ResultSummary, error) {
	if r.summary != nil {
		return r.summary, nil
	}
	return &mockSummary{}, nil
}

func newRecord(keys []string, values []any) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}

// mockSummary implements neo4j.ResultSummary with settable counters.
type mockSummary struct {
	counters mockCounters
}

func (s *mockSummary) Counters() neo4j.Counters { return &s.counters }

func (s *mockSummary) Query() neo4j.Query {
	var q neo4j.Query
	return q
}

func (s *mockSummary) Database() neo4j.DatabaseInfo        { return nil }
func (s *mockSummary) Notifications() []neo4j.Notification { return nil }
func (s *mockSummary) Plan() neo4j.Plan                    { return nil }
func (s *mockSummary) Profile() neo4j.ProfiledPlan         { return nil }
func (s *mockSummary) ResultAvailableAfter() time.Duration { return 0 }
func (s *mockSummary) ResultConsumedAfter() time.Duration  { return 0 }
func (s *mockSummary) Server() neo4j.ServerInfo            { return nil }
func (s *mockSummary) StatementType() neo4j.StatementType  { return neo4j.StatementTypeUnknown }

type mockCounters struct {
	nodesCreated         int
	nodesDeleted         int
	relationshipsCreated int
	relationshipsDeleted int
}

func (c *mockCounters) NodesCreated() int         { return c.nodesCreated }
func (c *mockCounters) NodesDeleted() int         { return c.nodesDeleted }
func (c *mockCounters) RelationshipsCreated() int { return c.relationshipsCreated }
func (c *mockCounters) RelationshipsDeleted() int { return c.relationshipsDeleted }
func (c *mockCounters) PropertiesSet() int        { return 0 }
func (c *mockCounters) LabelsAdded() int          { return 0 }
func (c *mockCounters) LabelsRemoved() int        { return 0 }
func (c *mockCounters) IndexesAdded() int         { return 0 }
func (c *mockCounters) IndexesRemoved() int       { return 0 }
func (c *mockCounters) ConstraintsAdded() int     { return 0 }
func (c *mockCounters) ConstraintsRemoved() int   { return 0 }
func (c *mockCounters) SystemUpdates() int        { return 0 }
func (c *mockCounters) ContainsUpdates() bool {
	return c.nodesCreated > 0 || c.nodesDeleted > 0 ||
		c.relationshipsCreated > 0 || c.relationshipsDeleted > 0
}
func (c *mockCounters) ContainsSystemUpdates() bool { return false }
