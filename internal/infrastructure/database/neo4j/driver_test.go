package neo4j

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

type mockDriver struct {
	mock.Mock
}

func (m *mockDriver) VerifyConnectivity(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockDriver) NewSession(ctx context.Context, config neo4j.SessionConfig) internalSession {
	return m.Called(ctx, config).Get(0).(internalSession)
}

func (m *mockDriver) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type fakeSession struct {
	result *fakeResult
	runErr error
	closed bool
}

func (s *fakeSession) ExecuteRead(ctx context.Context, work TransactionWork) (any, error) {
	return work(&fakeTransaction{result: s.result, err: s.runErr})
}

func (s *fakeSession) ExecuteWrite(ctx context.Context, work TransactionWork) (any, error) {
	return work(&fakeTransaction{result: s.result, err: s.runErr})
}

func (s *fakeSession) Close(ctx context.Context) error {
	s.closed = true
	return nil
}

type fakeTransaction struct {
	result *fakeResult
	err    error
}

func (t *fakeTransaction) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	if t.err != nil {
		return nil, t.err
	}
	if t.result != nil {
		return t.result, nil
	}
	return &fakeResult{}, nil
}

// fakeResult walks a fixed record list the way the vendor cursor does:
// Next advances, Record returns the current row.
type fakeResult struct {
	records []*neo4j.Record
	pos     int
	err     error
}

func (f *fakeResult) Next(context.Context) bool {
	if f.err != nil {
		return false
	}
	if f.pos < len(f.records) {
		f.pos++
		return true
	}
	return false
}

func (f *fakeResult) Record() *neo4j.Record { return f.records[f.pos-1] }

func (f *fakeResult) Err() error { return f.err }

func (f *fakeResult) Consume(context.Context) (neo4j.ResultSummary, error) { return nil, nil }

func newTestDriver(d internalDriver) *Driver {
	return &Driver{driver: d, logger: logging.NewNopLogger()}
}

func TestDriver_HealthCheck(t *testing.T) {
	t.Parallel()

	md := new(mockDriver)
	session := &fakeSession{result: &fakeResult{
		records: []*neo4j.Record{{Keys: []string{"health"}, Values: []any{int64(1)}}},
	}}
	md.On("VerifyConnectivity", mock.Anything).Return(nil)
	md.On("NewSession", mock.Anything, mock.Anything).Return(session)

	d := newTestDriver(md)
	require.NoError(t, d.HealthCheck(context.Background()))
	assert.True(t, session.closed)
}

func TestDriver_HealthCheck_ConnectivityFailure(t *testing.T) {
	t.Parallel()

	md := new(mockDriver)
	md.On("VerifyConnectivity", mock.Anything).Return(assert.AnError)

	d := newTestDriver(md)
	err := d.HealthCheck(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
	md.AssertNotCalled(t, "NewSession", mock.Anything, mock.Anything)
}

func TestDriver_ExecuteWrite(t *testing.T) {
	t.Parallel()

	t.Run("PassesResultThrough", func(t *testing.T) {
		md := new(mockDriver)
		session := &fakeSession{}
		md.On("NewSession", mock.Anything, mock.Anything).Return(session)

		d := newTestDriver(md)
		got, err := d.ExecuteWrite(context.Background(), func(tx Transaction) (interface{}, error) {
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.True(t, session.closed)
	})

	t.Run("WrapsWorkError", func(t *testing.T) {
		md := new(mockDriver)
		session := &fakeSession{}
		md.On("NewSession", mock.Anything, mock.Anything).Return(session)

		d := newTestDriver(md)
		_, err := d.ExecuteWrite(context.Background(), func(tx Transaction) (interface{}, error) {
			return nil, assert.AnError
		})
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
		assert.True(t, session.closed)
	})
}

func TestDriver_Session_DatabaseFallback(t *testing.T) {
	t.Parallel()

	md := new(mockDriver)
	session := &fakeSession{}
	md.On("NewSession", mock.Anything, mock.MatchedBy(func(cfg neo4j.SessionConfig) bool {
		return cfg.DatabaseName == "neo4j" && cfg.AccessMode == neo4j.AccessModeRead
	})).Return(session)

	d := newTestDriver(md)
	d.Session(context.Background(), neo4j.AccessModeRead)
	md.AssertExpectations(t)
}

func TestDriver_Session_ExplicitDatabase(t *testing.T) {
	t.Parallel()

	md := new(mockDriver)
	session := &fakeSession{}
	md.On("NewSession", mock.Anything, mock.MatchedBy(func(cfg neo4j.SessionConfig) bool {
		return cfg.DatabaseName == "citations"
	})).Return(session)

	d := newTestDriver(md)
	d.cfg.Database = "citations"
	d.Session(context.Background(), neo4j.AccessModeWrite)
	md.AssertExpectations(t)
}

func TestDriver_Close_Once(t *testing.T) {
	t.Parallel()

	md := new(mockDriver)
	md.On("Close", mock.Anything).Return(nil)

	d := newTestDriver(md)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	md.AssertNumberOfCalls(t, "Close", 1)
}

func TestExtractSingleRecord(t *testing.T) {
	t.Parallel()

	mapper := func(rec *neo4j.Record) (string, error) {
		return rec.Values[0].(string), nil
	}

	t.Run("FirstRecord", func(t *testing.T) {
		res := &fakeResult{records: []*neo4j.Record{
			{Keys: []string{"name"}, Values: []any{"acme"}},
			{Keys: []string{"name"}, Values: []any{"beta"}},
		}}
		got, err := ExtractSingleRecord(context.Background(), res, mapper)
		require.NoError(t, err)
		assert.Equal(t, "acme", got)
	})

	t.Run("EmptyResultIsNotFound", func(t *testing.T) {
		got, err := ExtractSingleRecord(context.Background(), &fakeResult{}, mapper)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
		assert.Empty(t, got)
	})

	t.Run("StreamErrorWins", func(t *testing.T) {
		res := &fakeResult{err: assert.AnError}
		_, err := ExtractSingleRecord(context.Background(), res, mapper)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestCollectRecords(t *testing.T) {
	t.Parallel()

	res := &fakeResult{records: []*neo4j.Record{
		{Keys: []string{"n"}, Values: []any{int64(1)}},
		{Keys: []string{"n"}, Values: []any{int64(2)}},
		{Keys: []string{"n"}, Values: []any{int64(3)}},
	}}
	got, err := CollectRecords(context.Background(), res, func(rec *neo4j.Record) (int64, error) {
		return rec.Values[0].(int64), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, got)
}
