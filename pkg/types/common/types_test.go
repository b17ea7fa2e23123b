package common

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestID_Validate_ValidUUID(t *testing.T) {
	id := ID("550e8400-e29b-41d4-a716-446655440000")
	err := id.Validate()
	assert.NoError(t, err)
}

func TestID_Validate_EmptyString(t *testing.T) {
	id := ID("")
	err := id.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")
}

func TestID_Validate_InvalidFormat(t *testing.T) {
	id := ID("not-a-uuid")
	err := id.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ID format")
}

func TestNewID_GeneratesValidUUID(t *testing.T) {
	id := NewID()
	err := id.Validate()
	assert.NoError(t, err)
}

func TestTimestamp_MarshalJSON(t *testing.T) {
	now := time.Date(2023, 10, 27, 10, 0, 0, 0, time.UTC)
	ts := Timestamp(now)
	data, err := json.Marshal(ts)
	assert.NoError(t, err)
	assert.Equal(t, "\"2023-10-27T10:00:00Z\"", string(data))
}

func TestTimestamp_UnmarshalJSON_Valid(t *testing.T) {
	data := []byte("\"2023-10-27T10:00:00Z\"")
	var ts Timestamp
	err := json.Unmarshal(data, &ts)
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2023, 10, 27, 10, 0, 0, 0, time.UTC), time.Time(ts))
}

func TestTimestamp_UnmarshalJSON_Invalid(t *testing.T) {
	data := []byte("\"invalid-date\"")
	var ts Timestamp
	err := json.Unmarshal(data, &ts)
	assert.Error(t, err)
}

func TestTimestamp_ToUnixMilli_RoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	ts := Timestamp(now)
	msec := ts.ToUnixMilli()
	ts2 := FromUnixMilli(msec)
	assert.Equal(t, ts, ts2)
}

func TestPagination_Validate_Valid(t *testing.T) {
	p := Pagination{Page: 1, PageSize: 20}
	err := p.Validate()
	assert.NoError(t, err)
}

func TestPagination_Validate_PageZero(t *testing.T) {
	p := Pagination{Page: 0, PageSize: 20}
	err := p.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "page must be >= 1")
}

func TestPagination_Validate_PageSizeExceedsMax(t *testing.T) {
	p := Pagination{Page: 1, PageSize: 501}
	err := p.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "page_size must be between 1 and 500")
}

func TestPagination_Validate_PageSizeZero(t *testing.T) {
	p := Pagination{Page: 1, PageSize: 0}
	err := p.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "page_size must be between 1 and 500")
}

func TestPagination_Offset(t *testing.T) {
	p := Pagination{Page: 3, PageSize: 20}
	assert.Equal(t, 40, p.Offset())
}

func TestYearRange_Validate_Valid(t *testing.T) {
	yr := YearRange{From: 1976, To: 2025}
	err := yr.Validate()
	assert.NoError(t, err)
}

func TestYearRange_Validate_FromAfterTo(t *testing.T) {
	yr := YearRange{From: 2025, To: 1976}
	err := yr.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must be before or equal to")
}

func TestYearRange_Validate_Equal(t *testing.T) {
	yr := YearRange{From: 1999, To: 1999}
	err := yr.Validate()
	assert.NoError(t, err)
}

func TestYearRange_Contains(t *testing.T) {
	yr := YearRange{From: 1976, To: 2025}
	assert.True(t, yr.Contains(1976))
	assert.True(t, yr.Contains(2000))
	assert.True(t, yr.Contains(2025))
	assert.False(t, yr.Contains(1975))
	assert.False(t, yr.Contains(2026))
}

func TestBatchResponse_Counts(t *testing.T) {
	resp := BatchResponse[string]{
		Succeeded:      []string{"ok1", "ok2"},
		Failed:         []BatchError{{Index: 2, Error: ErrorDetail{Code: "ERR"}}},
		TotalProcessed: 3,
	}
	assert.Equal(t, 3, len(resp.Succeeded)+len(resp.Failed))
	assert.Equal(t, 3, resp.TotalProcessed)
}

func TestSortOrder_Values(t *testing.T) {
	assert.Equal(t, SortOrder("asc"), SortAsc)
	assert.Equal(t, SortOrder("desc"), SortDesc)
}

func TestHealthStatus_Values(t *testing.T) {
	assert.Equal(t, HealthStatus("up"), HealthUp)
	assert.Equal(t, HealthStatus("down"), HealthDown)
	assert.Equal(t, HealthStatus("degraded"), HealthDegraded)
}

func TestNewBaseEvent_FieldsPopulated(t *testing.T) {
	ev := NewBaseEvent("abbott")
	assert.NotEmpty(t, ev.EventID())
	assert.Equal(t, "abbott", ev.AggregateID())
	assert.WithinDuration(t, time.Now().UTC(), ev.OccurredAt(), time.Minute)
}
