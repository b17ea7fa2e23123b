package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteDisrupt/internal/testutil"
)

func TestMockLogger_Records(t *testing.T) {
	t.Parallel()

	log := testutil.NewMockLogger()
	log.Info("panel written", logging.Int("rows", 14))
	log.Error("publish failed")

	entries := log.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "info", entries[0].Level)
	assert.Equal(t, "panel written", entries[0].Message)
	assert.True(t, log.Has("error", "publish failed"))
	assert.False(t, log.Has("info", "publish failed"))

	log.Clear()
	assert.Empty(t, log.Entries())
}

func TestMockLogger_WithSharesSink(t *testing.T) {
	t.Parallel()

	log := testutil.NewMockLogger()
	child := log.With(logging.String(logging.FieldRunID, "run-1"))
	child.Info("company done", logging.String(logging.FieldCompany, "acme"))

	require.Len(t, log.Entries(), 1)
	assert.True(t, log.HasField(logging.FieldRunID))
	assert.True(t, log.HasField(logging.FieldCompany))
	assert.False(t, log.HasField("absent"))
}
