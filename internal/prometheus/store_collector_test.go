package prometheus

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencollective/opencollective-api-sub009/internal/store/memstore"
)

func TestStoreCollectorRecordsOperations(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	f := memstore.Seed(s)
	c := NewStoreCollector(s)

	before := testutil.ToFloat64(OperationsTotal.WithLabelValues("get_collectives", "true"))
	cols, err := c.GetCollectivesByIDs(ctx, []int64{f.Babel.ID, f.Acme.ID})
	require.NoError(t, err)
	assert.Len(t, cols, 2)
	assert.Equal(t, before+1, testutil.ToFloat64(OperationsTotal.WithLabelValues("get_collectives", "true")))

	// not found is a normal answer, not a failure
	beforeMiss := testutil.ToFloat64(OperationsTotal.WithLabelValues("get_user_by_email", "true"))
	_, err = c.GetUserByEmail(ctx, "nobody@example.com")
	require.Error(t, err)
	assert.Equal(t, beforeMiss+1, testutil.ToFloat64(OperationsTotal.WithLabelValues("get_user_by_email", "true")))

	require.NoError(t, c.Ping(ctx))
}
