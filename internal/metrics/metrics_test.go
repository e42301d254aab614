package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveFetch(t *testing.T) {
	before := testutil.ToFloat64(Fetches.WithLabelValues(ResultStale))
	ObserveFetch(ResultStale, time.Now())
	assert.Equal(t, before+1, testutil.ToFloat64(Fetches.WithLabelValues(ResultStale)))
}

func TestServeDisabled(t *testing.T) {
	assert.NoError(t, Serve(context.Background(), ""))
}
