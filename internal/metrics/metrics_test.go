package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveIndexBuild(t *testing.T) {
	before := testutil.ToFloat64(IndexRebuildsTotal.WithLabelValues("content"))
	ObserveIndexBuild("content", time.Now().Add(-10*time.Millisecond))
	assert.Equal(t, before+1, testutil.ToFloat64(IndexRebuildsTotal.WithLabelValues("content")))
}

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("search"))
	ObserveRequest("search", time.Now())
	ObserveRequest("search", time.Now())
	assert.Equal(t, before+2, testutil.ToFloat64(RequestsTotal.WithLabelValues("search")))
}
