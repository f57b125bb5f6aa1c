package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRejection(t *testing.T) {
	before := testutil.ToFloat64(validationRejections.WithLabelValues("exceeds_budget"))
	RecordRejection("exceeds_budget")
	RecordRejection("exceeds_budget")
	assert.Equal(t, before+2, testutil.ToFloat64(validationRejections.WithLabelValues("exceeds_budget")))
}

func TestSubscriptionGauge(t *testing.T) {
	before := testutil.ToFloat64(activeSubscriptions)
	SubscriptionOpened()
	SubscriptionOpened()
	SubscriptionClosed()
	assert.Equal(t, before+1, testutil.ToFloat64(activeSubscriptions))
	SubscriptionClosed()
}

func TestRecordPrune(t *testing.T) {
	at := time.Date(2026, 10, 17, 3, 0, 0, 0, time.UTC)
	before := testutil.ToFloat64(prunedActivities)

	RecordPrune(7, at)

	assert.Equal(t, before+7, testutil.ToFloat64(prunedActivities))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(lastPruneGauge))
}

func TestRecordCatalogReload(t *testing.T) {
	okBefore := testutil.ToFloat64(catalogReloads.WithLabelValues(ResultOK))
	errBefore := testutil.ToFloat64(catalogReloads.WithLabelValues(ResultError))

	RecordCatalogReload(nil)
	RecordCatalogReload(errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(catalogReloads.WithLabelValues(ResultOK)))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(catalogReloads.WithLabelValues(ResultError)))
}

func TestObserveHTTPUnmatchedRoute(t *testing.T) {
	ObserveHTTP("", "GET", 404, time.Millisecond)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(httpDuration), 1)
}
