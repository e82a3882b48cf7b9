package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestObserveAndTotals(t *testing.T) {
	m := New()
	m.Observe("contribute", "ok")
	m.Observe("contribute", "ok")
	m.Observe("refund", "not_yet_refundable")
	m.Refunded(decimal.NewFromInt(7))
	m.SetTotals(decimal.NewFromInt(42), 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("contribute", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("refund", "not_yet_refundable")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.refunds))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.raised))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.contributors))
}
