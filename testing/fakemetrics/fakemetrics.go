// Package fakemetrics provides an in-memory o11y.MetricsProvider for asserting
// on the metrics a recorder emits.
package fakemetrics

import (
	"fmt"
	"sync"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/circleci/httpvcr/o11y"
)

type MetricCall struct {
	Metric   string
	Name     string
	Value    float64
	ValueInt int64
	Tags     []string
	Rate     float64
}

// CMPMetrics compares call lists regardless of order.
var CMPMetrics = gocmp.Options{
	cmpopts.EquateApprox(0, 10),
	cmpopts.SortSlices(func(x, y MetricCall) bool {
		const format = "%s|%s|%s"
		return fmt.Sprintf(format, x.Metric, x.Name, x.Tags) <
			fmt.Sprintf(format, y.Metric, y.Name, y.Tags)
	}),
}

type Provider struct {
	mu    sync.RWMutex
	calls []MetricCall
}

var _ o11y.MetricsProvider = (*Provider)(nil)

func (f *Provider) Calls() []MetricCall {
	f.mu.RLock()
	defer f.mu.RUnlock()

	calls := make([]MetricCall, len(f.calls))
	copy(calls, f.calls)
	return calls
}

// Total sums the values of every count call for name.
func (f *Provider) Total(name string) int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var n int64
	for _, c := range f.calls {
		if c.Metric == "count" && c.Name == name {
			n += c.ValueInt
		}
	}
	return n
}

func (f *Provider) add(c MetricCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c.Tags = append([]string(nil), c.Tags...)
	f.calls = append(f.calls, c)
	return nil
}

func (f *Provider) TimeInMilliseconds(name string, value float64, tags []string, rate float64) error {
	return f.add(MetricCall{Metric: "timer", Name: name, Value: value, Tags: tags, Rate: rate})
}

func (f *Provider) Gauge(name string, value float64, tags []string, rate float64) error {
	return f.add(MetricCall{Metric: "gauge", Name: name, Value: value, Tags: tags, Rate: rate})
}

func (f *Provider) Count(name string, value int64, tags []string, rate float64) error {
	return f.add(MetricCall{Metric: "count", Name: name, ValueInt: value, Tags: tags, Rate: rate})
}

func (f *Provider) Histogram(name string, value float64, tags []string, rate float64) error {
	return f.add(MetricCall{Metric: "histogram", Name: name, Value: value, Tags: tags, Rate: rate})
}

func (f *Provider) Close() error {
	return nil
}
