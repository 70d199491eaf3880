// Package metrics holds the feed's metric sinks: CloudWatch Embedded Metric
// Format (EMF) records for the Lambda deployment and Prometheus collectors for
// the long-running server. EMF records are single JSON lines on stdout that
// CloudWatch Logs turns into metrics without any API calls.
//
// See: https://docs.aws.amazon.com/AmazonCloudWatch/latest/monitoring/CloudWatch_Embedded_Metric_Format_Specification.html
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"
)

// Namespace is the CloudWatch namespace for every feed metric.
const Namespace = "BrandFeed"

// CloudWatch metric units.
const (
	UnitMilliseconds = "Milliseconds"
	UnitSeconds      = "Seconds"
	UnitCount        = "Count"
	UnitNone         = "None"
)

type metricDef struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

type emfDirective struct {
	Timestamp         int64      `json:"Timestamp"`
	CloudWatchMetrics []cwMetric `json:"CloudWatchMetrics"`
}

type cwMetric struct {
	Namespace  string      `json:"Namespace"`
	Dimensions [][]string  `json:"Dimensions"`
	Metrics    []metricDef `json:"Metrics"`
}

// Recorder accumulates one EMF record. It is not safe for concurrent use;
// create one per request.
type Recorder struct {
	namespace  string
	out        io.Writer
	now        func() time.Time
	dimensions map[string]string
	metrics    map[string]metricDef
	values     map[string]interface{}
	properties map[string]interface{}
}

var (
	functionName string
	initOnce     sync.Once
)

func initFunctionName() {
	functionName = os.Getenv("AWS_LAMBDA_FUNCTION_NAME")
}

// New creates a Recorder for namespace writing to stdout. The FunctionName
// dimension is added when running inside Lambda.
func New(namespace string) *Recorder {
	initOnce.Do(initFunctionName)
	r := &Recorder{
		namespace:  namespace,
		out:        os.Stdout,
		now:        time.Now,
		dimensions: make(map[string]string),
		metrics:    make(map[string]metricDef),
		values:     make(map[string]interface{}),
		properties: make(map[string]interface{}),
	}
	if functionName != "" {
		r.dimensions["FunctionName"] = functionName
	}
	return r
}

// Output redirects the record, mainly for tests.
func (r *Recorder) Output(w io.Writer) *Recorder {
	r.out = w
	return r
}

// Dimension adds an indexed key-value pair.
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric records a named value with a CloudWatch unit.
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.metrics[name] = metricDef{Name: name, Unit: unit}
	r.values[name] = value
	return r
}

// Count records a count of one.
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Duration records d in milliseconds.
func (r *Recorder) Duration(name string, d time.Duration) *Recorder {
	return r.Metric(name, float64(d.Microseconds())/1000, UnitMilliseconds)
}

// Property adds a searchable field that does not become a metric.
func (r *Recorder) Property(key string, value interface{}) *Recorder {
	r.properties[key] = value
	return r
}

// Flush writes the record as one JSON line. A record without metrics writes
// nothing. The Recorder must not be reused afterwards.
func (r *Recorder) Flush() {
	if len(r.metrics) == 0 {
		return
	}

	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	defs := make([]metricDef, 0, len(names))
	for _, name := range names {
		defs = append(defs, r.metrics[name])
	}

	dimKeys := make([]string, 0, len(r.dimensions))
	for k := range r.dimensions {
		dimKeys = append(dimKeys, k)
	}
	sort.Strings(dimKeys)

	doc := make(map[string]interface{}, len(r.dimensions)+len(r.values)+len(r.properties)+1)
	for k, v := range r.properties {
		doc[k] = v
	}
	for k, v := range r.dimensions {
		doc[k] = v
	}
	for k, v := range r.values {
		doc[k] = v
	}
	doc["_aws"] = emfDirective{
		Timestamp: r.now().UnixMilli(),
		CloudWatchMetrics: []cwMetric{{
			Namespace:  r.namespace,
			Dimensions: [][]string{dimKeys},
			Metrics:    defs,
		}},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "emf: failed to marshal metrics: %v\n", err)
		return
	}
	fmt.Fprintln(r.out, string(data))
}
