// Package telemetry adapts the teacher's observability.go (composite,
// logging, Prometheus, and SigNoz observers) to report process-group
// summaries instead of work-group summaries — same shape, new source of
// truth, per DESIGN.md.
package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/ivancb/aurumecs"
)

// Composite fans a completed summary out to every wrapped observer.
type Composite struct {
	Observers []ecs.ProcessGroupObserver
}

func (c Composite) ProcessGroupCompleted(summary ecs.ProcessGroupSummary) {
	for _, o := range c.Observers {
		o.ProcessGroupCompleted(summary)
	}
}

// LogFormat selects the structured-logging observer's rendering.
type LogFormat int

const (
	LogFormatJSON LogFormat = iota
	LogFormatKeyValue
)

type loggingObserver struct {
	logger ecs.Logger
	format LogFormat
}

// NewLoggingObserver logs one line per completed process group through
// logger, in JSON or key-value form.
func NewLoggingObserver(logger ecs.Logger, format LogFormat) ecs.ProcessGroupObserver {
	if logger == nil {
		return nil
	}
	return loggingObserver{logger: logger, format: format}
}

func (o loggingObserver) ProcessGroupCompleted(summary ecs.ProcessGroupSummary) {
	if o.format == LogFormatKeyValue {
		o.logKeyValue(summary)
		return
	}
	o.logJSON(summary)
}

func (o loggingObserver) logJSON(summary ecs.ProcessGroupSummary) {
	payload := map[string]any{
		"group_id":           summary.GroupID,
		"tick":               summary.Tick,
		"duration_ms":        float64(summary.Duration) / float64(time.Millisecond),
		"processes_total":    summary.ProcessesTotal,
		"processes_executed": summary.ProcessesExecuted,
		"processes_skipped":  summary.ProcessesSkipped,
	}
	if summary.Error != nil {
		payload["error"] = summary.Error.Error()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		o.logger.With("group_id", summary.GroupID).Error("process group summary marshal error", "err", err)
		return
	}
	o.logger.Info(string(data))
}

func (o loggingObserver) logKeyValue(summary ecs.ProcessGroupSummary) {
	args := []any{
		"tick", summary.Tick,
		"duration", summary.Duration,
		"processes_total", summary.ProcessesTotal,
		"processes_executed", summary.ProcessesExecuted,
		"processes_skipped", summary.ProcessesSkipped,
	}
	if summary.Error != nil {
		args = append(args, "error", summary.Error.Error())
	}
	o.logger.With("group_id", summary.GroupID).Info("process group summary", args...)
}

// PrometheusOptions configures PrometheusCollector's output.
type PrometheusOptions struct {
	DurationBuckets []time.Duration
	Writer          io.Writer
}

type prometheusKey struct {
	GroupID int
}

type prometheusSample struct {
	durationSum   float64
	durationCount float64
	buckets       []float64
	executed      float64
	skipped       float64
	errors        float64
}

// PrometheusCollector accumulates process-group summaries into a hand-rolled
// Prometheus text-exposition document, exactly the teacher's
// PrometheusWorkGroupCollector format — no third-party Prometheus client
// import appears anywhere in the retrieval pack to ground a swap onto one.
type PrometheusCollector struct {
	options *PrometheusOptions
	mu      sync.Mutex
	samples map[prometheusKey]*prometheusSample
}

// NewPrometheusCollector constructs a collector; a nil opts uses defaults.
func NewPrometheusCollector(opts *PrometheusOptions) *PrometheusCollector {
	if opts == nil {
		opts = &PrometheusOptions{}
	}
	return &PrometheusCollector{options: opts, samples: make(map[prometheusKey]*prometheusSample)}
}

func (c *PrometheusCollector) ProcessGroupCompleted(summary ecs.ProcessGroupSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := prometheusKey{GroupID: summary.GroupID}
	sample, ok := c.samples[key]
	if !ok {
		sample = &prometheusSample{}
		if buckets := c.options.DurationBuckets; len(buckets) > 0 {
			sample.buckets = make([]float64, len(buckets))
		}
		c.samples[key] = sample
	}
	durSeconds := summary.Duration.Seconds()
	sample.durationSum += durSeconds
	sample.durationCount++
	for i := range sample.buckets {
		if durSeconds <= c.options.DurationBuckets[i].Seconds() {
			sample.buckets[i]++
		}
	}
	sample.executed += float64(summary.ProcessesExecuted)
	sample.skipped += float64(summary.ProcessesSkipped)
	if summary.Error != nil {
		sample.errors++
	}
	if writer := c.options.Writer; writer != nil {
		_ = c.writeMetricsLocked(writer)
	}
}

// WriteMetrics renders every accumulated sample in Prometheus text-exposition format.
func (c *PrometheusCollector) WriteMetrics(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeMetricsLocked(w)
}

func (c *PrometheusCollector) writeMetricsLocked(w io.Writer) error {
	if w == nil {
		return nil
	}
	var buf bytes.Buffer
	buf.WriteString("# HELP aurumecs_process_group_duration_seconds Process group execution duration.\n")
	buf.WriteString("# TYPE aurumecs_process_group_duration_seconds summary\n")

	keys := make([]prometheusKey, 0, len(c.samples))
	for key := range c.samples {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].GroupID < keys[j].GroupID })

	for _, key := range keys {
		sample := c.samples[key]
		labels := fmt.Sprintf("group_id=\"%d\"", key.GroupID)
		buf.WriteString(fmt.Sprintf("aurumecs_process_group_duration_seconds_sum{%s} %f\n", labels, sample.durationSum))
		buf.WriteString(fmt.Sprintf("aurumecs_process_group_duration_seconds_count{%s} %f\n", labels, sample.durationCount))
		for i, bucket := range sample.buckets {
			le := c.options.DurationBuckets[i].Seconds()
			buf.WriteString(fmt.Sprintf("aurumecs_process_group_duration_seconds_bucket{%s,le=\"%.6f\"} %f\n", labels, le, bucket))
		}
	}

	buf.WriteString("# HELP aurumecs_process_group_processes_executed_total Processes executed per group.\n")
	buf.WriteString("# TYPE aurumecs_process_group_processes_executed_total counter\n")
	for _, key := range keys {
		labels := fmt.Sprintf("group_id=\"%d\"", key.GroupID)
		buf.WriteString(fmt.Sprintf("aurumecs_process_group_processes_executed_total{%s} %f\n", labels, c.samples[key].executed))
	}

	buf.WriteString("# HELP aurumecs_process_group_errors_total Process group error count.\n")
	buf.WriteString("# TYPE aurumecs_process_group_errors_total counter\n")
	for _, key := range keys {
		labels := fmt.Sprintf("group_id=\"%d\"", key.GroupID)
		buf.WriteString(fmt.Sprintf("aurumecs_process_group_errors_total{%s} %f\n", labels, c.samples[key].errors))
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// SigNozOptions configures SigNozExporter's span emission.
type SigNozOptions struct {
	ServiceName string
	Writer      io.Writer
}

// SigNozExporter writes one JSON span document per completed process group,
// the teacher's hand-rolled SigNoz-shaped exporter kept as-is (no OTel/SigNoz
// SDK appears in the retrieval pack to ground a swap onto one).
type SigNozExporter struct {
	opts *SigNozOptions
	mu   sync.Mutex
}

// NewSigNozExporter constructs an exporter; a nil opts uses defaults.
func NewSigNozExporter(opts *SigNozOptions) *SigNozExporter {
	if opts == nil {
		opts = &SigNozOptions{}
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "aurumecs"
	}
	return &SigNozExporter{opts: opts}
}

func (e *SigNozExporter) ProcessGroupCompleted(summary ecs.ProcessGroupSummary) {
	if e.opts.Writer == nil {
		return
	}
	span := map[string]any{
		"service_name": e.opts.ServiceName,
		"name":         fmt.Sprintf("process_group:%d", summary.GroupID),
		"duration_ms":  float64(summary.Duration) / float64(time.Millisecond),
		"attributes": map[string]any{
			"group_id":           summary.GroupID,
			"tick":               summary.Tick,
			"processes_total":    summary.ProcessesTotal,
			"processes_executed": summary.ProcessesExecuted,
			"processes_skipped":  summary.ProcessesSkipped,
		},
	}
	if summary.Error != nil {
		span["error"] = summary.Error.Error()
	}
	payload, err := json.Marshal(span)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, _ = e.opts.Writer.Write(append(payload, '\n'))
}
