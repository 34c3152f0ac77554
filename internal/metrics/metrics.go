// Package metrics records operational metrics for pipeline runs behind a
// small backend interface. The default backend discards everything, so
// recording is always safe when no backend is configured.
package metrics

import "time"

// Metric names.
const (
	StageTotal            = "zonehop_stage_total"
	StageDurationSeconds  = "zonehop_stage_duration_seconds"
	ColumnsValidatedTotal = "zonehop_columns_validated_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration-style observation.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

// Nop returns a backend that discards all metrics.
func Nop() Backend { return nopBackend{} }

// Recorder records pipeline metrics for one dataset.
type Recorder struct {
	backend Backend
	dataset string
}

// NewRecorder wraps b. A nil backend records nothing.
func NewRecorder(b Backend, dataset string) *Recorder {
	if b == nil {
		b = Nop()
	}
	return &Recorder{backend: b, dataset: dataset}
}

// RecordStage counts one stage execution and its duration.
func (r *Recorder) RecordStage(stage, status string, d time.Duration) {
	lbls := Labels{
		"dataset": r.dataset,
		"stage":   stage,
		"status":  status,
	}
	r.backend.IncCounter(StageTotal, 1, lbls)
	r.backend.ObserveHistogram(StageDurationSeconds, d.Seconds(), lbls)
}

// RecordColumns counts columns checked by a validation stage, split by
// outcome.
func (r *Recorder) RecordColumns(stage string, passed, failed int) {
	if passed > 0 {
		r.backend.IncCounter(ColumnsValidatedTotal, float64(passed), Labels{"dataset": r.dataset, "stage": stage, "outcome": "passed"})
	}
	if failed > 0 {
		r.backend.IncCounter(ColumnsValidatedTotal, float64(failed), Labels{"dataset": r.dataset, "stage": stage, "outcome": "failed"})
	}
}

// Flush delegates to the backend.
func (r *Recorder) Flush() error {
	return r.backend.Flush()
}
