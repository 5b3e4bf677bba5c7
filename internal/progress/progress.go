// Package progress publishes processing-pipeline progress events to zero
// or more sinks (spec §4.12, component C12). The default sink logs
// structured events; the interface admits webhook and push-channel sinks
// without change. Sink failures never affect job outcome.
package progress

import (
	"time"

	"github.com/amd-aig-aima/bimserver/internal/logging"
)

// Stage names used at the stable percentages named in spec §4.11.
const (
	StageOpening      = "Opening"
	StageProcessing   = "Processing"
	StageGeometry     = "Geometry"
	StageTessellation = "Tessellation"
	StageFinalizing   = "Finalizing"
	StageComplete     = "Complete"
)

// Stable percentages paired with the stages above.
const (
	PercentOpening      = 0
	PercentProcessing   = 20
	PercentGeometry     = 30
	PercentTessellation = 70
	PercentFinalizing   = 95
	PercentComplete     = 100
)

// Event is one progress update for a single conversion job.
type Event struct {
	JobID           string    `json:"jobId"`
	ModelVersionID  string    `json:"modelVersionId"`
	Stage           string    `json:"stage"`
	PercentComplete int       `json:"percentComplete"`
	Message         string    `json:"message"`
	IsComplete      bool      `json:"isComplete"`
	IsSuccess       bool      `json:"isSuccess"`
	ErrorMessage    string    `json:"errorMessage,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Sink receives published events. Publish must not block the caller for
// long and must never return an error that aborts the job.
type Sink interface {
	Publish(Event)
}

// Notifier fans an event out to every registered sink, each isolated so
// one sink's failure cannot affect another or the job.
type Notifier struct {
	sinks []Sink
}

// New creates a Notifier with the given sinks. With no sinks, a
// LogSink is installed so progress is never silently dropped.
func New(sinks ...Sink) *Notifier {
	if len(sinks) == 0 {
		sinks = []Sink{LogSink{}}
	}
	return &Notifier{sinks: sinks}
}

// Publish fans out ev to every sink, recovering from any sink panic so
// a single misbehaving sink cannot take down the caller.
func (n *Notifier) Publish(ev Event) {
	for _, s := range n.sinks {
		n.publishToOne(s, ev)
	}
}

func (n *Notifier) publishToOne(s Sink, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("progress: sink panicked", "recovered", r, "jobId", ev.JobID)
		}
	}()
	s.Publish(ev)
}

// LogSink publishes progress events through the structured logger.
type LogSink struct{}

func (LogSink) Publish(ev Event) {
	if ev.IsComplete && !ev.IsSuccess {
		logging.Error(nil, "processing job failed",
			"jobId", ev.JobID, "modelVersionId", ev.ModelVersionID,
			"stage", ev.Stage, "errorMessage", ev.ErrorMessage)
		return
	}
	logging.Info("processing progress",
		"jobId", ev.JobID, "modelVersionId", ev.ModelVersionID,
		"stage", ev.Stage, "percentComplete", ev.PercentComplete,
		"message", ev.Message, "isComplete", ev.IsComplete)
}
