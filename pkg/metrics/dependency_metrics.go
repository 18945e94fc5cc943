// Package metrics provides Prometheus metrics for monitoring the speech
// dataset pipeline's dependency executions, fusion, speaker assignment and
// validation.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Dependency execution metrics
var (
	// commandExecutionTotal records the total number of dependency command executions.
	// Labels:
	//   - command: Command name (e.g., "ffmpeg", "pyannote")
	//   - mode: Execution mode (e.g., "local", "remote", "fallback")
	//   - status: Execution status (e.g., "success", "failed", "timeout")
	commandExecutionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dependency_command_executions_total",
			Help: "Total number of dependency command executions",
		},
		[]string{"command", "mode", "status"},
	)

	// commandExecutionDuration records the duration of dependency command executions.
	// Labels:
	//   - command: Command name (e.g., "ffmpeg", "pyannote")
	//   - mode: Execution mode (e.g., "local", "remote", "fallback")
	// Buckets: 0.1s, 0.5s, 1s, 5s, 10s, 30s, 60s, 300s (5 minutes)
	commandExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dependency_command_duration_seconds",
			Help:    "Duration of dependency command executions in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"command", "mode"},
	)

	// degradationEventsTotal records the number of execution mode degradation events.
	// Labels:
	//   - from_mode: Source execution mode (e.g., "remote")
	//   - to_mode: Target execution mode (e.g., "local")
	degradationEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dependency_degradation_events_total",
			Help: "Total number of execution mode degradation events (e.g., remote -> local)",
		},
		[]string{"from_mode", "to_mode"},
	)

	// fusionSegmentsTotal counts segments produced by the fusion engine.
	// Labels:
	//   - status: Segment status (e.g., "good", "bad")
	fusionSegmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fusion_segments_total",
			Help: "Total number of segments produced by the fusion engine",
		},
		[]string{"status"},
	)

	// speakerAssignmentsTotal counts speaker database assignment decisions.
	// Labels:
	//   - decision: Assignment decision (e.g., "new", "matched")
	speakerAssignmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speaker_assignments_total",
			Help: "Total number of speaker database assignment decisions",
		},
		[]string{"decision"},
	)

	// validationVerdictsTotal counts validation pass verdicts.
	// Labels:
	//   - verdict: Validation verdict (e.g., "good", "bad", "validation_error")
	validationVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_verdicts_total",
			Help: "Total number of validation verdicts produced",
		},
		[]string{"verdict"},
	)
)

func init() {
	// Register all dependency-related metrics with Prometheus
	prometheus.MustRegister(commandExecutionTotal)
	prometheus.MustRegister(commandExecutionDuration)
	prometheus.MustRegister(degradationEventsTotal)
	prometheus.MustRegister(fusionSegmentsTotal)
	prometheus.MustRegister(speakerAssignmentsTotal)
	prometheus.MustRegister(validationVerdictsTotal)
}

// RecordCommandExecution records a command execution event.
// Parameters:
//   - command: Command name (e.g., "ffmpeg", "pyannote")
//   - mode: Execution mode (e.g., "local", "remote", "fallback")
//   - status: Execution status (e.g., "success", "failed", "timeout")
func RecordCommandExecution(command, mode, status string) {
	commandExecutionTotal.WithLabelValues(command, mode, status).Inc()
}

// RecordCommandDuration records the duration of a command execution.
// Parameters:
//   - command: Command name (e.g., "ffmpeg", "pyannote")
//   - mode: Execution mode (e.g., "local", "remote", "fallback")
//   - durationSeconds: Execution duration in seconds
func RecordCommandDuration(command, mode string, durationSeconds float64) {
	commandExecutionDuration.WithLabelValues(command, mode).Observe(durationSeconds)
}

// RecordDegradationEvent records a degradation event.
// Parameters:
//   - fromMode: Source execution mode (e.g., "remote")
//   - toMode: Target execution mode (e.g., "local")
func RecordDegradationEvent(fromMode, toMode string) {
	degradationEventsTotal.WithLabelValues(fromMode, toMode).Inc()
}

// RecordFusionSegment records one segment produced by the fusion engine.
// Parameters:
//   - status: Segment status (e.g., "good", "bad")
func RecordFusionSegment(status string) {
	fusionSegmentsTotal.WithLabelValues(status).Inc()
}

// RecordSpeakerAssignment records one speaker database assignment decision.
// Parameters:
//   - decision: Assignment decision (e.g., "new", "matched")
func RecordSpeakerAssignment(decision string) {
	speakerAssignmentsTotal.WithLabelValues(decision).Inc()
}

// RecordValidationVerdict records one validation pass verdict.
// Parameters:
//   - verdict: Validation verdict (e.g., "good", "bad", "validation_error")
func RecordValidationVerdict(verdict string) {
	validationVerdictsTotal.WithLabelValues(verdict).Inc()
}
