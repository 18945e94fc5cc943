// Package model declares the value types the rest of the pipeline operates
// on: projects, raw files, splits, segments, and the supporting annotation
// types produced by each stage. Everything here is a plain value — no
// behavior, no I/O — so the pipeline packages can pass it around, diff it in
// tests, and serialize it without worrying about hidden state.
package model

import "time"

// Settings holds per-project configuration, loaded from settings.json with
// field-level defaults applied on load (never silently defaulted on save).
type Settings struct {
	SilenceThresholdDB         float64 `json:"silence_threshold_db"`
	MinSilenceLengthMS         int     `json:"min_silence_length_ms"`
	SilencePadMS               int     `json:"silence_pad_ms"`
	MaxSpeakers                int     `json:"max_speakers"`
	Language                   string  `json:"language"`
	BuildSubsegments           bool    `json:"build_subsegments"`
	JoinSubsegments            bool    `json:"join_subsegments"`
	DiarizationBackend         string  `json:"diarization_backend"`
	SpeakerSimilarityThreshold float64 `json:"speaker_similarity_threshold"`
	ValidationThreshold        int     `json:"validation_threshold"`
	MaxWorkers                 int     `json:"max_workers"`
	ExecutorMode               string  `json:"executor_mode"`
	OpserviceURL               string  `json:"opservice_url"`
	SplitTargetMS              int     `json:"split_target_ms"`
}

// DefaultSettings returns the settings table defaults from the external
// interfaces specification. BackendThreshold still needs resolving against
// DiarizationBackend when SpeakerSimilarityThreshold is left at its zero
// value — callers should call ResolveSpeakerThreshold after load.
func DefaultSettings() Settings {
	return Settings{
		SilenceThresholdDB:  -40,
		MinSilenceLengthMS:  500,
		SilencePadMS:        50,
		MaxSpeakers:         0,
		Language:            "sl",
		BuildSubsegments:    true,
		JoinSubsegments:     false,
		DiarizationBackend:  "pyannote",
		ValidationThreshold: 85,
		MaxWorkers:          4,
		ExecutorMode:        "local",
		OpserviceURL:        "",
		SplitTargetMS:       600000,
	}
}

// BackendThresholds are the per-diarization-backend speaker similarity
// defaults used when a project hasn't overridden SpeakerSimilarityThreshold.
var BackendThresholds = map[string]float64{
	"pyannote":  0.60,
	"wespeaker": 0.70,
	"3dspeaker": 0.50,
}

// ResolveSpeakerThreshold returns the effective speaker similarity threshold
// for the settings: the explicit override if set, else the backend default.
func (s Settings) ResolveSpeakerThreshold() float64 {
	if s.SpeakerSimilarityThreshold > 0 {
		return s.SpeakerSimilarityThreshold
	}
	if t, ok := BackendThresholds[s.DiarizationBackend]; ok {
		return t
	}
	return BackendThresholds["pyannote"]
}

// ApplyDefaults fills zero-valued fields with DefaultSettings' values,
// called on load so settings.json never needs to spell out every field.
func (s *Settings) ApplyDefaults() {
	d := DefaultSettings()
	if s.SilenceThresholdDB == 0 {
		s.SilenceThresholdDB = d.SilenceThresholdDB
	}
	if s.MinSilenceLengthMS == 0 {
		s.MinSilenceLengthMS = d.MinSilenceLengthMS
	}
	if s.SilencePadMS == 0 {
		s.SilencePadMS = d.SilencePadMS
	}
	if s.Language == "" {
		s.Language = d.Language
	}
	if s.DiarizationBackend == "" {
		s.DiarizationBackend = d.DiarizationBackend
	}
	if s.ValidationThreshold == 0 {
		s.ValidationThreshold = d.ValidationThreshold
	}
	if s.MaxWorkers == 0 {
		s.MaxWorkers = d.MaxWorkers
	}
	if s.ExecutorMode == "" {
		s.ExecutorMode = d.ExecutorMode
	}
	if s.SplitTargetMS == 0 {
		s.SplitTargetMS = d.SplitTargetMS
	}
}

// Project is the top-level aggregate: a name plus its settings. The artifact
// store, speaker DB, and bad-segments log for a project are all addressed
// relative to this name, not embedded here, so Project stays a plain value.
type Project struct {
	Name     string   `json:"name"`
	Settings Settings `json:"settings"`
}

// RawFile is an ingested source recording. Immutable after ingest; the
// cleaned/resampled audio derived from it lives alongside it in the artifact
// store, addressed by file name, not carried as a field here.
type RawFile struct {
	Project  string `json:"project"`
	FileName string `json:"file_name"`
}

// SplitRef identifies one contiguous shard of cleaned audio that every later
// stage's artifacts are keyed from.
type SplitRef struct {
	Project    string `json:"project"`
	File       string `json:"file"`
	SplitIndex int    `json:"split_index"`
}

// SilenceInterval is one non-overlapping [start_ms,end_ms) silence span.
type SilenceInterval struct {
	StartMS int `json:"start_ms"`
	EndMS   int `json:"end_ms"`
}

// SilenceMap is an ordered, non-overlapping set of silence intervals:
// start<end, sorted, and end_i <= start_{i+1}.
type SilenceMap []SilenceInterval

// DiarizationTurn is one speaker turn from a diarization backend, local to
// the split it was computed on — the label is opaque until the fusion engine
// maps it to a SpeakerDB global ID.
type DiarizationTurn struct {
	SpeakerLabel string  `json:"speaker_label"`
	StartS       float64 `json:"start_s"`
	EndS         float64 `json:"end_s"`
}

// DiarizationTrack is the ordered set of turns produced by one diarization
// backend run over one split.
type DiarizationTrack []DiarizationTurn

// SegStatus is the closed set of segment verdicts.
type SegStatus string

const (
	SegStatusGood SegStatus = "good"
	SegStatusBad  SegStatus = "bad"
)

// SegRange is the timing/content envelope shared by a segment's main range
// and each of its sub-segments.
type SegRange struct {
	StartMS       int     `json:"start_ms"`
	EndMS         int     `json:"end_ms"`
	PadStartMS    int     `json:"pad_start_ms"`
	PadEndMS      int     `json:"pad_end_ms"`
	SpeakerID     int     `json:"speaker_id"`
	Text          string  `json:"text"`
	MinConfidence float64 `json:"min_confidence"`
}

// Segment is the fusion engine's output unit: a main range plus any
// sub-segments it was split into, and a good/bad verdict.
type Segment struct {
	SegIndex int        `json:"seg_idx"`
	Main     SegRange   `json:"main"`
	Subs     []SegRange `json:"subs"`
	Status   SegStatus  `json:"status"`
}

// ConfidenceClass is a pure presentation derivative of a segment's
// MinConfidence, used only for human-facing clip naming — never persisted.
type ConfidenceClass string

const (
	ConfidenceMostUncertain ConfidenceClass = "most_uncertain"
	ConfidenceUncertain     ConfidenceClass = "uncertain"
	ConfidenceModerate      ConfidenceClass = "moderate"
	ConfidenceConfident     ConfidenceClass = "confident"
)

// ClassifyConfidence buckets a segment's min_confidence into the four
// bands used when naming exported clips.
func ClassifyConfidence(minConfidence float64) ConfidenceClass {
	switch {
	case minConfidence < 0.5:
		return ConfidenceMostUncertain
	case minConfidence < 0.8:
		return ConfidenceUncertain
	case minConfidence < 0.9:
		return ConfidenceModerate
	default:
		return ConfidenceConfident
	}
}

// ValidationVerdict is the closed set of per-segment validation outcomes.
type ValidationVerdict string

const (
	VerdictGood            ValidationVerdict = "good"
	VerdictBad             ValidationVerdict = "bad"
	VerdictValidationError ValidationVerdict = "validation_error"
)

// ValidationReport is the outcome of re-transcribing one segment's clip and
// comparing it against its stored text.
type ValidationReport struct {
	SegIndex     int               `json:"seg_idx"`
	ExpectedText string            `json:"expected_text"`
	ObservedText string            `json:"observed_text"`
	Similarity   float64           `json:"similarity"`
	Verdict      ValidationVerdict `json:"verdict"`
}

// JobState is the closed set of job-registry lifecycle states.
type JobState string

const (
	JobPending    JobState = "pending"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// JobStatus is one entry in the process-wide job registry (C7), keyed by
// (project,file) or a sentinel key like "{project}_export".
type JobStatus struct {
	Key       string    `json:"key"`
	State     JobState  `json:"state"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	StartedAt time.Time `json:"started_at"`
	Stage     string    `json:"stage,omitempty"`
}

// BadSegmentEntry is one record in a project's bad_segments.json log,
// appended by the validation pass for segments whose verdict is not good.
type BadSegmentEntry struct {
	File       string            `json:"file"`
	SplitIndex int               `json:"split_index"`
	SegIndex   int               `json:"seg_idx"`
	Reason     string            `json:"reason"`
	Verdict    ValidationVerdict `json:"verdict,omitempty"`
	RecordedAt time.Time         `json:"recorded_at"`
}
