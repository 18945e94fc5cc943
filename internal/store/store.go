// Package store implements the artifact store (C2): the on-disk project
// tree every pipeline stage reads its inputs from and writes its outputs
// to. Writes are atomic (write-temp-then-rename); readers tolerate missing
// sibling artifacts — it is the orchestrator, not the store, that enforces
// dependency order between stages.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ppisljar/speech-dataset-creator/internal/model"
	"github.com/ppisljar/speech-dataset-creator/internal/operator/asr"
	"github.com/ppisljar/speech-dataset-creator/internal/operator/dependency"
)

// Store is a thin, stateless wrapper over a dependency.PathManager that
// knows how to marshal/unmarshal each artifact type the pipeline produces.
type Store struct {
	paths *dependency.PathManager
}

// New creates a Store rooted at baseDir (the shared "projects" directory).
func New(baseDir string) *Store {
	return &Store{paths: dependency.NewPathManager(baseDir)}
}

// Paths exposes the underlying path manager for components that need raw
// paths (the dependency client, the audit logger).
func (s *Store) Paths() *dependency.PathManager {
	return s.paths
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("store: mkdir %s: %w", dir, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("store: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("store: rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", path, err)
	}
	return writeAtomic(path, data)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("store: unmarshal %s: %w", path, err)
	}
	return nil
}

// Exists reports whether the artifact at path exists and is not older than
// any of the given input paths — the "already_done" / skippability check
// every operator (C1) consults before running.
func Exists(outputPath string, inputPaths ...string) (bool, error) {
	outInfo, err := os.Stat(outputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	for _, in := range inputPaths {
		inInfo, err := os.Stat(in)
		if err != nil {
			continue // missing input can't make the output stale
		}
		if inInfo.ModTime().After(outInfo.ModTime()) {
			return false, nil
		}
	}
	return true, nil
}

// --- Settings -----------------------------------------------------------

// LoadSettings reads settings.json for a project, applying field-level
// defaults for anything unset; returns model.DefaultSettings() if the file
// doesn't exist yet.
func (s *Store) LoadSettings(project string) (model.Settings, error) {
	path := s.paths.SettingsPath(project)
	var cfg model.Settings
	if err := readJSON(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			cfg = model.DefaultSettings()
			return cfg, nil
		}
		return model.Settings{}, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// SaveSettings persists settings.json exactly as given, without injecting
// defaults into the file.
func (s *Store) SaveSettings(project string, cfg model.Settings) error {
	return writeJSON(s.paths.SettingsPath(project), cfg)
}

// --- Silences ------------------------------------------------------------

// SaveSilences writes a split's silence map as the documented
// [[start_ms,end_ms],...] array.
func (s *Store) SaveSilences(project, file string, splitIndex int, silences model.SilenceMap) error {
	pairs := make([][2]int, len(silences))
	for i, iv := range silences {
		pairs[i] = [2]int{iv.StartMS, iv.EndMS}
	}
	return writeJSON(s.paths.SilencesPath(project, file, splitIndex), pairs)
}

// LoadSilences reads a split's silence map back into model.SilenceMap.
func (s *Store) LoadSilences(project, file string, splitIndex int) (model.SilenceMap, error) {
	var pairs [][2]int
	if err := readJSON(s.paths.SilencesPath(project, file, splitIndex), &pairs); err != nil {
		return nil, err
	}
	out := make(model.SilenceMap, len(pairs))
	for i, p := range pairs {
		out[i] = model.SilenceInterval{StartMS: p[0], EndMS: p[1]}
	}
	return out, nil
}

// --- Transcription --------------------------------------------------------

type transcriptionFile struct {
	Tokens []asr.Token `json:"tokens"`
}

// SaveTranscription writes a split's token stream under the documented
// root key "tokens".
func (s *Store) SaveTranscription(project, file string, splitIndex int, tokens []asr.Token) error {
	return writeJSON(s.paths.TranscriptionPath(project, file, splitIndex), transcriptionFile{Tokens: tokens})
}

// LoadTranscription reads a split's token stream.
func (s *Store) LoadTranscription(project, file string, splitIndex int) ([]asr.Token, error) {
	var tf transcriptionFile
	if err := readJSON(s.paths.TranscriptionPath(project, file, splitIndex), &tf); err != nil {
		return nil, err
	}
	return tf.Tokens, nil
}

// --- Diarization -----------------------------------------------------------

// SaveDiarization writes a split's diarization track as CSV with header
// "speaker,start,end" (seconds, float), per the documented wire format.
func (s *Store) SaveDiarization(project, file string, splitIndex int, backend string, track model.DiarizationTrack) error {
	path := s.paths.DiarizationPath(project, file, splitIndex, backend)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("store: mkdir %s: %w", dir, err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("store: create %s: %w", tmp, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"speaker", "start", "end"}); err != nil {
		f.Close()
		return err
	}
	for _, turn := range track {
		row := []string{
			turn.SpeakerLabel,
			strconv.FormatFloat(turn.StartS, 'f', 3, 64),
			strconv.FormatFloat(turn.EndS, 'f', 3, 64),
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadDiarization reads a split's diarization CSV back into a
// model.DiarizationTrack.
func (s *Store) LoadDiarization(project, file string, splitIndex int, backend string) (model.DiarizationTrack, error) {
	path := s.paths.DiarizationPath(project, file, splitIndex, backend)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("store: read diarization csv %s: %w", path, err)
	}
	if len(rows) == 0 {
		return model.DiarizationTrack{}, nil
	}
	track := make(model.DiarizationTrack, 0, len(rows)-1)
	for _, row := range rows[1:] { // skip header
		if len(row) < 3 {
			continue
		}
		start, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			continue
		}
		track = append(track, model.DiarizationTurn{SpeakerLabel: row[0], StartS: start, EndS: end})
	}
	return track, nil
}

// --- Segments --------------------------------------------------------------

type segmentsFile struct {
	Segments []model.Segment `json:"segments"`
}

// SaveSegmentsRaw writes the immutable post-fusion snapshot.
func (s *Store) SaveSegmentsRaw(project, file string, splitIndex int, segments []model.Segment) error {
	return writeJSON(s.paths.SegmentsRawPath(project, file, splitIndex), segmentsFile{Segments: segments})
}

// SaveSegments writes the editable live segments artifact.
func (s *Store) SaveSegments(project, file string, splitIndex int, segments []model.Segment) error {
	return writeJSON(s.paths.SegmentsPath(project, file, splitIndex), segmentsFile{Segments: segments})
}

// LoadSegments reads the editable live segments artifact.
func (s *Store) LoadSegments(project, file string, splitIndex int) ([]model.Segment, error) {
	var sf segmentsFile
	if err := readJSON(s.paths.SegmentsPath(project, file, splitIndex), &sf); err != nil {
		return nil, err
	}
	return sf.Segments, nil
}

// LoadSegmentsRaw reads the immutable post-fusion snapshot.
func (s *Store) LoadSegmentsRaw(project, file string, splitIndex int) ([]model.Segment, error) {
	var sf segmentsFile
	if err := readJSON(s.paths.SegmentsRawPath(project, file, splitIndex), &sf); err != nil {
		return nil, err
	}
	return sf.Segments, nil
}

// --- Bad segments log ------------------------------------------------------

// AppendBadSegment appends one entry to the project's bad_segments.json
// log (read-modify-write under atomic rename; the store has no internal
// locking, callers serialize via the orchestrator/validation engine).
func (s *Store) AppendBadSegment(project string, entry model.BadSegmentEntry) error {
	path := s.paths.BadSegmentsPath(project)
	var entries []model.BadSegmentEntry
	if err := readJSON(path, &entries); err != nil && !os.IsNotExist(err) {
		return err
	}
	entries = append(entries, entry)
	return writeJSON(path, entries)
}

// LoadBadSegments reads the project's full bad-segments log.
func (s *Store) LoadBadSegments(project string) ([]model.BadSegmentEntry, error) {
	var entries []model.BadSegmentEntry
	if err := readJSON(s.paths.BadSegmentsPath(project), &entries); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return entries, nil
}
