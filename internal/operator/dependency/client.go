package dependency

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ppisljar/speech-dataset-creator/internal/audit"
	"github.com/ppisljar/speech-dataset-creator/internal/silence"
)

// DependencyClient is a facade the orchestrator uses to invoke every external
// ML backend (ffmpeg, the ASR CLI, a diarization backend, the phonetic
// aligner) without worrying about execution details (local vs remote).
//
// It provides high-level business methods that encapsulate:
//   - Command construction
//   - Security validation
//   - Executor selection and invocation
//   - Error handling and reporting
type DependencyClient struct {
	executor    DependencyExecutor
	config      ExecutorConfig
	pathManager *PathManager
	audit       *audit.Logger
}

// SetAuditLogger attaches an audit logger; every subsequent command
// execution or rejection is recorded through it. Nil is valid and disables
// auditing (the zero value of DependencyClient has no audit logger).
func (c *DependencyClient) SetAuditLogger(l *audit.Logger) {
	c.audit = l
}

// NewClient creates a new DependencyClient based on the provided configuration.
// It selects the appropriate executor (Local, Remote, or Fallback) based on config.Mode.
func NewClient(config ExecutorConfig) (*DependencyClient, error) {
	var executor DependencyExecutor

	switch config.Mode {
	case ModeLocal:
		executor = NewLocalExecutor(config)
	case ModeRemote:
		executor = NewRemoteExecutor(config)
	case ModeFallback:
		executor = NewFallbackExecutor(config)
	default:
		return nil, fmt.Errorf("invalid execution mode: %s (must be 'local', 'remote', or 'fallback')", config.Mode)
	}

	pathManager := NewPathManager(config.SharedVolumePath)

	client := &DependencyClient{
		executor:    executor,
		config:      config,
		pathManager: pathManager,
	}
	if config.AuditLogPath != "" {
		client.audit = audit.New(config.AuditLogPath)
	}
	return client, nil
}

func (c *DependencyClient) run(ctx context.Context, stage string, req CommandRequest) (CommandResponse, error) {
	if err := ValidateCommandRequest(req, c.config); err != nil {
		if c.audit != nil {
			c.audit.LogRejection("", "", stage, req.Command, req.Args, err.Error())
		}
		return CommandResponse{}, fmt.Errorf("%s: command validation failed: %w", stage, err)
	}
	resp, err := c.executor.ExecuteCommand(ctx, req)
	if c.audit != nil {
		c.audit.LogExecution(audit.Entry{
			Operator:   stage,
			Command:    req.Command,
			Args:       req.Args,
			ExitCode:   resp.ExitCode,
			DurationMs: resp.Duration.Milliseconds(),
			Err:        err,
		})
	}
	if err != nil {
		return CommandResponse{}, fmt.Errorf("%s: execution failed: %w", stage, err)
	}
	if !resp.Success || resp.ExitCode != 0 {
		return resp, fmt.Errorf("%s: failed (exit code %d): %s", stage, resp.ExitCode, resp.Stderr)
	}
	return resp, nil
}

// Denoise runs the stage-1 cleanup pass over a raw file, producing the
// cleaned, resampled audio every later stage reads from.
func (c *DependencyClient) Denoise(ctx context.Context, inputPath, outputPath string) error {
	req := CommandRequest{
		Command: "ffmpeg",
		Args: []string{
			"-i", inputPath,
			"-af", "afftdn",
			"-ar", "16000",
			"-ac", "1",
			outputPath,
		},
		Timeout: c.config.DefaultTimeout,
	}
	_, err := c.run(ctx, "denoise", req)
	return err
}

// CutAudio extracts [startMS,endMS) from inputPath into outputPath with a
// stream copy (no re-encode), implementing the coarse split stage.
func (c *DependencyClient) CutAudio(ctx context.Context, inputPath, outputPath string, startMS, endMS int) error {
	req := CommandRequest{
		Command: "ffmpeg",
		Args: []string{
			"-i", inputPath,
			"-ss", fmt.Sprintf("%.3f", float64(startMS)/1000.0),
			"-to", fmt.Sprintf("%.3f", float64(endMS)/1000.0),
			"-c", "copy",
			outputPath,
		},
		Timeout: c.config.DefaultTimeout,
	}
	_, err := c.run(ctx, "split", req)
	return err
}

// ProbeDurationMS returns an audio file's duration in milliseconds via
// ffprobe.
func (c *DependencyClient) ProbeDurationMS(ctx context.Context, audioPath string) (int, error) {
	req := CommandRequest{
		Command: "ffprobe",
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			audioPath,
		},
		Timeout: c.config.DefaultTimeout,
	}
	resp, err := c.run(ctx, "probe", req)
	if err != nil {
		return 0, err
	}
	var seconds float64
	if _, err := fmt.Sscanf(resp.Stdout, "%f", &seconds); err != nil {
		return 0, fmt.Errorf("probe: failed to parse ffprobe output %q: %w", resp.Stdout, err)
	}
	return int(seconds * 1000), nil
}

// DetectSilences runs the silence-detection backend over one split, writing
// a JSON array of [start_ms,end_ms] pairs to outputPath.
func (c *DependencyClient) DetectSilences(ctx context.Context, audioPath, outputPath string, thresholdDB float64, minSilenceMS int) error {
	req := CommandRequest{
		Command: "ffmpeg",
		Args: []string{
			"-i", audioPath,
			"-af", fmt.Sprintf("silencedetect=noise=%.1fdB:d=%.3f", thresholdDB, float64(minSilenceMS)/1000.0),
			"-f", "null",
			"-",
		},
		Timeout: c.config.DefaultTimeout,
	}
	resp, err := c.run(ctx, "silences", req)
	if err != nil {
		return err
	}
	// ffmpeg emits silencedetect markers to stderr; parse them into
	// [start_ms,end_ms] pairs before writing the artifact.
	sm := silence.ParseFFmpegOutput(resp.Stderr)
	pairs := make([][2]int, len(sm))
	for i, iv := range sm {
		pairs[i] = [2]int{iv.StartMS, iv.EndMS}
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return fmt.Errorf("silences: marshal: %w", err)
	}
	return os.WriteFile(outputPath, data, 0644)
}

// Transcribe runs the ASR backend over one split, emitting a word-level
// token stream as JSON.
type TranscribeOptions struct {
	Language string
	Prompt   string
	Timeout  time.Duration
}

func (c *DependencyClient) Transcribe(ctx context.Context, audioPath, outputPath string, opts TranscribeOptions) error {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Minute
	}
	args := []string{"/app/scripts/transcribe.py", "--input", audioPath, "--output", outputPath}
	if opts.Language != "" {
		args = append(args, "--language", opts.Language)
	}
	if opts.Prompt != "" {
		args = append(args, "--prompt", opts.Prompt)
	}
	req := CommandRequest{
		Command: "python",
		Args:    args,
		Timeout: timeout,
	}
	slog.Info("transcribe starting", "audio_path", audioPath, "language", opts.Language)
	_, err := c.run(ctx, "transcribe", req)
	if err != nil {
		slog.Error("transcribe failed", "audio_path", audioPath, "error", err)
		return err
	}
	slog.Info("transcribe completed", "audio_path", audioPath)
	return nil
}

// DiarizationOptions contains optional parameters for RunDiarization.
type DiarizationOptions struct {
	// Backend selects the diarization driver: pyannote, wespeaker, or 3dspeaker.
	Backend string

	Device        string
	EnableOffline bool
	HFToken       string
	MaxSpeakers   int
}

// RunDiarization performs speaker diarization with the configured backend,
// writing a CSV of {speaker,start,end} rows (seconds) to outputPath.
func (c *DependencyClient) RunDiarization(ctx context.Context, audioPath, outputPath string, opts DiarizationOptions) error {
	if opts.Backend == "" {
		opts.Backend = "pyannote"
	}
	if opts.Device == "" {
		opts.Device = "cpu"
	}

	slog.Info("diarization starting",
		"audio_path", audioPath,
		"output_path", outputPath,
		"backend", opts.Backend,
		"device", opts.Device,
	)

	scriptPath := fmt.Sprintf("/app/scripts/%s_diarize.py", opts.Backend)
	args := []string{scriptPath, "--input", audioPath, "--output", outputPath, "--device", opts.Device}
	if opts.EnableOffline {
		args = append(args, "--offline")
	}
	if opts.MaxSpeakers > 0 {
		args = append(args, "--max-speakers", fmt.Sprintf("%d", opts.MaxSpeakers))
	}

	env := map[string]string{}
	if opts.HFToken != "" {
		env["HF_TOKEN"] = opts.HFToken
	}
	if opts.EnableOffline {
		env["HF_HUB_OFFLINE"] = "1"
	}

	req := CommandRequest{
		Command: "python",
		Args:    args,
		Env:     env,
		Timeout: 10 * time.Minute,
	}
	_, err := c.run(ctx, "diarize", req)
	if err != nil {
		slog.Error("diarization failed", "audio_path", audioPath, "backend", opts.Backend, "error", err)
		return err
	}
	slog.Info("diarization completed", "audio_path", audioPath, "backend", opts.Backend)
	return nil
}

// ExtractEmbedding extracts a single speaker embedding from a short audio clip
// belonging to one diarization label, for SpeakerDB assignment (fusion step 2).
func (c *DependencyClient) ExtractEmbedding(ctx context.Context, clipPath string, backend string) ([]float64, error) {
	if backend == "" {
		backend = "pyannote"
	}
	scriptPath := fmt.Sprintf("/app/scripts/%s_embed.py", backend)
	req := CommandRequest{
		Command: "python",
		Args:    []string{scriptPath, "--input", clipPath},
		Timeout: 2 * time.Minute,
	}
	resp, err := c.run(ctx, "embed", req)
	if err != nil {
		return nil, err
	}
	var vec []float64
	if err := json.Unmarshal([]byte(resp.Stdout), &vec); err != nil {
		return nil, fmt.Errorf("embed: failed to parse embedding output: %w", err)
	}
	return vec, nil
}

// Align runs the phonetic aligner over a segment clip and its reference text,
// writing per-phoneme timing to outputPath.
func (c *DependencyClient) Align(ctx context.Context, audioPath, text, outputPath, language string) error {
	args := []string{"/app/scripts/align.py", "--audio", audioPath, "--text", text, "--output", outputPath}
	if language != "" {
		args = append(args, "--language", language)
	}
	req := CommandRequest{
		Command: "python",
		Args:    args,
		Timeout: 2 * time.Minute,
	}
	_, err := c.run(ctx, "align", req)
	return err
}

// HealthCheck verifies that the underlying executor is ready to handle requests.
func (c *DependencyClient) HealthCheck(ctx context.Context) error {
	return c.executor.HealthCheck(ctx)
}

// PathManager returns the path manager for file operations.
func (c *DependencyClient) PathManager() *PathManager {
	return c.pathManager
}

// Config returns the executor configuration (read-only access).
func (c *DependencyClient) Config() ExecutorConfig {
	return c.config
}

// ExecuteCommand executes a command request directly through the underlying executor.
// Exposed for operators whose needs outgrow the high-level methods above.
func (c *DependencyClient) ExecuteCommand(ctx context.Context, req CommandRequest) (CommandResponse, error) {
	return c.executor.ExecuteCommand(ctx, req)
}
