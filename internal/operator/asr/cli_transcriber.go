package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CLITranscriber implements Transcriber by invoking a local speech-to-text
// executable (e.g. a whisper.cpp build) mounted into the container. It is
// the highest-priority local fallback for environments where a containerized
// ASR HTTP service is unavailable.
type CLITranscriber struct {
	programPath string
	modelPath   string
}

// NewCLITranscriber validates the executable exists and is runnable before returning.
func NewCLITranscriber(programPath, modelPath string) (*CLITranscriber, error) {
	info, err := os.Stat(programPath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("ASR program not found: %s", programPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat ASR program: %w", err)
	}
	if info.Mode()&0111 == 0 {
		return nil, fmt.Errorf("ASR program is not executable: %s (mode: %s)", programPath, info.Mode())
	}

	return &CLITranscriber{programPath: programPath, modelPath: modelPath}, nil
}

// Transcribe invokes the CLI and decodes its JSON-lines token output.
func (l *CLITranscriber) Transcribe(ctx context.Context, audioPath string, options *TranscribeOptions) (*TranscriptionResult, error) {
	model := "base"
	if options != nil && options.Model != "" {
		model = strings.TrimSuffix(options.Model, ".bin")
		if !strings.HasPrefix(model, "ggml-") {
			model = "ggml-" + model
		}
	}

	args := []string{"transcribe", model, audioPath, "--format", "json"}

	temperature := 0.0
	if options != nil && options.Temperature > 0 {
		temperature = options.Temperature
	}
	args = append(args, "--temperature", fmt.Sprintf("%.1f", temperature))

	if options != nil && options.Language != "" {
		args = append(args, "--language", options.Language)
	}
	if options != nil && options.Prompt != "" {
		args = append(args, "--prompt", options.Prompt)
	}

	cmd := exec.CommandContext(ctx, l.programPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("CLI execution failed: %w, output: %s", err, string(output))
	}

	var result TranscriptionResult
	result.Tokens = []Token{}

	decoder := json.NewDecoder(bytes.NewReader(output))
	for {
		var tok Token
		if err := decoder.Decode(&tok); err != nil {
			if len(result.Tokens) > 0 && err.Error() == "EOF" {
				break
			}
			if err.Error() == "EOF" {
				return nil, fmt.Errorf("no tokens found in output")
			}
			return nil, fmt.Errorf("failed to parse JSON token: %w", err)
		}
		result.Tokens = append(result.Tokens, tok)
	}

	return &result, nil
}

// HealthCheck runs the program's version subcommand as a lightweight liveness probe.
func (l *CLITranscriber) HealthCheck(ctx context.Context) (bool, error) {
	cmd := exec.CommandContext(ctx, l.programPath, "version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return false, fmt.Errorf("version check failed: %w, output: %s", err, string(output))
	}
	if len(output) > 0 {
		return true, nil
	}
	return false, fmt.Errorf("unexpected empty version output")
}

// Name returns the identifier of this transcriber implementation.
func (l *CLITranscriber) Name() string {
	return "cli-asr"
}
