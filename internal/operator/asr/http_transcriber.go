package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// HTTPTranscriber implements Transcriber against a remote ASR HTTP service
// reached via multipart/form-data upload, e.g. a containerized faster-whisper
// or whisper.cpp server run next to the orchestrator.
type HTTPTranscriber struct {
	apiURL     string
	httpClient *http.Client
}

// NewHTTPTranscriber creates a new HTTPTranscriber for the given service base URL.
// Audio chunks can run several minutes; the client timeout is set generously so
// transcription time roughly tracking audio duration doesn't trip it.
func NewHTTPTranscriber(apiURL string) *HTTPTranscriber {
	return &HTTPTranscriber{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

// Transcribe sends the audio file to the remote ASR service and parses its
// word-level token response.
func (h *HTTPTranscriber) Transcribe(ctx context.Context, audioPath string, options *TranscribeOptions) (*TranscriptionResult, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy file data: %w", err)
	}

	model := "base"
	if options != nil && options.Model != "" {
		model = options.Model
	}
	if err := writer.WriteField("model", model); err != nil {
		return nil, fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.WriteField("response_format", "json"); err != nil {
		return nil, fmt.Errorf("failed to write response_format field: %w", err)
	}
	if options != nil && options.Language != "" {
		if err := writer.WriteField("language", options.Language); err != nil {
			return nil, fmt.Errorf("failed to write language field: %w", err)
		}
	}
	temperature := 0.0
	if options != nil && options.Temperature > 0 {
		temperature = options.Temperature
	}
	if err := writer.WriteField("temperature", fmt.Sprintf("%.1f", temperature)); err != nil {
		return nil, fmt.Errorf("failed to write temperature field: %w", err)
	}
	if options != nil && options.Prompt != "" {
		if err := writer.WriteField("prompt", options.Prompt); err != nil {
			return nil, fmt.Errorf("failed to write prompt field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/asr/transcribe", h.apiURL)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ASR service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result TranscriptionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	return &result, nil
}

// HealthCheck verifies the remote ASR service is reachable.
func (h *HTTPTranscriber) HealthCheck(ctx context.Context) (bool, error) {
	endpoint := fmt.Sprintf("%s/api/asr/model", h.apiURL)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return true, nil
	}
	return false, fmt.Errorf("health check failed: status %d", resp.StatusCode)
}

// Name returns the identifier of this transcriber implementation.
func (h *HTTPTranscriber) Name() string {
	return "http-asr"
}
