// Package degradation provides automatic service degradation and recovery for ASR transcription.
// It monitors health status and switches between primary and fallback transcriber implementations.
package degradation

import (
	"log"
	"sync"

	"github.com/ppisljar/speech-dataset-creator/internal/operator/asr"
	"github.com/ppisljar/speech-dataset-creator/internal/operator/health"
)

// DegradationController manages the lifecycle of transcriber implementations based on health status.
// It automatically switches between a primary transcriber (e.g. HTTPTranscriber, CLITranscriber) and
// a fallback transcriber (typically MockTranscriber) to ensure the pipeline keeps making progress.
//
// Thread-safety: All public methods are thread-safe via sync.RWMutex.
type DegradationController struct {
	primaryTranscriber  asr.Transcriber       // Preferred transcriber
	fallbackTranscriber asr.Transcriber       // Fallback transcriber (typically MockTranscriber)
	healthChecker       *health.HealthChecker // Monitors primary transcriber health
	currentTranscriber  asr.Transcriber       // Currently active transcriber (protected by mu)
	mu                  sync.RWMutex          // Protects currentTranscriber and isDegraded
	isDegraded          bool                  // True if currently using fallback (protected by mu)
}

// NewDegradationController creates a new DegradationController with the specified transcribers.
// Initial state: uses the primary transcriber (optimistic assumption of health).
func NewDegradationController(
	primary asr.Transcriber,
	fallback asr.Transcriber,
	hc *health.HealthChecker,
) *DegradationController {
	return &DegradationController{
		primaryTranscriber:  primary,
		fallbackTranscriber: fallback,
		healthChecker:       hc,
		currentTranscriber:  primary,
		isDegraded:          false,
	}
}

// GetTranscriber returns the current active transcriber, automatically switching between
// primary and fallback based on health status.
//
// Behavior:
//   - Queries health checker for latest status
//   - If unhealthy and not degraded: switches to fallback, logs WARN
//   - If healthy and degraded: switches back to primary, logs INFO
//   - If status unchanged: returns current transcriber without logging
func (dc *DegradationController) GetTranscriber() asr.Transcriber {
	status := dc.healthChecker.GetStatus()

	dc.mu.Lock()
	defer dc.mu.Unlock()

	if !status.IsHealthy && !dc.isDegraded {
		log.Printf("[WARN] DegradationController: degrading to fallback transcriber (%s) due to unhealthy primary (%s)",
			dc.fallbackTranscriber.Name(), dc.primaryTranscriber.Name())
		dc.currentTranscriber = dc.fallbackTranscriber
		dc.isDegraded = true
	}

	if status.IsHealthy && dc.isDegraded {
		log.Printf("[INFO] DegradationController: recovering to primary transcriber (%s)",
			dc.primaryTranscriber.Name())
		dc.currentTranscriber = dc.primaryTranscriber
		dc.isDegraded = false
	}

	return dc.currentTranscriber
}

// IsDegraded returns whether the system is currently operating in degraded mode.
func (dc *DegradationController) IsDegraded() bool {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.isDegraded
}
