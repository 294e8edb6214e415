package llm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sandevgo/datacom/internal/metrics"
	"github.com/sandevgo/datacom/pkg/log"
)

// ModelHandle is the process-wide, lazily loaded model. A successful load is
// kept for the life of the process; a failed one is not remembered.
type ModelHandle struct {
	mu     sync.Mutex
	loader Loader
	gen    Generator
	ready  atomic.Bool
}

func NewModelHandle(loader Loader) *ModelHandle {
	return &ModelHandle{loader: loader}
}

// Get returns the loaded generator, loading it on first use. Concurrent callers
// wait for the single in-progress load.
func (h *ModelHandle) Get(ctx context.Context) (Generator, error) {
	if h.ready.Load() {
		return h.gen, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ready.Load() {
		return h.gen, nil
	}

	logger := log.FromCtx(ctx)
	logger.Info().Msg("loading model")
	start := time.Now()

	// The load outlives an abandoned turn so the next one finds it ready
	gen, err := h.loader(context.WithoutCancel(ctx))
	if err != nil {
		metrics.ModelLoads.WithLabelValues("error").Inc()
		logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("model load failed")
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	metrics.ModelLoads.WithLabelValues("ok").Inc()
	logger.Info().Dur("elapsed", time.Since(start)).Msg("model loaded")

	h.gen = gen
	h.ready.Store(true)
	return gen, nil
}

// IsReady reports whether a load has succeeded, without triggering one.
func (h *ModelHandle) IsReady() bool {
	return h.ready.Load()
}
