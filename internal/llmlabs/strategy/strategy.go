package strategy

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/llm-labs/internal/llmlabs/config"
	"github.com/spigell/llm-labs/internal/logger"
)

// Strategy is a self-contained training approach sharing a common lifecycle.
// Train never returns an error: every failure is captured in the result so a
// whole experiment can run to completion regardless of individual outcomes.
type Strategy interface {
	Kind() Kind
	Train(ctx context.Context) *TrainingResult

	Metrics() []Metrics
	ClearMetrics()
}

// tracker hosts the bookkeeping every variant shares: the logger, the
// accumulated metrics snapshots and a seeded PRNG for simulated draws.
// Variants embed it by value; there is no inheritance chain to extend.
type tracker struct {
	kind    Kind
	logger  *zap.Logger
	rng     *rand.Rand
	history []Metrics
}

func newTracker(kind Kind, cfg config.TrainingConfig, log *zap.Logger) tracker {
	return tracker{
		kind:   kind,
		logger: logger.WithCommonFields(log, string(kind), cfg.Model.ModelID),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

func (t *tracker) Kind() Kind { return t.kind }

// Metrics returns a copy of the accumulated snapshots, oldest first.
func (t *tracker) Metrics() []Metrics {
	out := make([]Metrics, len(t.history))
	copy(out, t.history)
	return out
}

// ClearMetrics resets the accumulated snapshots. Nothing else ever clears them.
func (t *tracker) ClearMetrics() {
	t.history = nil
}

// record appends a snapshot stamped with the variant kind and the current time.
// Duration is filled by the caller when tracked separately, zero otherwise.
func (t *tracker) record(values map[string]any, duration time.Duration) {
	t.history = append(t.history, Metrics{
		Strategy:  t.kind,
		Timestamp: time.Now().UTC(),
		Values:    values,
		Duration:  duration,
	})
}

// validate rejects an absent model config or an empty model identifier before
// any simulated work starts.
func validate(model config.ModelConfig) error {
	if strings.TrimSpace(model.ModelID) == "" {
		return &ConfigError{Reason: "model id is required"}
	}
	return nil
}

// failure converts an internal error into a non-throwing result.
func failure(modelID string, start time.Time, err error) *TrainingResult {
	return &TrainingResult{
		Success:  false,
		ModelID:  modelID,
		Duration: time.Since(start),
		Metrics:  map[string]float64{},
		Err:      err.Error(),
	}
}
