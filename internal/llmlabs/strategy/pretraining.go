package strategy

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/llm-labs/internal/llmlabs/config"
)

// Pretraining simulates next-token pretraining over raw text records.
// The loss is drawn from the seeded PRNG and perplexity derived from it;
// no real gradients are computed.
type Pretraining struct {
	tracker

	cfg     config.TrainingConfig
	records []TextRecord
}

// NewPretraining creates a pretraining strategy for the given config.
func NewPretraining(cfg config.TrainingConfig, logger *zap.Logger) *Pretraining {
	return &Pretraining{
		tracker: newTracker(KindPretraining, cfg, logger),
		cfg:     cfg,
	}
}

// AddTrainingData appends raw-text records to the accumulated corpus.
func (s *Pretraining) AddTrainingData(records ...TextRecord) {
	s.records = append(s.records, records...)
}

// TrainingData returns the accumulated records.
func (s *Pretraining) TrainingData() []TextRecord {
	out := make([]TextRecord, len(s.records))
	copy(out, s.records)
	return out
}

// ClearTrainingData drops the accumulated records.
func (s *Pretraining) ClearTrainingData() {
	s.records = nil
}

// Train simulates one pretraining run over the current corpus.
func (s *Pretraining) Train(_ context.Context) *TrainingResult {
	start := time.Now()

	if err := validate(s.cfg.Model); err != nil {
		return failure(s.cfg.Model.ModelID, start, err)
	}

	if len(s.records) == 0 {
		return failure(s.cfg.Model.ModelID, start, &DataError{Reason: "no training data provided"})
	}

	totalTokens := 0
	for _, record := range s.records {
		totalTokens += len(strings.Fields(record.Text))
	}

	loss := 1 + s.rng.Float64()*2
	perplexity := math.Exp(loss)

	s.logger.Info("pretraining pass finished",
		zap.Int("records", len(s.records)),
		zap.Int("total_tokens", totalTokens),
		zap.Float64("loss", loss),
	)

	duration := time.Since(start)
	s.record(map[string]any{
		"total_tokens": totalTokens,
		"data_size":    len(s.records),
		"loss":         loss,
		"perplexity":   perplexity,
	}, duration)

	return &TrainingResult{
		Success:  true,
		ModelID:  s.cfg.Model.ModelID,
		Duration: duration,
		Metrics: map[string]float64{
			"loss":       loss,
			"perplexity": perplexity,
		},
		Checkpoint: fmt.Sprintf("checkpoints/%s-pretrained", s.cfg.Model.ModelID),
	}
}
