package strategy

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/llm-labs/internal/llmlabs/config"
)

// Starting losses and per-epoch decay factors for the simulated fine-tuning
// loop. These curves are the simulation contract; reports and tests depend on
// the exact values.
const (
	initialLoss        = 2.5
	trainingLossDecay  = 0.85
	validationDecay    = 0.87
	maxAccuracy        = 0.95
	fallbackBatchSize  = 32
	fallbackEpochCount = 3
)

// FineTuning simulates supervised fine-tuning with low-rank adapters over
// prompt/response pairs.
type FineTuning struct {
	tracker

	cfg        config.FineTuningConfig
	pairs      []Pair
	validation []Pair
}

// NewFineTuning creates a fine-tuning strategy for the given config.
func NewFineTuning(cfg config.FineTuningConfig, logger *zap.Logger) *FineTuning {
	return &FineTuning{
		tracker: newTracker(KindFineTuning, cfg.TrainingConfig, logger),
		cfg:     cfg,
	}
}

// AddTrainingPairs appends prompt/response pairs to the training set.
func (s *FineTuning) AddTrainingPairs(pairs ...Pair) {
	s.pairs = append(s.pairs, pairs...)
}

// AddValidationPairs appends prompt/response pairs to the validation set.
func (s *FineTuning) AddValidationPairs(pairs ...Pair) {
	s.validation = append(s.validation, pairs...)
}

// TrainingPairs returns the accumulated training pairs.
func (s *FineTuning) TrainingPairs() []Pair {
	out := make([]Pair, len(s.pairs))
	copy(out, s.pairs)
	return out
}

// ValidationPairs returns the accumulated validation pairs.
func (s *FineTuning) ValidationPairs() []Pair {
	out := make([]Pair, len(s.validation))
	copy(out, s.validation)
	return out
}

// Train simulates a fine-tuning run: an exponential loss decay over the
// configured epochs, independent of pair contents.
func (s *FineTuning) Train(_ context.Context) *TrainingResult {
	start := time.Now()

	if err := validate(s.cfg.Model); err != nil {
		return failure(s.cfg.Model.ModelID, start, err)
	}

	if len(s.pairs) == 0 {
		return failure(s.cfg.Model.ModelID, start, &DataError{Reason: "no training pairs provided"})
	}

	epochs := s.cfg.Epochs
	if epochs <= 0 {
		epochs = fallbackEpochCount
	}
	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = fallbackBatchSize
	}
	numBatches := int(math.Ceil(float64(len(s.pairs)) / float64(batchSize)))

	trainingLoss := initialLoss
	validationLoss := initialLoss
	for epoch := 1; epoch <= epochs; epoch++ {
		trainingLoss *= trainingLossDecay
		validationLoss *= validationDecay

		s.logger.Debug("epoch finished",
			zap.Int("epoch", epoch),
			zap.Float64("training_loss", trainingLoss),
			zap.Float64("validation_loss", validationLoss),
		)
	}

	accuracy := math.Min(maxAccuracy, 1-validationLoss/10)

	s.logger.Info("fine-tuning finished",
		zap.Int("training_pairs", len(s.pairs)),
		zap.Int("epochs", epochs),
		zap.Float64("loss", trainingLoss),
		zap.Float64("accuracy", accuracy),
	)

	duration := time.Since(start)
	s.record(map[string]any{
		"training_pairs":        len(s.pairs),
		"validation_pairs":      len(s.validation),
		"epochs":                epochs,
		"batch_size":            batchSize,
		"num_batches":           numBatches,
		"final_training_loss":   trainingLoss,
		"final_validation_loss": validationLoss,
		"accuracy":              accuracy,
		"lora_enabled":          s.cfg.LoraRank > 0,
		"lora_rank":             s.cfg.LoraRank,
	}, duration)

	return &TrainingResult{
		Success:  true,
		ModelID:  s.cfg.Model.ModelID,
		Duration: duration,
		Metrics: map[string]float64{
			"loss":            trainingLoss,
			"accuracy":        accuracy,
			"validation_loss": validationLoss,
		},
		Checkpoint: fmt.Sprintf("checkpoints/%s-finetuned", s.cfg.Model.ModelID),
	}
}
