package strategy

import (
	"context"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/llm-labs/internal/llmlabs/config"
)

func localFineTuningConfig(t *testing.T, opts *config.FineTuningOptions) config.FineTuningConfig {
	t.Helper()
	model := config.NewModelConfig(config.ProviderLocal, "test-model", nil, zap.NewNop())
	return config.NewFineTuningConfig(model, opts)
}

func TestFineTuningDecayCurve(t *testing.T) {
	s := NewFineTuning(localFineTuningConfig(t, nil), zap.NewNop())
	s.AddTrainingPairs(Pair{Prompt: "q", Response: "a"})

	result := s.Train(context.Background())

	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Err)
	}

	// Three default epochs of pure exponential decay from 2.5.
	wantLoss := 2.5 * math.Pow(0.85, 3)
	wantValidation := 2.5 * math.Pow(0.87, 3)
	wantAccuracy := math.Min(0.95, 1-wantValidation/10)

	if math.Abs(result.Metrics["loss"]-wantLoss) > 1e-9 {
		t.Fatalf("expected loss %v, got %v", wantLoss, result.Metrics["loss"])
	}
	if math.Abs(result.Metrics["validation_loss"]-wantValidation) > 1e-9 {
		t.Fatalf("expected validation loss %v, got %v", wantValidation, result.Metrics["validation_loss"])
	}
	if math.Abs(result.Metrics["accuracy"]-wantAccuracy) > 1e-9 {
		t.Fatalf("expected accuracy %v, got %v", wantAccuracy, result.Metrics["accuracy"])
	}

	if result.Checkpoint != "checkpoints/test-model-finetuned" {
		t.Fatalf("unexpected checkpoint: %q", result.Checkpoint)
	}
}

func TestFineTuningBatchAccounting(t *testing.T) {
	s := NewFineTuning(localFineTuningConfig(t, nil), zap.NewNop())
	for i := 0; i < 33; i++ {
		s.AddTrainingPairs(Pair{Prompt: "q", Response: "a"})
	}
	s.AddValidationPairs(Pair{Prompt: "vq", Response: "va"})

	result := s.Train(context.Background())
	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Err)
	}

	metrics := s.Metrics()
	if len(metrics) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(metrics))
	}

	values := metrics[0].Values
	if values["training_pairs"] != 33 || values["validation_pairs"] != 1 {
		t.Fatalf("unexpected pair counts: %v / %v", values["training_pairs"], values["validation_pairs"])
	}
	// Default fine-tuning batch size is 16: ceil(33/16) = 3.
	if values["num_batches"] != 3 {
		t.Fatalf("expected 3 batches, got %v", values["num_batches"])
	}
	if values["lora_enabled"] != true || values["lora_rank"] != config.DefaultLoraRank {
		t.Fatalf("unexpected adapter bookkeeping: %v / %v", values["lora_enabled"], values["lora_rank"])
	}
}

func TestFineTuningNoPairsIsNonThrowing(t *testing.T) {
	s := NewFineTuning(localFineTuningConfig(t, nil), zap.NewNop())

	result := s.Train(context.Background())

	if result.Success {
		t.Fatalf("expected failure without pairs")
	}
	if result.Err == "" {
		t.Fatalf("expected a populated error message")
	}
}

func TestFineTuningEpochOverride(t *testing.T) {
	cfg := localFineTuningConfig(t, &config.FineTuningOptions{
		TrainingOptions: config.TrainingOptions{Epochs: 5},
	})
	s := NewFineTuning(cfg, zap.NewNop())
	s.AddTrainingPairs(Pair{Prompt: "q", Response: "a"})

	result := s.Train(context.Background())

	wantLoss := 2.5 * math.Pow(0.85, 5)
	if math.Abs(result.Metrics["loss"]-wantLoss) > 1e-9 {
		t.Fatalf("expected loss %v after 5 epochs, got %v", wantLoss, result.Metrics["loss"])
	}
}

func TestFineTuningDataAccessors(t *testing.T) {
	s := NewFineTuning(localFineTuningConfig(t, nil), zap.NewNop())
	s.AddTrainingPairs(Pair{Prompt: "q1", Response: "a1"}, Pair{Prompt: "q2", Response: "a2"})
	s.AddValidationPairs(Pair{Prompt: "vq", Response: "va"})

	if got := len(s.TrainingPairs()); got != 2 {
		t.Fatalf("expected 2 training pairs, got %d", got)
	}
	if got := len(s.ValidationPairs()); got != 1 {
		t.Fatalf("expected 1 validation pair, got %d", got)
	}
}
