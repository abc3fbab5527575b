package lab

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/llm-labs/internal/llmlabs/config"
	"github.com/spigell/llm-labs/internal/llmlabs/strategy"
)

func localModel(t *testing.T) config.ModelConfig {
	t.Helper()
	return config.NewModelConfig(config.ProviderLocal, "test-model", nil, zap.NewNop())
}

func populatedFineTuning(t *testing.T) *strategy.FineTuning {
	t.Helper()
	s := strategy.NewFineTuning(config.NewFineTuningConfig(localModel(t), nil), zap.NewNop())
	s.AddTrainingPairs(strategy.Pair{Prompt: "q", Response: "a"})
	return s
}

func emptyPretraining(t *testing.T) *strategy.Pretraining {
	t.Helper()
	return strategy.NewPretraining(config.NewTrainingConfig(localModel(t), nil), zap.NewNop())
}

func TestRunWithoutExperiment(t *testing.T) {
	o := New(zap.NewNop())

	if _, err := o.Run(context.Background()); !errors.Is(err, ErrNoExperiment) {
		t.Fatalf("expected ErrNoExperiment, got %v", err)
	}
}

func TestRunWithoutStrategies(t *testing.T) {
	o := New(zap.NewNop())
	o.DefineExperiment(Experiment{Name: "empty"})

	if _, err := o.Run(context.Background()); !errors.Is(err, ErrNoStrategies) {
		t.Fatalf("expected ErrNoStrategies, got %v", err)
	}
}

func TestRunCollectsEveryStrategy(t *testing.T) {
	o := New(zap.NewNop())
	o.DefineExperiment(Experiment{
		Name: "mixed",
		Strategies: []strategy.Strategy{
			emptyPretraining(t),
			populatedFineTuning(t),
		},
	})

	result, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Results) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result.Results))
	}
	if result.Results[0].Strategy != strategy.KindPretraining || result.Results[0].Success {
		t.Fatalf("first entry must be the failed pretraining: %+v", result.Results[0])
	}
	if result.Results[1].Strategy != strategy.KindFineTuning || !result.Results[1].Success {
		t.Fatalf("second entry must be the successful fine-tuning: %+v", result.Results[1])
	}
	if result.RunID == "" {
		t.Fatalf("expected a run id")
	}

	if got := result.Result(strategy.KindFineTuning); got == nil || !got.Success {
		t.Fatalf("lookup by kind failed: %+v", got)
	}
	if got := result.Result(strategy.KindRAG); got != nil {
		t.Fatalf("expected nil for a kind that never ran, got %+v", got)
	}
}

func TestRerunOverwritesResult(t *testing.T) {
	o := New(zap.NewNop())
	o.DefineExperiment(Experiment{
		Name:       "rerun",
		Strategies: []strategy.Strategy{populatedFineTuning(t)},
	})

	first, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error on rerun: %v", err)
	}

	if first.RunID == second.RunID {
		t.Fatalf("each run must get its own run id")
	}

	stored, ok := o.Result("rerun")
	if !ok {
		t.Fatalf("expected a stored result")
	}
	if stored.RunID != second.RunID {
		t.Fatalf("rerun must overwrite the stored result")
	}

	if names := o.Experiments(); len(names) != 1 || names[0] != "rerun" {
		t.Fatalf("unexpected experiment names: %v", names)
	}
}

func TestExportRequiresRun(t *testing.T) {
	o := New(zap.NewNop())

	if _, err := o.Export("never-ran"); !errors.Is(err, ErrUnknownExperiment) {
		t.Fatalf("expected ErrUnknownExperiment, got %v", err)
	}
}

func TestExportRoundTrip(t *testing.T) {
	o := New(zap.NewNop())
	o.DefineExperiment(Experiment{
		Name: "export",
		Strategies: []strategy.Strategy{
			emptyPretraining(t),
			populatedFineTuning(t),
		},
	})

	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	exported, err := o.Export("export")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded ExperimentResult
	if err := json.Unmarshal([]byte(exported), &decoded); err != nil {
		t.Fatalf("export must round-trip: %v", err)
	}

	if decoded.Name != "export" {
		t.Fatalf("unexpected experiment name: %q", decoded.Name)
	}
	if len(decoded.Results) != 2 {
		t.Fatalf("expected 2 strategy entries, got %d", len(decoded.Results))
	}
	if decoded.Results[0].Strategy != strategy.KindPretraining {
		t.Fatalf("export must preserve declaration order, got %q first", decoded.Results[0].Strategy)
	}
	if decoded.Results[0].Err == "" {
		t.Fatalf("failed strategy must keep its error in the export")
	}
	if decoded.Results[1].Metrics["loss"] == 0 {
		t.Fatalf("successful strategy must keep its metrics in the export")
	}
	if decoded.TotalDuration < 0 {
		t.Fatalf("unexpected total duration: %v", decoded.TotalDuration)
	}
}

func TestCompareUnknownExperiment(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	o := New(zap.New(core))

	// Must not panic and must leave a diagnostic.
	o.Compare("missing")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected one diagnostic entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["experiment"] != "missing" {
		t.Fatalf("diagnostic should name the experiment: %+v", entries[0].ContextMap())
	}
}

func TestCompareIncludesFailedStrategies(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	o := New(zap.New(core))

	o.DefineExperiment(Experiment{
		Name: "cmp",
		Strategies: []strategy.Strategy{
			emptyPretraining(t),
			populatedFineTuning(t),
		},
	})
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	observed.TakeAll()
	o.Compare("cmp")

	var failed, succeeded bool
	for _, entry := range observed.All() {
		ctx := entry.ContextMap()
		switch ctx["status"] {
		case "❌":
			failed = true
			if ctx["error"] == "" {
				t.Fatalf("failed entry must carry its error")
			}
		case "✅":
			succeeded = true
		}
	}

	if !failed || !succeeded {
		t.Fatalf("comparison must account for every strategy (failed=%v succeeded=%v)", failed, succeeded)
	}
}
