package lab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/llm-labs/internal/llmlabs/strategy"
)

var (
	// ErrNoExperiment is returned by Run when nothing has been defined yet.
	ErrNoExperiment = errors.New("no experiment defined")
	// ErrUnknownExperiment is returned by Export for a name that was never run.
	ErrUnknownExperiment = errors.New("unknown experiment")
	// ErrNoStrategies is returned when an experiment declares no strategies.
	ErrNoStrategies = errors.New("experiment has no strategies")
)

// Experiment is a named, ordered bundle of strategies executed as one unit.
type Experiment struct {
	Name        string
	Description string
	Strategies  []strategy.Strategy
}

// StrategyResult tags a training result with the strategy kind that produced it.
type StrategyResult struct {
	Strategy strategy.Kind `json:"strategy"`
	*strategy.TrainingResult
}

// ExperimentResult is the outcome of one experiment run. Results keeps the
// declaration order of the strategies.
type ExperimentResult struct {
	Name          string           `json:"experiment"`
	RunID         string           `json:"run_id"`
	StartedAt     time.Time        `json:"started_at"`
	TotalDuration time.Duration    `json:"total_duration"`
	Results       []StrategyResult `json:"results"`
}

// Result returns the training result of the first strategy with the given kind.
func (r *ExperimentResult) Result(kind strategy.Kind) *strategy.TrainingResult {
	for _, entry := range r.Results {
		if entry.Strategy == kind {
			return entry.TrainingResult
		}
	}
	return nil
}

// Orchestrator runs experiments and keeps their latest results by name.
// It holds one current experiment at a time; defining a new one replaces it.
// It is meant to be driven from a single flow, never concurrently.
type Orchestrator struct {
	logger  *zap.Logger
	current *Experiment
	results map[string]*ExperimentResult
}

// New creates an orchestrator logging through the provided logger.
func New(logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		logger:  logger,
		results: make(map[string]*ExperimentResult),
	}
}

// DefineExperiment stores the experiment definition, replacing any previous
// one. Nothing is executed until Run.
func (o *Orchestrator) DefineExperiment(exp Experiment) {
	o.current = &exp

	o.logger.Info("experiment defined",
		zap.String("experiment", exp.Name),
		zap.Int("strategies", len(exp.Strategies)),
	)
}

// Run executes the current experiment's strategies strictly sequentially, in
// declaration order. A failing strategy never aborts the run: its failed
// result is collected like any other. The result is stored under the
// experiment name, overwriting a prior run of the same name, and returned.
func (o *Orchestrator) Run(ctx context.Context) (*ExperimentResult, error) {
	if o.current == nil {
		return nil, ErrNoExperiment
	}
	if len(o.current.Strategies) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoStrategies, o.current.Name)
	}

	start := time.Now()
	result := &ExperimentResult{
		Name:      o.current.Name,
		RunID:     uuid.NewString(),
		StartedAt: start.UTC(),
		Results:   make([]StrategyResult, 0, len(o.current.Strategies)),
	}

	o.logger.Info("running experiment",
		zap.String("experiment", o.current.Name),
		zap.String("run_id", result.RunID),
	)

	for _, s := range o.current.Strategies {
		trained := s.Train(ctx)

		if trained.Success {
			o.logger.Info("strategy finished",
				zap.String("strategy", string(s.Kind())),
				zap.Duration("duration", trained.Duration),
			)
		} else {
			o.logger.Warn("strategy failed",
				zap.String("strategy", string(s.Kind())),
				zap.String("error", trained.Err),
			)
		}

		result.Results = append(result.Results, StrategyResult{
			Strategy:       s.Kind(),
			TrainingResult: trained,
		})
	}

	result.TotalDuration = time.Since(start)
	o.results[result.Name] = result

	o.logger.Info("experiment finished",
		zap.String("experiment", result.Name),
		zap.Duration("total_duration", result.TotalDuration),
	)

	return result, nil
}

// Result returns the stored result for the named experiment.
func (o *Orchestrator) Result(name string) (*ExperimentResult, bool) {
	result, ok := o.results[name]
	return result, ok
}

// Experiments returns the names of all experiments with stored results, sorted.
func (o *Orchestrator) Experiments() []string {
	names := make([]string, 0, len(o.results))
	for name := range o.results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compare logs a side-by-side summary of every strategy result in the named
// experiment. An unknown name is a diagnostic, not an error: misspelling a
// name in a report should not kill a run.
func (o *Orchestrator) Compare(name string) {
	result, ok := o.results[name]
	if !ok {
		o.logger.Warn("no results for experiment", zap.String("experiment", name))
		return
	}

	o.logger.Info("comparing strategies",
		zap.String("experiment", name),
		zap.Int("strategies", len(result.Results)),
	)

	for _, entry := range result.Results {
		fields := []zap.Field{
			zap.String("status", statusGlyph(entry.Success)),
			zap.Duration("duration", entry.Duration),
		}

		if loss, ok := entry.Metrics["loss"]; ok {
			fields = append(fields, zap.Float64("loss", loss))
		}
		if accuracy, ok := entry.Metrics["accuracy"]; ok {
			fields = append(fields, zap.Float64("accuracy", accuracy))
		}
		if entry.Err != "" {
			fields = append(fields, zap.String("error", entry.Err))
		}

		o.logger.Info(string(entry.Strategy), fields...)
	}
}

// Export serializes the named experiment's full result set to indented JSON,
// preserving strategy declaration order. Exporting an experiment that was
// never run is caller misuse and a hard error.
func (o *Orchestrator) Export(name string) (string, error) {
	result, ok := o.results[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownExperiment, name)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal experiment %q: %w", name, err)
	}

	return string(data), nil
}

func statusGlyph(success bool) string {
	if success {
		return "✅"
	}
	return "❌"
}
