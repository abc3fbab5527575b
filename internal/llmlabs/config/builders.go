package config

import (
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/llm-labs/internal/secrets"
)

// Builder defaults. The simulation keeps them aligned with common
// single-GPU fine-tuning presets so exported reports look familiar.
const (
	DefaultTemperature     = 0.7
	DefaultMaxTokens       = 1024
	DefaultLearningRate    = 1e-4
	DefaultBatchSize       = 32
	DefaultEpochs          = 3
	DefaultValidationSplit = 0.1
	DefaultSeed            = 42

	DefaultFineTuningLearningRate = 5e-5
	DefaultFineTuningBatchSize    = 16
	DefaultLoraRank               = 8
	DefaultLoraAlpha              = 16

	DefaultRLHFLearningRate = 1e-5
	DefaultRLHFBatchSize    = 8
	DefaultRLHFEpochs       = 1
	DefaultPPOEpochs        = 4
	DefaultClipRatio        = 0.2

	DefaultEmbeddingModel      = "all-MiniLM-L6-v2"
	DefaultTopK                = 5
	DefaultSimilarityThreshold = 0.3
)

// DefaultTargetModules returns the attention projections adapters attach to
// when the caller does not name their own set.
func DefaultTargetModules() []string {
	return []string{"q_proj", "v_proj", "k_proj", "o_proj"}
}

// ModelOptions carries optional overrides for NewModelConfig.
type ModelOptions struct {
	APIKey      string  `mapstructure:"api-key"`
	APIKeyFile  string  `mapstructure:"api-key-file"`
	Endpoint    string  `mapstructure:"endpoint"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max-tokens"`
}

// NewModelConfig builds a ModelConfig for the given provider and model identifier.
// A missing API key is resolved from the provider's environment variable; a key
// that is still missing for a hosted provider is a warning, never an error, since
// the training layer only simulates calls.
func NewModelConfig(provider Provider, modelID string, opts *ModelOptions, log *zap.Logger) ModelConfig {
	if log == nil {
		log = zap.NewNop()
	}
	if opts == nil {
		opts = &ModelOptions{}
	}

	cfg := ModelConfig{
		Provider:    provider,
		ModelID:     strings.TrimSpace(modelID),
		Endpoint:    strings.TrimSpace(opts.Endpoint),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}

	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	if provider == ProviderLocal {
		return cfg
	}

	key, err := secrets.Load(secrets.Source{
		Name:  string(provider) + " api key",
		Value: opts.APIKey,
		File:  opts.APIKeyFile,
		Env:   provider.CredentialEnv(),
	})
	if err != nil {
		log.Warn("no api key found for provider",
			zap.String("provider", string(provider)),
			zap.String("env", provider.CredentialEnv()),
			zap.Error(err),
		)
		return cfg
	}

	cfg.APIKey = key
	return cfg
}

// TrainingOptions carries optional overrides for NewTrainingConfig.
type TrainingOptions struct {
	LearningRate    float64 `mapstructure:"learning-rate"`
	BatchSize       int     `mapstructure:"batch-size"`
	Epochs          int     `mapstructure:"epochs"`
	ValidationSplit float64 `mapstructure:"validation-split"`
	Seed            int64   `mapstructure:"seed"`
}

// NewTrainingConfig builds a TrainingConfig with pretraining defaults.
func NewTrainingConfig(model ModelConfig, opts *TrainingOptions) TrainingConfig {
	if opts == nil {
		opts = &TrainingOptions{}
	}

	cfg := TrainingConfig{
		Model:           model,
		LearningRate:    opts.LearningRate,
		BatchSize:       opts.BatchSize,
		Epochs:          opts.Epochs,
		ValidationSplit: opts.ValidationSplit,
		Seed:            opts.Seed,
	}

	return withTrainingDefaults(cfg, DefaultLearningRate, DefaultBatchSize, DefaultEpochs)
}

// FineTuningOptions carries optional overrides for NewFineTuningConfig.
type FineTuningOptions struct {
	TrainingOptions `mapstructure:",squash"`
	LoraRank        int      `mapstructure:"lora-rank"`
	LoraAlpha       int      `mapstructure:"lora-alpha"`
	TargetModules   []string `mapstructure:"target-modules"`
	UseQLoRA        bool     `mapstructure:"use-qlora"`
}

// NewFineTuningConfig builds a FineTuningConfig with adapter defaults.
func NewFineTuningConfig(model ModelConfig, opts *FineTuningOptions) FineTuningConfig {
	if opts == nil {
		opts = &FineTuningOptions{}
	}

	base := TrainingConfig{
		Model:           model,
		LearningRate:    opts.LearningRate,
		BatchSize:       opts.BatchSize,
		Epochs:          opts.Epochs,
		ValidationSplit: opts.ValidationSplit,
		Seed:            opts.Seed,
	}

	cfg := FineTuningConfig{
		TrainingConfig: withTrainingDefaults(base, DefaultFineTuningLearningRate, DefaultFineTuningBatchSize, DefaultEpochs),
		LoraRank:       opts.LoraRank,
		LoraAlpha:      opts.LoraAlpha,
		TargetModules:  opts.TargetModules,
		UseQLoRA:       opts.UseQLoRA,
	}

	if cfg.LoraRank == 0 {
		cfg.LoraRank = DefaultLoraRank
	}
	if cfg.LoraAlpha == 0 {
		cfg.LoraAlpha = DefaultLoraAlpha
	}
	if len(cfg.TargetModules) == 0 {
		cfg.TargetModules = DefaultTargetModules()
	}

	return cfg
}

// RLHFOptions carries optional overrides for NewRLHFConfig.
type RLHFOptions struct {
	TrainingOptions `mapstructure:",squash"`
	RewardModelPath string  `mapstructure:"reward-model-path"`
	PPOEpochs       int     `mapstructure:"ppo-epochs"`
	ClipRatio       float64 `mapstructure:"clip-ratio"`
}

// NewRLHFConfig builds an RLHFConfig with policy-optimization defaults.
func NewRLHFConfig(model ModelConfig, opts *RLHFOptions) RLHFConfig {
	if opts == nil {
		opts = &RLHFOptions{}
	}

	base := TrainingConfig{
		Model:           model,
		LearningRate:    opts.LearningRate,
		BatchSize:       opts.BatchSize,
		Epochs:          opts.Epochs,
		ValidationSplit: opts.ValidationSplit,
		Seed:            opts.Seed,
	}

	cfg := RLHFConfig{
		TrainingConfig:  withTrainingDefaults(base, DefaultRLHFLearningRate, DefaultRLHFBatchSize, DefaultRLHFEpochs),
		RewardModelPath: strings.TrimSpace(opts.RewardModelPath),
		PPOEpochs:       opts.PPOEpochs,
		ClipRatio:       opts.ClipRatio,
	}

	if cfg.PPOEpochs == 0 {
		cfg.PPOEpochs = DefaultPPOEpochs
	}
	if cfg.ClipRatio == 0 {
		cfg.ClipRatio = DefaultClipRatio
	}

	return cfg
}

// RAGOptions carries optional overrides for NewRAGConfig.
type RAGOptions struct {
	EmbeddingModel      string  `mapstructure:"embedding-model"`
	TopK                int     `mapstructure:"top-k"`
	SimilarityThreshold float64 `mapstructure:"similarity-threshold"`
}

// NewRAGConfig builds a RAGConfig. An empty store selects the local in-memory one.
func NewRAGConfig(store VectorStore, opts *RAGOptions) RAGConfig {
	if opts == nil {
		opts = &RAGOptions{}
	}

	cfg := RAGConfig{
		Store:               store,
		EmbeddingModel:      strings.TrimSpace(opts.EmbeddingModel),
		TopK:                opts.TopK,
		SimilarityThreshold: opts.SimilarityThreshold,
	}

	if cfg.Store == "" {
		cfg.Store = VectorStoreLocal
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.TopK == 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}

	return cfg
}

func withTrainingDefaults(cfg TrainingConfig, lr float64, batch, epochs int) TrainingConfig {
	if cfg.LearningRate == 0 {
		cfg.LearningRate = lr
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = batch
	}
	if cfg.Epochs == 0 {
		cfg.Epochs = epochs
	}
	if cfg.ValidationSplit == 0 {
		cfg.ValidationSplit = DefaultValidationSplit
	}
	if cfg.Seed == 0 {
		cfg.Seed = DefaultSeed
	}
	return cfg
}
