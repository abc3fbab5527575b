package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/llm-labs/internal/llmlabs/config"
	"github.com/spigell/llm-labs/internal/llmlabs/dataset"
	"github.com/spigell/llm-labs/internal/llmlabs/lab"
	"github.com/spigell/llm-labs/internal/llmlabs/strategy"
	"github.com/spigell/llm-labs/internal/logger"
)

const (
	PromptCompare       = "Show strategy comparison"
	PromptExportToFile  = "Export results to file"
	PromptExit          = "Exit"
	defaultProviderName = string(config.ProviderLocal)
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Proceed?",
	Items: []string{PromptCompare, PromptExportToFile, PromptExit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured experiment and report per-strategy results",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for an action after the experiment finishes")
	runCmd.Flags().StringP("export-file", "e", "", "file to export experiment results to. Default is a temporary file.")

	viper.BindPFlag("export-file", runCmd.Flags().Lookup("export-file"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	cfg, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting llm-labs", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(cfg, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if cfg == nil {
		logger.Fatal("config is required")
	}

	if cfg.Experiment == nil || len(cfg.Experiment.Strategies) == 0 {
		logger.Fatal("at least one strategy is required under experiment.strategies")
	}

	model := buildModelConfig(cfg.Model, logger)

	strategies, err := buildStrategies(cfg.Experiment.Strategies, model, logger)
	if err != nil {
		logger.Fatal("building strategies", zap.Error(err))
	}

	orchestrator := lab.New(logger)
	orchestrator.DefineExperiment(lab.Experiment{
		Name:        cfg.Experiment.Name,
		Description: cfg.Experiment.Description,
		Strategies:  strategies,
	})

	result, err := orchestrator.Run(ctx)
	if err != nil {
		logger.Fatal("running experiment", zap.Error(err))
	}

	orchestrator.Compare(result.Name)

	if cmd.Flag("auto-approve").Value.String() == "true" {
		if err := exportToFile(orchestrator, result.Name, logger); err != nil {
			logger.Fatal("exporting results", zap.Error(err))
		}
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, orchestrator, result.Name, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, orchestrator *lab.Orchestrator, name string, logger *zap.Logger) error {
	switch action {
	case PromptCompare:
		orchestrator.Compare(name)
		return nil
	case PromptExportToFile:
		return exportToFile(orchestrator, name, logger)
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func exportToFile(orchestrator *lab.Orchestrator, name string, logger *zap.Logger) error {
	exported, err := orchestrator.Export(name)
	if err != nil {
		return fmt.Errorf("export results: %w", err)
	}

	path := strings.TrimSpace(viper.GetString("export-file"))
	if path == "" {
		file, err := os.CreateTemp("", "experiment_*.json")
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		path = file.Name()
		file.Close()
	}

	if err := os.WriteFile(path, []byte(exported), 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}

	logger.Info("exported experiment results",
		zap.String("experiment", name),
		zap.String("filename", path),
	)
	return nil
}

func buildModelConfig(section *ModelSection, logger *zap.Logger) config.ModelConfig {
	if section == nil {
		section = &ModelSection{}
	}

	provider := strings.TrimSpace(strings.ToLower(section.Provider))
	if provider == "" {
		provider = defaultProviderName
	}

	return config.NewModelConfig(config.Provider(provider), section.ID, &config.ModelOptions{
		APIKeyFile:  section.APIKeyFile,
		Endpoint:    section.Endpoint,
		Temperature: section.Temperature,
		MaxTokens:   section.MaxTokens,
	}, logger)
}

func buildStrategies(sections []*StrategySection, model config.ModelConfig, logger *zap.Logger) ([]strategy.Strategy, error) {
	strategies := make([]strategy.Strategy, 0, len(sections))

	for _, section := range sections {
		kind := strategy.Kind(strings.TrimSpace(strings.ToLower(section.Kind)))

		built, err := buildStrategy(kind, section, model, logger)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}

		strategies = append(strategies, built)
	}

	return strategies, nil
}

func buildStrategy(kind strategy.Kind, section *StrategySection, model config.ModelConfig, logger *zap.Logger) (strategy.Strategy, error) {
	switch kind {
	case strategy.KindPretraining:
		var opts config.TrainingOptions
		if err := decodeOptions(section.Options, &opts); err != nil {
			return nil, err
		}

		s := strategy.NewPretraining(config.NewTrainingConfig(model, &opts), logger)
		if section.Dataset != "" {
			records, err := dataset.TextRecords(section.Dataset)
			if err != nil {
				return nil, err
			}
			s.AddTrainingData(records...)
		}
		return s, nil

	case strategy.KindFineTuning:
		var opts config.FineTuningOptions
		if err := decodeOptions(section.Options, &opts); err != nil {
			return nil, err
		}

		s := strategy.NewFineTuning(config.NewFineTuningConfig(model, &opts), logger)
		if section.Dataset != "" {
			pairs, err := dataset.Pairs(section.Dataset)
			if err != nil {
				return nil, err
			}
			s.AddTrainingPairs(pairs...)
		}
		if section.ValidationDataset != "" {
			pairs, err := dataset.Pairs(section.ValidationDataset)
			if err != nil {
				return nil, err
			}
			s.AddValidationPairs(pairs...)
		}
		return s, nil

	case strategy.KindRLHF:
		var opts config.RLHFOptions
		if err := decodeOptions(section.Options, &opts); err != nil {
			return nil, err
		}

		s := strategy.NewRLHF(config.NewRLHFConfig(model, &opts), logger)
		if section.Dataset != "" {
			prefs, err := dataset.Preferences(section.Dataset)
			if err != nil {
				return nil, err
			}
			s.AddPreferenceData(prefs...)
		}
		return s, nil

	case strategy.KindRAG:
		var trainOpts config.TrainingOptions
		if err := decodeOptions(section.Options, &trainOpts); err != nil {
			return nil, err
		}
		var ragOpts config.RAGOptions
		if err := decodeOptions(section.Options, &ragOpts); err != nil {
			return nil, err
		}

		store := config.VectorStoreLocal
		if raw, ok := section.Options["vector-store"].(string); ok && raw != "" {
			store = config.VectorStore(raw)
		}

		s := strategy.NewRAG(config.NewTrainingConfig(model, &trainOpts), config.NewRAGConfig(store, &ragOpts), logger)
		if section.Dataset != "" {
			docs, err := dataset.Documents(section.Dataset)
			if err != nil {
				return nil, err
			}
			s.AddDocuments(docs...)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unsupported strategy kind: %q", section.Kind)
	}
}

func decodeOptions(options map[string]any, result any) error {
	if len(options) == 0 {
		return nil
	}

	cfg := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   result,
		TagName:  "mapstructure",
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return fmt.Errorf("building options decoder: %w", err)
	}

	if err := decoder.Decode(options); err != nil {
		return fmt.Errorf("decoding strategy options: %w", err)
	}

	return nil
}
