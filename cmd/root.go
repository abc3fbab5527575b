package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "llm-labs"
)

// Config is the file-backed configuration for the run command. Strategy
// options stay as loose maps here and are decoded per kind in run.go.
type Config struct {
	Model      *ModelSection      `mapstructure:"model"`
	Experiment *ExperimentSection `mapstructure:"experiment"`
}

// ModelSection describes the backing model shared by every strategy in the
// experiment.
type ModelSection struct {
	Provider    string  `mapstructure:"provider"`
	ID          string  `mapstructure:"id"`
	APIKeyFile  string  `mapstructure:"api-key-file"`
	Endpoint    string  `mapstructure:"endpoint"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max-tokens"`
}

// ExperimentSection names the experiment and declares its strategies in
// execution order.
type ExperimentSection struct {
	Name        string             `mapstructure:"name"`
	Description string             `mapstructure:"description"`
	Strategies  []*StrategySection `mapstructure:"strategies"`
}

// StrategySection declares one strategy: its kind, the dataset files feeding
// it and kind-specific options.
type StrategySection struct {
	Kind              string         `mapstructure:"kind"`
	Dataset           string         `mapstructure:"dataset"`
	ValidationDataset string         `mapstructure:"validation-dataset"`
	Options           map[string]any `mapstructure:"options"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "llm-labs is a simple cli for running simulated LLM training experiments and comparing strategies",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("model.api-key-file", "LLM_LABS_API_KEY_FILE"); err != nil {
		log.Fatalf("binding LLM_LABS_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is llm-labs.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for run command now. If there is no config, we can skip initialization
	if runCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
