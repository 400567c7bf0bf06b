package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	cfgFile  string
	verbose  bool
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lexharvest",
	Short: "lexharvest - legislative import pipeline",
	Long: `lexharvest collects legislative acts from official portals (EUR-Lex,
legislatie.just.ro, gesetze-im-internet.de, lex.bg, ISAP), translates them
to Romanian, classifies them for occupational safety and health relevance,
and stores them with a full import run log.

Acts are re-checked on a schedule; when an act's text changes it is
re-processed and flagged for human review.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of lexharvest.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "lexharvest %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.lexharvest/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.lexharvest")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// LEXHARVEST_STORE_DSN, LEXHARVEST_LLM_MODEL, ...
	viper.SetEnvPrefix("LEXHARVEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// bindEnv registers the keys that may only come from the environment.
// AutomaticEnv alone cannot see keys absent from the config file.
func bindEnv(v *viper.Viper) {
	binds := map[string][]string{
		"store.driver":          {"LEXHARVEST_STORE_DRIVER"},
		"store.dsn":             {"LEXHARVEST_STORE_DSN", "DATABASE_URL"},
		"translation.api_key":   {"LEXHARVEST_TRANSLATION_API_KEY", "DEEPL_API_KEY"},
		"llm.provider":          {"LEXHARVEST_LLM_PROVIDER"},
		"llm.model":             {"LEXHARVEST_LLM_MODEL"},
		"llm.api_key":           {"LEXHARVEST_LLM_API_KEY"},
		"llm.base_url":          {"LEXHARVEST_LLM_BASE_URL"},
		"log.level":             {"LEXHARVEST_LOG_LEVEL"},
		"log.pretty":            {"LEXHARVEST_LOG_PRETTY"},
		"schedule.metrics_addr": {"LEXHARVEST_SCHEDULE_METRICS_ADDR"},
	}
	for key, envs := range binds {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
}

// ExecuteContext runs the root command with ctx, which every subcommand
// receives through cmd.Context()
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
