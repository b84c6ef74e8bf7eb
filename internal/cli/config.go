package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/legalyze/internal/model"
	"github.com/ppiankov/legalyze/internal/score"
)

var (
	configInitPath  string
	configInitForce bool
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Legalyze configuration",
	Long: `Manage Legalyze configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (LEGALYZE_*, e.g. LEGALYZE_LLM_SUMMARY_MODEL)
3. .env file in the working directory
4. Config file (~/.legalyze/config.yaml or ./config/config.yaml)
5. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging defaults, config file, environment and flags. Secrets are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(cfg.Redacted())
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(yamlData)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long: `Create a default configuration file (default ~/.legalyze/config.yaml) with all available options,
and an editable copy of the built-in risk lexicon (lexicon.yaml) next to it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configInitPath
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("find home directory: %w", err)
			}
			path = filepath.Join(home, ".legalyze", "config.yaml")
		}

		if err := writeDefaultConfig(path, configInitForce); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created default configuration: %s\n", path)
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created default risk lexicon: %s\n", lexiconPath(path))
		fmt.Fprintf(cmd.OutOrStdout(), "\nTo view the effective configuration:\n  legalyze config show\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().StringVar(&configInitPath, "path", "", "where to write the file (default: $HOME/.legalyze/config.yaml)")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
}

// lexiconFileName is written next to the config file by config init
const lexiconFileName = "lexicon.yaml"

func lexiconPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), lexiconFileName)
}

// writeDefaultConfig writes the documented default configuration to path and
// the built-in lexicon beside it. The config points risk.lexicon_file at the
// lexicon so edits to it take effect.
func writeDefaultConfig(path string, force bool) error {
	lexPath := lexiconPath(path)
	for _, p := range []string{path, lexPath} {
		if _, statErr := os.Stat(p); statErr == nil && !force {
			return fmt.Errorf("file already exists: %s (use --force to overwrite)", p)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	cfg := model.DefaultConfig()
	cfg.Risk.LexiconFile = lexPath
	if err := writeFile(path, func(w io.Writer) error { return writeConfigTemplate(w, cfg) }); err != nil {
		return err
	}
	return writeFile(lexPath, writeLexicon)
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	return write(f)
}

// writeLexicon writes the built-in lexicon in the format risk.lexicon_file reads
func writeLexicon(w io.Writer) error {
	header := `# Legalyze risk lexicon
#
# Tiers map phrases to integer weights. Phrases match case-insensitively
# anywhere in a clause and each phrase counts once per clause.

`
	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("write lexicon: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(score.DefaultLexicon()); err != nil {
		return fmt.Errorf("write lexicon: %w", err)
	}
	return enc.Close()
}

func writeConfigTemplate(w io.Writer, cfg *model.Config) error {
	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	header := `# Legalyze configuration
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (LEGALYZE_*)
#   3. .env file
#   4. This config file
#   5. Built-in defaults

`
	footer := `
# API keys (recommended to use environment variables instead):
#   export MISTRAL_API_KEY=...
#   export DEEPSEEK_API_KEY=...
#   export OPENAI_API_KEY=sk-...
#   export ANTHROPIC_API_KEY=sk-ant-...
#   export NEO4J_PASSWORD=...
`

	for _, chunk := range [][]byte{[]byte(header), yamlData, []byte(footer)} {
		if _, err := w.Write(chunk); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
	}
	return nil
}
