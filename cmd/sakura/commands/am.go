package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Somnusochi/auto-novel/am"
	"github.com/Somnusochi/auto-novel/sym"
)

// AmCmd groups the configuration commands
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: sym.AM + " Manage Sakura configuration",
	Long: sym.AM + ` am — Manage Sakura configuration ("I am")

Configuration sources (in order of precedence):
1. Environment variables (SAKURA_* prefix, SAKURA_JWT_SECRET for the secret)
2. Project config (./am.toml, searched upwards)
3. User config (~/.sakura/am.toml)
4. System config (/etc/sakura/am.toml)
5. Default values

Examples:
  sakura am show                    # Show current configuration
  sakura am show --format yaml      # Show configuration as YAML
  sakura am validate                # Validate current configuration
  sakura am init                    # Write the defaults to ./am.toml`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runAmShow,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	RunE:  runAmWhere,
}

var amInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAmInit,
}

var (
	configFormat string
	initForce    bool
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file (previous copy kept as .back1)")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
	AmCmd.AddCommand(amInitCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Never print the signing secret
	shown := *cfg
	if shown.Auth.JWTSecret != "" {
		shown.Auth.JWTSecret = "********"
	}

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(shown, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Println(string(data))

	case "yaml":
		data, err := yaml.Marshal(shown)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Printf("# Sakura configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(shown)
		if err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		fmt.Printf("# Sakura configuration\n%s", string(data))

	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	pterm.Success.Println("Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	pterm.Info.Println("Configuration files, lowest precedence first:")
	for _, path := range am.ConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			pterm.Printf("  ✓ %s\n", path)
		} else {
			pterm.Printf("  ✗ %s (missing)\n", path)
		}
	}
	return nil
}

func runAmInit(cmd *cobra.Command, args []string) error {
	path := am.ConfigFileName
	if len(args) == 1 {
		path = args[0]
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := am.Save(path, am.DefaultConfig()); err != nil {
		return err
	}
	pterm.Success.Printf("Wrote default configuration to %s\n", path)
	return nil
}
