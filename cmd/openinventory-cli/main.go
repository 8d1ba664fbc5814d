package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/clemoseitano/open-inventory-api/client"
)

// Build-time variables set via ldflags.
var (
	version   = "0.1.0"
	commit    = ""
	buildDate = ""
)

var (
	apiClient  *client.Client
	flagURL    string
	flagKey    string
	flagTenant string
	flagFmt    string
)

const defaultURL = "http://localhost:3040"

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("openinventory version %s (commit: %s, built: %s)", version, commit, buildDate)
	}
	return fmt.Sprintf("openinventory version %s-dev", version)
}

type configFile struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Tenant string `yaml:"tenant"`
}

func main() {
	rootCmd := &cobra.Command{
		Use:     "openinventory",
		Short:   "Open Inventory CLI for offline-first POS sync",
		Version: versionString(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			resolveConfig()
			var opts []client.Option
			if flagKey != "" {
				opts = append(opts, client.WithAPIKey(flagKey))
			}
			apiClient = client.New(flagURL, opts...)
		},
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&flagURL, "url", defaultURL, "Server URL (env: OPENINVENTORY_URL)")
	rootCmd.PersistentFlags().StringVar(&flagKey, "api-key", "", "API key or admin token (env: OPENINVENTORY_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&flagTenant, "tenant", "", "Tenant slug (env: OPENINVENTORY_TENANT)")
	rootCmd.PersistentFlags().StringVar(&flagFmt, "format", "json", "Output format: json|table|quiet")

	rootCmd.AddCommand(newPushCmd())
	rootCmd.AddCommand(newPullCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newAuditCmd())
	rootCmd.AddCommand(newAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveConfig() {
	// Flag takes precedence, then env, then config file.
	if flagURL == defaultURL {
		if v := os.Getenv("OPENINVENTORY_URL"); v != "" {
			flagURL = v
		}
	}
	if flagKey == "" {
		flagKey = os.Getenv("OPENINVENTORY_API_KEY")
	}
	if flagTenant == "" {
		flagTenant = os.Getenv("OPENINVENTORY_TENANT")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	cfgPath := filepath.Join(home, ".openinventory", "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return
	}
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return
	}
	if flagURL == defaultURL && cfg.URL != "" {
		flagURL = cfg.URL
	}
	if flagKey == "" && cfg.APIKey != "" {
		flagKey = cfg.APIKey
	}
	if flagTenant == "" && cfg.Tenant != "" {
		flagTenant = cfg.Tenant
	}
}

func requireTenant() string {
	if flagTenant == "" {
		fmt.Fprintln(os.Stderr, "Error: --tenant is required (or set OPENINVENTORY_TENANT)")
		os.Exit(1)
	}
	return flagTenant
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	os.Exit(1)
}
