package main

import (
	"github.com/spf13/cobra"

	"github.com/evb0110/mss-downloader-sub014/internal/cli"
	"github.com/evb0110/mss-downloader-sub014/internal/config"
	"github.com/evb0110/mss-downloader-sub014/internal/discovery"
	"github.com/evb0110/mss-downloader-sub014/internal/home"
	"github.com/evb0110/mss-downloader-sub014/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "mssdl",
	Short: "Download medieval manuscripts from digital library viewers",
	Long: `mssdl turns a manuscript viewer URL from a supported digital library
into a complete set of maximum-resolution page images, assembled into
a single PDF.

Given a viewer URL it:
  - Classifies the URL to one of the supported libraries
  - Resolves the full page list from the library's manifest or viewer
  - Negotiates the highest resolution the image server will serve
  - Downloads all pages and merges them into a PDF`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.mssdl/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "mssdl home directory (default: ~/.mssdl)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cli.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(librariesCmd)
	rootCmd.AddCommand(configCmd)
}

// loadHome returns the home directory, honoring the --home flag.
func loadHome() (*home.Dir, error) {
	return home.New(homeDir)
}

// loadConfig returns the active configuration, honoring the --config flag.
func loadConfig() (*config.Config, error) {
	cm, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, err
	}
	return cm.Get(), nil
}

// newService builds the resolution service from the active configuration.
func newService(cfg *config.Config) (*discovery.Service, error) {
	return discovery.NewService(discovery.Options{
		UserAgent: cfg.UserAgent,
		Timeouts:  cfg.Timeouts(),
	})
}
