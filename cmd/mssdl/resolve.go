package main

import (
	"github.com/spf13/cobra"

	"github.com/evb0110/mss-downloader-sub014/internal/cli"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <url>",
	Short: "Resolve a viewer URL to its full page list without downloading",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		svc, err := newService(cfg)
		if err != nil {
			return err
		}

		manifest, err := svc.Resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return cli.Output(manifest)
	},
}
