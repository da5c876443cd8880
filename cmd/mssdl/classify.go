package main

import (
	"github.com/spf13/cobra"

	"github.com/evb0110/mss-downloader-sub014/internal/cli"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <url>",
	Short: "Report which library a viewer URL belongs to, without network access",
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

		url := args[0]
		id, ok := svc.Classify(url)
		out := map[string]any{
			"url":       url,
			"supported": ok,
		}
		if ok {
			out["library"] = string(id)
		}
		return cli.Output(out)
	},
}
