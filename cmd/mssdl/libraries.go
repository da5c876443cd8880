package main

import (
	"github.com/spf13/cobra"

	"github.com/evb0110/mss-downloader-sub014/internal/cli"
)

type libraryInfo struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Shape   string   `json:"shape" yaml:"shape"`
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

var librariesCmd = &cobra.Command{
	Use:   "libraries",
	Short: "List supported libraries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		svc, err := newService(cfg)
		if err != nil {
			return err
		}

		libs := svc.Libraries()
		out := make([]libraryInfo, 0, len(libs))
		for _, lib := range libs {
			out = append(out, libraryInfo{
				ID:      string(lib.ID),
				Name:    lib.Name,
				Shape:   string(lib.Shape),
				Aliases: lib.Aliases,
			})
		}
		return cli.Output(out)
	},
}
