package main

import (
	"github.com/spf13/cobra"

	"github.com/evb0110/mss-downloader-sub014/internal/assemble"
	"github.com/evb0110/mss-downloader-sub014/internal/cli"
	"github.com/evb0110/mss-downloader-sub014/internal/fetch"
)

var (
	downloadOutFile     string
	downloadKeepStaging bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <url>",
	Short: "Resolve a viewer URL, download all pages, and assemble a PDF",
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
		hd, err := loadHome()
		if err != nil {
			return err
		}
		if err := hd.EnsureExists(); err != nil {
			return err
		}

		manifest, err := svc.Resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		client, err := fetch.NewClient(fetch.WithUserAgent(cfg.UserAgent))
		if err != nil {
			return err
		}
		fetcher := fetch.NewRetrying(client, fetch.DefaultAttempts, fetch.DefaultRetryDelay)

		dl := assemble.NewDownloader(hd, fetcher)
		res, err := dl.Download(cmd.Context(), assemble.Request{
			Manifest:    manifest,
			OutputPath:  downloadOutFile,
			OutputDir:   cfg.OutputDir,
			Concurrency: cfg.Concurrency,
			KeepStaging: downloadKeepStaging,
		})
		if err != nil {
			return err
		}

		return cli.Output(map[string]any{
			"library": manifest.Library,
			"title":   manifest.DisplayName,
			"pages":   res.PageCount,
			"output":  res.OutputPath,
			"elapsed": res.Elapsed.String(),
		})
	},
}

func init() {
	downloadCmd.Flags().StringVarP(
		&downloadOutFile, "output-file", "f", "", "destination PDF path (default: derived from the manuscript title)",
	)
	downloadCmd.Flags().BoolVar(
		&downloadKeepStaging, "keep-staging", false, "keep downloaded page images in the staging directory",
	)
}
