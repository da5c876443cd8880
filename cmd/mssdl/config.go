package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evb0110/mss-downloader-sub014/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file to the home directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		hd, err := loadHome()
		if err != nil {
			return err
		}
		if err := hd.EnsureExists(); err != nil {
			return err
		}
		if hd.ConfigExists() {
			return fmt.Errorf("config already exists at %s", hd.ConfigPath())
		}
		if err := config.WriteDefault(hd.ConfigPath()); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", hd.ConfigPath())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
