package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/galley/internal/config"
	"github.com/jackzampolin/galley/internal/home"
	"github.com/jackzampolin/galley/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage galley configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file to the galley home directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		if h.ConfigExists() {
			return fmt.Errorf("config already exists at %s", h.ConfigPath())
		}
		if err := config.WriteDefault(h.ConfigPath()); err != nil {
			return err
		}
		fmt.Printf("wrote default config to %s\n", h.ConfigPath())
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		return output.Write(mgr.Get())
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
