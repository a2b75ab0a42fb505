// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/capes-export/internal/checkpoint"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard the export currently in progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		store, err := checkpoint.NewStore(cfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Println("checkpoint cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
}
