package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "simctl",
	Short: "Inspect and play deterministic exam simulations",
	Long: `simctl prints the seeded randomization a session will see
(question order, option relabelling, raw generator draws) and can play
a session against the session service from the terminal.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.AddCommand(seedCmd, orderCmd, optionsCmd, tokenCmd, playCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
