package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/tsbridge/script"
)

var shimCmd = &cobra.Command{
	Use:   "shim",
	Short: "Write the Bridge compatibility module into the client root",
	Long: `Write Bridge.ts into the client root so editors and the type checker can
resolve it. The file is overwritten unconditionally; build, compile and
serve write it too.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path, err := script.WriteShim(cfg.Layout())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shimCmd)
}
