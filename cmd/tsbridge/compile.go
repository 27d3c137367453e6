package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/tsbridge/compiler"
	"github.com/caffeineduck/tsbridge/script"
)

var compileCmd = &cobra.Command{
	Use:   "compile <module>",
	Short: "Compile one module on demand and print its JavaScript",
	Long: `Compile a single client module the way reload mode does: write the
Bridge shim, compile, no type check. The JavaScript is written to stdout
or to --out.

Module names are dotted paths under the client root: Pages.Home resolves
to <client-root>/Pages/Home.ts.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().StringP("out", "o", "", "Write JavaScript to file instead of stdout")
	compileCmd.Flags().Bool("fragment", false, "Print the HTML fragment instead of bare JavaScript")
	compileCmd.Flags().Bool("minify", false, "Minify output")
	compileCmd.Flags().Bool("sourcemap", false, "Inline a source map")
	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cc := cfg.CompilerConfig()
	if cmd.Flags().Changed("minify") {
		cc.Minify, _ = cmd.Flags().GetBool("minify")
	}
	if cmd.Flags().Changed("sourcemap") {
		cc.SourceMap, _ = cmd.Flags().GetBool("sourcemap")
	}
	out, _ := cmd.Flags().GetString("out")
	fragment, _ := cmd.Flags().GetBool("fragment")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	r := script.NewReloader(cfg.Layout(), compiler.NewESBuild(), cc, logger)
	artifact, err := r.Artifact(ctx, args[0])
	if err != nil {
		return err
	}

	text := artifact.JS
	if fragment {
		html, err := script.Fragment(artifact, script.FragmentOptions{
			HelperURL: cfg.Server.HelperURL,
			Route:     cfg.Server.Route,
		})
		if err != nil {
			return err
		}
		text = string(html)
	}

	if out == "" {
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	}
	return os.WriteFile(out, []byte(text), 0o644)
}
