package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/caffeineduck/tsbridge/dispatch"
	"github.com/caffeineduck/tsbridge/internal/demo"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Dispatch commands interactively",
	Long: `Start an interactive console that dispatches JSON commands to the demo
application in-process, exactly as the HTTP endpoint would.

  > {"tag":"Add","a":1,"b":2}
  3

Features:
  - Command history (up/down arrows)
  - Line editing (left/right, backspace, delete)
  - History search (Ctrl+R)
  - :tags lists the registered commands

Type 'exit' or 'quit' to end the session, or press Ctrl+D.`,
	Run: runConsole,
}

func init() {
	consoleCmd.Flags().String("history", "", "History file path (default: ~/.tsbridge_history)")
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(cmd *cobra.Command, args []string) {
	_, logger, err := loadConfig(cmd)
	if err != nil {
		fatal(cmd, err)
	}
	historyFile, _ := cmd.Flags().GetString("history")
	if historyFile == "" {
		home, _ := os.UserHomeDir()
		historyFile = filepath.Join(home, ".tsbridge_history")
	}

	d, err := demo.New(logger)
	if err != nil {
		fatal(cmd, err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fatal(cmd, fmt.Errorf("initializing readline: %w", err))
	}
	defer rl.Close()

	fmt.Fprintln(os.Stderr, "tsbridge console (type 'exit' to quit, Ctrl+D to exit)")
	consoleLoop(context.Background(), rl, rl.Stdout(), d)
}

type lineReader interface {
	Readline() (string, error)
}

// consoleLoop dispatches one command per line until EOF or exit.
func consoleLoop(ctx context.Context, in lineReader, out io.Writer, d *dispatch.Dispatcher) {
	for {
		line, err := in.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if err != io.EOF {
				fmt.Fprintf(out, "Error reading input: %v\n", err)
			}
			return
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return
		case ":tags":
			fmt.Fprintln(out, strings.Join(d.Registry().Tags(), "\n"))
			continue
		}

		body, err := d.Dispatch(ctx, line)
		if err != nil {
			_, kind := dispatch.ErrorKind(err)
			fmt.Fprintf(out, "error: %s: %v\n", kind, err)
			continue
		}
		fmt.Fprintln(out, string(body))
	}
}
