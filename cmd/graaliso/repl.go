package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caffeineduck/graaliso/isolate"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newReplCmd(opts *rootOptions) *cobra.Command {
	var historyFile string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive property shell",
		Long: `Start an interactive session against a single isolate.

Commands:
  get KEY          print a property
  set KEY VALUE    set a property (VALUE may contain spaces)
  thread           show the attachment of the current thread
  exit, quit       end the session

Features:
  - Command history (up/down arrows)
  - History search (Ctrl+R)

When stdin is not a terminal, commands are read line by line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			in := cmd.InOrStdin()
			if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
				if historyFile == "" {
					home, _ := os.UserHomeDir()
					historyFile = filepath.Join(home, ".graaliso_history")
				}
				return replInteractive(a, cmd.OutOrStdout(), cmd.ErrOrStderr(), historyFile)
			}
			return replLines(a, in, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&historyFile, "history", "", "History file path (default: ~/.graaliso_history)")
	return cmd
}

func replInteractive(a *app, stdout, stderr io.Writer, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "graaliso> ",
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdout:            stdout,
		Stderr:            stderr,
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(stderr, "graaliso %s REPL (type 'exit' to quit, Ctrl+D to exit)\n", a.cfg.Backend)

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(stdout)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		if !evalLine(a, line, stdout, stderr) {
			return nil
		}
	}
}

func replLines(a *app, in io.Reader, stdout, stderr io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if !evalLine(a, scanner.Text(), stdout, stderr) {
			return nil
		}
	}
	return scanner.Err()
}

// evalLine runs one REPL command. It returns false when the session should end.
func evalLine(a *app, line string, stdout, stderr io.Writer) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return true
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "exit", "quit":
		return false

	case "get":
		if rest == "" {
			fmt.Fprintln(stderr, "usage: get KEY")
			return true
		}
		value, found, err := a.sys.LookupProperty(rest)
		switch {
		case err != nil:
			fmt.Fprintf(stderr, "Error: %v\n", err)
		case !found:
			fmt.Fprintf(stdout, "%s is not set\n", rest)
		default:
			fmt.Fprintln(stdout, value)
		}

	case "set":
		key, value, ok := strings.Cut(rest, " ")
		if !ok || key == "" {
			fmt.Fprintln(stderr, "usage: set KEY VALUE")
			return true
		}
		if !a.sys.SetProperty(key, strings.TrimSpace(value)) {
			fmt.Fprintf(stderr, "Error: set %s failed\n", key)
		}

	case "thread":
		iso, err := isolate.Instance()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return true
		}
		fmt.Fprintln(stdout, iso.Current())

	default:
		fmt.Fprintf(stderr, "unknown command %q (get, set, thread, exit)\n", cmd)
	}
	return true
}
