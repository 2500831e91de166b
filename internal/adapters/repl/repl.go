package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"freelance-billing/internal/adapters/cli"
	"freelance-billing/internal/app"
)

const help = `Commands are the same as the one-shot CLI, plus:
  help        show this text
  exit, quit  leave the shell
Arguments containing spaces can be wrapped in double quotes.`

// Run starts an interactive shell that reads one command per line from in and
// dispatches it through the CLI command set. It returns when in is exhausted or
// the user types exit.
func Run(ctx context.Context, svc app.ApplicationService, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Freelance Billing")
	fmt.Fprintln(out, "Type 'help' for commands, 'exit' to quit.")
	fmt.Fprintln(out, strings.Repeat("-", 50))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		tokens, err := splitArgs(scanner.Text())
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		if len(tokens) == 0 {
			continue
		}

		switch strings.ToLower(tokens[0]) {
		case "exit", "quit":
			return nil
		case "help", "?":
			fmt.Fprintln(out, help)
			fmt.Fprintln(out)
			_ = cli.Run(ctx, svc, []string{"help"}, out)
			continue
		}

		if err := cli.Run(ctx, svc, tokens, out); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// splitArgs splits a command line on whitespace, keeping double-quoted runs together.
func splitArgs(line string) ([]string, error) {
	var (
		tokens  []string
		current strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case !quoted && (r == ' ' || r == '\t'):
			if started {
				tokens = append(tokens, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote")
	}
	if started {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}
