package cli

import (
	"context"
	goerrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/procflow/procflow/pkg/dot"
	"github.com/procflow/procflow/pkg/flow/build"
	"github.com/procflow/procflow/pkg/table"
)

// parseCommand creates the parse command that turns notation text back
// into a step table.
func (c *CLI) parseCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "parse [diagram.dot]",
		Short: "Parse notation text back into a step table",
		Long: `Parse notation text back into a step table.

The text is parsed into a process graph, repaired (missing start or end
nodes are added, dangling references reconnected) and flattened into the
table representation. The result is written as JSON, suitable as input
to 'compile' or 'edit'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runParse(cmd.Context(), args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}

func (c *CLI) runParse(ctx context.Context, input, output string) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	g, err := dot.Parse(string(data))
	if err != nil {
		var perr *dot.ParseError
		if goerrors.As(err, &perr) {
			printError("%s:%d: %s", input, perr.Line, perr.Reason)
			printDetail("%s", perr.Fragment)
			return fmt.Errorf("parse %s: %w", input, err)
		}
		return fmt.Errorf("parse %s: %w", input, err)
	}

	warnings := build.Normalize(g)
	for _, w := range warnings {
		printWarning("%s", w.String())
	}

	rows := table.FromGraph(g)
	c.Logger.Debugf("parsed %d nodes into %d rows", g.NodeCount(), len(rows))

	if output == "" {
		return table.WriteJSON(rows, os.Stdout)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	defer f.Close()
	if err := table.WriteJSON(rows, f); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	printSuccess("Parsed %d steps", len(rows))
	printFile(output)
	printNewline()
	printNextStep("Compile", appName+" compile "+output)

	return nil
}
