package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/procflow/procflow/pkg/pipeline"
)

// compileCommand creates the compile command that turns a step table into
// diagram artifacts.
func (c *CLI) compileCommand() *cobra.Command {
	var (
		output     string
		formatsStr string
		noCache    bool
	)
	opts := pipeline.Options{}
	opts.SetLayoutDefaults()

	cmd := &cobra.Command{
		Use:   "compile [table.json|table.csv]",
		Short: "Compile a step table into diagram artifacts",
		Long: `Compile a step table into diagram artifacts.

The table is read from a JSON or CSV file, repaired into a well-formed
process graph, laid out and rendered in the requested formats:

  dot      graph notation text (round-trips through 'parse')
  mermaid  flowchart markup
  bpmn     process-interchange XML
  svg      rendered image
  visual   node/edge model as JSON

Layout and artifact results are cached locally for faster re-runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Formats = parseFormats(formatsStr)
			return c.runCompile(cmd.Context(), args[0], opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file or base path (default: derived from input)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): dot (default), mermaid, bpmn, svg, visual (comma-separated)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "recompute even when cached")
	cmd.Flags().Float64Var(&opts.CanvasWidth, "width", opts.CanvasWidth, "canvas width")
	cmd.Flags().Float64Var(&opts.VerticalGap, "gap", opts.VerticalGap, "vertical distance between levels")
	cmd.Flags().Float64Var(&opts.TopMargin, "top", opts.TopMargin, "top margin")

	return cmd
}

func (c *CLI) runCompile(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	rows, err := loadRows(input)
	if err != nil {
		return fmt.Errorf("load table %s: %w", input, err)
	}
	opts.Rows = rows
	opts.Logger = c.Logger

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Compiling process...")
	spinner.Start()

	res, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Compile failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	for _, w := range res.Warnings {
		printWarning("%s", w.String())
	}

	base := basePath(output, input)
	multi := len(opts.Formats) > 1
	written := make([]string, 0, len(opts.Formats))
	for _, format := range opts.Formats {
		path := artifactPath(base, format, multi)
		if err := writeFileAtomic(path, res.Artifacts[format]); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}

	printSuccess("Compile complete")
	for _, path := range written {
		printFile(path)
	}
	printStats(res.Stats.NodeCount, res.Stats.EdgeCount, res.CacheInfo.ArtifactHit)
	printNewline()
	printNextStep("Edit interactively", appName+" edit "+input)

	return nil
}
