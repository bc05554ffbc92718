package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/testevo/pkg/report"
)

const (
	renderCmdUse      = "render <report.json>"
	renderCmdShort    = "Render a saved report as an HTML chart page"
	renderArgCount    = 1
	renderOutputFlag  = "output"
	renderOutputShort = "o"
	renderOutputUsage = "output path for the HTML page"
)

// ErrNoOutputPath is returned when the --output flag is not set.
var ErrNoOutputPath = errors.New("output path is required (use --output)")

// NewRenderCommand creates the render subcommand.
func NewRenderCommand() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   renderCmdUse,
		Short: renderCmdShort,
		Args:  cobra.ExactArgs(renderArgCount),
		RunE: func(_ *cobra.Command, args []string) error {
			if outputPath == "" {
				return ErrNoOutputPath
			}

			return runRender(args[0], outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, renderOutputFlag, renderOutputShort, "", renderOutputUsage)

	return cmd
}

func runRender(reportPath, outputPath string) error {
	data, err := os.ReadFile(reportPath)
	if err != nil {
		return fmt.Errorf("read report %s: %w", reportPath, err)
	}

	rep, err := report.Parse(data)
	if err != nil {
		return err
	}

	return writeHTMLReport(outputPath, rep)
}
