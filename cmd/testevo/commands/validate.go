package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/testevo/pkg/report"
)

// exitCodeValidationFailure is the exit code for reports that violate the
// schema. Operational failures exit 1 through the usual error path.
const exitCodeValidationFailure = 2

// NewValidateCommand creates the validate subcommand.
func NewValidateCommand() *cobra.Command {
	var colorize, nocolor bool

	cmd := &cobra.Command{
		Use:   "validate <report.json|->",
		Short: "Validate a report against the report schema",
		Long: `Validate a JSON report against the canonical report schema.

Examples:
  testevo validate report.json
  testevo validate - < report.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return runValidate(cobraCmd, args[0], colorize, nocolor)
		},
	}

	cmd.Flags().BoolVar(&colorize, "color", false, "force colored output")
	cmd.Flags().BoolVar(&nocolor, "no-color", false, "disable colored output")

	return cmd
}

func runValidate(cobraCmd *cobra.Command, inputPath string, colorize, nocolor bool) error {
	if nocolor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	} else if colorize {
		color.NoColor = false //nolint:reassign // intentional override of library global
	}

	document, inputLabel, err := loadReportInput(cobraCmd.InOrStdin(), inputPath)
	if err != nil {
		return err
	}

	issues, err := report.Validate(document)
	if err != nil {
		return err
	}

	out := cobraCmd.OutOrStdout()

	if len(issues) == 0 {
		color.New(color.FgGreen).Fprintf(out, "report is valid (%s)\n", inputLabel)

		return nil
	}

	color.New(color.FgRed).Fprintf(out, "report validation failed (%s)\n", inputLabel)

	for _, issue := range issues {
		color.New(color.FgRed).Fprintf(out, "  - %s\n", issue)
	}

	os.Exit(exitCodeValidationFailure)

	return nil
}

func loadReportInput(stdin io.Reader, inputPath string) ([]byte, string, error) {
	if inputPath == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}

		return data, "stdin", nil
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, "", fmt.Errorf("read report %s: %w", inputPath, err)
	}

	return data, inputPath, nil
}
