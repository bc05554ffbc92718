package mcp

import (
	"context"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/testevo/pkg/analyzers/analyze"
	"github.com/Sumatoshi-tech/testevo/pkg/classify"
	"github.com/Sumatoshi-tech/testevo/pkg/pysrc"
)

// defaultInspectFilename is the assumed repository path for inline code. The
// test_ prefix classifies the code as a test file, which is what the
// analyzers act on.
const defaultInspectFilename = "test_code.py"

// MaxCodeInputBytes is the maximum allowed size for inline code input (1 MB).
const MaxCodeInputBytes = 1 << 20

// InspectInput is the input schema for the testevo_inspect tool.
type InspectInput struct {
	Analyzers []string `json:"analyzers,omitempty" jsonschema:"optional list of analyzer names to run (default: all)"`
	Code      string   `json:"code"                jsonschema:"Python source code to inspect"`
	Filename  string   `json:"filename,omitempty"  jsonschema:"repository path the code would occupy (default: test_code.py)"`
}

// Sentinel errors for inline code validation.
var (
	// ErrEmptyCode indicates the code parameter is empty.
	ErrEmptyCode = errors.New("code parameter is required and must not be empty")
	// ErrCodeTooLarge indicates the code input exceeds the size limit.
	ErrCodeTooLarge = errors.New("code input exceeds maximum size")
)

// validateCodeInput checks inline code input constraints.
func validateCodeInput(code string) error {
	if code == "" {
		return ErrEmptyCode
	}

	if len(code) > MaxCodeInputBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(code), MaxCodeInputBytes)
	}

	return nil
}

// handleInspect processes testevo_inspect tool calls.
func handleInspect(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input InspectInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateCodeInput(input.Code)
	if err != nil {
		return errorResult(err)
	}

	filename := input.Filename
	if filename == "" {
		filename = defaultInspectFilename
	}

	parsed, err := pysrc.NewParser().Parse(ctx, filename, []byte(input.Code))
	if err != nil {
		return errorResult(fmt.Errorf("parse code: %w", err))
	}

	snapshot := &analyze.Snapshot{
		Files: []analyze.SourceFile{{
			Path:   filename,
			Role:   classify.PathRole(filename),
			Parsed: parsed,
		}},
	}

	factory := analyze.NewFactory(defaultAnalyzers())

	keys := input.Analyzers
	if len(keys) == 0 {
		keys = factory.Names()
	}

	analyses, err := factory.RunAnalyzers(ctx, snapshot, keys)
	if err != nil {
		return errorResult(fmt.Errorf("run analyzers: %w", err))
	}

	return jsonResult(analyses)
}
