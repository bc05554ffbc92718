package mcp

import (
	"context"
	"errors"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/testevo/pkg/classify"
)

// ClassifyInput is the input schema for the testevo_classify tool.
type ClassifyInput struct {
	Paths []string `json:"paths" jsonschema:"repository-relative file paths to classify"`
}

// ErrEmptyPaths indicates the paths parameter is empty.
var ErrEmptyPaths = errors.New("paths parameter is required and must not be empty")

// Classification pairs a repository path with its classified role.
type Classification struct {
	Path string `json:"path"`
	Role string `json:"role"`
}

// handleClassify processes testevo_classify tool calls.
func handleClassify(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input ClassifyInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if len(input.Paths) == 0 {
		return errorResult(ErrEmptyPaths)
	}

	classifications := make([]Classification, 0, len(input.Paths))
	for _, path := range input.Paths {
		classifications = append(classifications, Classification{
			Path: path,
			Role: classify.PathRole(path).String(),
		})
	}

	return jsonResult(classifications)
}
