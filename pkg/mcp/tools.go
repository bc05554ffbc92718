package mcp

import (
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Names of the exposed tools.
const (
	ToolNameAnalyze  = "testevo_analyze"
	ToolNameClassify = "testevo_classify"
	ToolNameInspect  = "testevo_inspect"
)

// ToolOutput is the structured output wrapper shared by all tools. The SDK
// derives the output schema from it.
type ToolOutput struct {
	Data any `json:"data"`
}

func textContent(text string) []mcpsdk.Content {
	return []mcpsdk.Content{&mcpsdk.TextContent{Text: text}}
}

// errorResult reports a tool-level failure to the client. The error is
// carried in the result, not returned, so the protocol call itself succeeds.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{Content: textContent(err.Error()), IsError: true}, ToolOutput{}, nil
}

// jsonResult returns value both as indented JSON text content and as the
// structured output.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("marshal result: %w", err))
	}

	return &mcpsdk.CallToolResult{Content: textContent(string(data))}, ToolOutput{Data: value}, nil
}
