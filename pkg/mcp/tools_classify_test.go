package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestHandleClassify_EmptyPaths(t *testing.T) {
	t.Parallel()

	input := ClassifyInput{}

	result, _, err := handleClassify(context.Background(), &mcpsdk.CallToolRequest{}, input)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)
	assert.Contains(t, extractText(result), "paths parameter is required")
}

func TestHandleClassify_Roles(t *testing.T) {
	t.Parallel()

	input := ClassifyInput{
		Paths: []string{
			"src/app.py",
			"tests/test_app.py",
			"utils_test.py",
			"setup.py",
			"README.md",
		},
	}

	result, output, err := handleClassify(context.Background(), &mcpsdk.CallToolRequest{}, input)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.False(t, result.IsError)

	classifications, ok := output.Data.([]Classification)
	require.True(t, ok)

	expected := []Classification{
		{Path: "src/app.py", Role: "production"},
		{Path: "tests/test_app.py", Role: "test"},
		{Path: "utils_test.py", Role: "test"},
		{Path: "setup.py", Role: "production"},
		{Path: "README.md", Role: "ignored"},
	}
	assert.Equal(t, expected, classifications)
}

func TestHandleClassify_PreservesOrder(t *testing.T) {
	t.Parallel()

	input := ClassifyInput{
		Paths: []string{"b.py", "a.py", "b.py"},
	}

	_, output, err := handleClassify(context.Background(), &mcpsdk.CallToolRequest{}, input)
	require.NoError(t, err)

	classifications, ok := output.Data.([]Classification)
	require.True(t, ok)
	require.Len(t, classifications, 3)
	assert.Equal(t, "b.py", classifications[0].Path)
	assert.Equal(t, "a.py", classifications[1].Path)
	assert.Equal(t, "b.py", classifications[2].Path)
}
