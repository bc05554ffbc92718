package forge_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/testevo/pkg/forge"
)

func TestParseRepoURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		want  forge.RepoRef
	}{
		{"plain https", "https://github.com/owner/repo", forge.RepoRef{Owner: "owner", Name: "repo"}},
		{"dot git suffix", "https://github.com/owner/repo.git", forge.RepoRef{Owner: "owner", Name: "repo"}},
		{"trailing slash", "https://github.com/owner/repo/", forge.RepoRef{Owner: "owner", Name: "repo"}},
		{"extra path", "https://github.com/owner/repo/pull/12", forge.RepoRef{Owner: "owner", Name: "repo"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := forge.ParseRepoURL(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseRepoURLInvalid(t *testing.T) {
	t.Parallel()

	for _, input := range []string{
		"https://gitlab.com/owner/repo",
		"https://github.com/owner",
		"https://github.com/",
		"",
	} {
		_, err := forge.ParseRepoURL(input)
		require.ErrorIs(t, err, forge.ErrNotGitHubURL, input)
	}
}

func TestIsRepoURL(t *testing.T) {
	t.Parallel()

	assert.True(t, forge.IsRepoURL("https://github.com/owner/repo"))
	assert.False(t, forge.IsRepoURL("/home/user/repo"))
	assert.False(t, forge.IsRepoURL("./relative/github.com/looking/path"))
}

func TestPullRequestDate(t *testing.T) {
	t.Parallel()

	created := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	merged := time.Date(2023, 5, 9, 0, 0, 0, 0, time.UTC)

	open := forge.PullRequest{CreatedAt: created}
	assert.Equal(t, created, open.Date())

	done := forge.PullRequest{CreatedAt: created, MergedAt: &merged}
	assert.Equal(t, merged, done.Date())
}

func TestPullRequestsFetchesFiles(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()

	mux.HandleFunc("/repos/o/r/pulls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all", r.URL.Query().Get("state"))
		fmt.Fprint(w, `[
			{"number": 1, "created_at": "2023-01-02T10:00:00Z", "merged_at": "2023-01-05T10:00:00Z"},
			{"number": 2, "created_at": "2023-02-02T10:00:00Z"}
		]`)
	})
	mux.HandleFunc("/repos/o/r/pulls/1/files", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[
			{"filename": "src/app.py", "additions": 10, "deletions": 2},
			{"filename": "tests/test_app.py", "additions": 20, "deletions": 0}
		]`)
	})
	mux.HandleFunc("/repos/o/r/pulls/2/files", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[]`)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := forge.NewClient("")
	require.NoError(t, client.SetBaseURL(server.URL))

	prs, err := client.PullRequests(t.Context(), forge.RepoRef{Owner: "o", Name: "r"})
	require.NoError(t, err)
	require.Len(t, prs, 2)

	assert.Equal(t, 1, prs[0].Number)
	require.NotNil(t, prs[0].MergedAt)
	assert.Equal(t, time.Date(2023, 1, 5, 10, 0, 0, 0, time.UTC), prs[0].Date())
	require.Len(t, prs[0].Files, 2)
	assert.Equal(t, "src/app.py", prs[0].Files[0].Path)
	assert.Equal(t, 10, prs[0].Files[0].Additions)
	assert.Equal(t, 2, prs[0].Files[0].Deletions)

	assert.Equal(t, 2, prs[1].Number)
	assert.Nil(t, prs[1].MergedAt)
	assert.Equal(t, time.Date(2023, 2, 2, 10, 0, 0, 0, time.UTC), prs[1].Date())
	assert.Empty(t, prs[1].Files)
}

func TestIssueCountPaginates(t *testing.T) {
	t.Parallel()

	var server *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r/issues", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"number": 3}]`)

			return
		}

		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/o/r/issues?page=2&state=all>; rel="next"`, server.URL))
		fmt.Fprint(w, `[{"number": 1}, {"number": 2}]`)
	})

	server = httptest.NewServer(mux)
	defer server.Close()

	client := forge.NewClient("")
	require.NoError(t, client.SetBaseURL(server.URL))

	count, err := client.IssueCount(t.Context(), forge.RepoRef{Owner: "o", Name: "r"})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestIssueCountError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	client := forge.NewClient("")
	require.NoError(t, client.SetBaseURL(server.URL))

	_, err := client.IssueCount(t.Context(), forge.RepoRef{Owner: "o", Name: "r"})
	require.Error(t, err)
}
