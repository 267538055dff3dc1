package githost

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/codearmor/internal/analysis"
)

func TestBranchHead(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/o/r/git/ref/heads/main", r.URL.Path)
		fmt.Fprint(w, `{"ref": "refs/heads/main", "object": {"sha": "head-sha", "type": "commit"}}`)
	}))

	sha, err := c.BranchHead(context.Background(), "o", "r", "main")
	require.NoError(t, err)
	assert.Equal(t, "head-sha", sha)
}

func TestCreateBranch(t *testing.T) {
	var gotBody struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/o/r/git/refs", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"ref": "refs/heads/fixes", "object": {"sha": "head-sha"}}`)
	}))

	err := c.CreateBranch(context.Background(), "o", "r", "fixes", "head-sha")
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/fixes", gotBody.Ref)
	assert.Equal(t, "head-sha", gotBody.SHA)
}

func TestFileContent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/o/r/contents/src/db.ts", r.URL.Path)
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		fmt.Fprint(w, contentsResponse("db.query(raw)"))
	}))

	content, sha, err := c.FileContent(context.Background(), "o", "r", "src/db.ts", "main")
	require.NoError(t, err)
	assert.Equal(t, "db.query(raw)", content)
	assert.Equal(t, "blob-sha", sha)
}

func TestFileContentDirectory(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"type": "file", "path": "src/a.ts"}]`)
	}))

	_, _, err := c.FileContent(context.Background(), "o", "r", "src", "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a file")
}

func TestUpdateFile(t *testing.T) {
	var gotBody struct {
		Message string `json:"message"`
		Content string `json:"content"`
		Branch  string `json:"branch"`
		SHA     string `json:"sha"`
	}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/repos/o/r/contents/src/db.ts", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"content": {"sha": "new-sha"}}`)
	}))

	err := c.UpdateFile(context.Background(), "o", "r", "src/db.ts", "fixes", "blob-sha",
		"Security Fix: Resolved 1 vulnerabilities", "db.query(safe, [id])")
	require.NoError(t, err)
	assert.Equal(t, "Security Fix: Resolved 1 vulnerabilities", gotBody.Message)
	assert.Equal(t, "fixes", gotBody.Branch)
	assert.Equal(t, "blob-sha", gotBody.SHA)
	// Content travels base64-encoded.
	assert.NotEmpty(t, gotBody.Content)
}

func TestCreatePull(t *testing.T) {
	var gotBody struct {
		Title string `json:"title"`
		Head  string `json:"head"`
		Base  string `json:"base"`
		Body  string `json:"body"`
	}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/o/r/pulls", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"number": 7, "html_url": "https://github.com/o/r/pull/7"}`)
	}))

	url, err := c.CreatePull(context.Background(), "o", "r", "fixes", "main", "CodeArmor Security Fixes", "body text")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/o/r/pull/7", url)
	assert.Equal(t, "CodeArmor Security Fixes", gotBody.Title)
	assert.Equal(t, "fixes", gotBody.Head)
	assert.Equal(t, "main", gotBody.Base)
}

func TestBranchHeadUpstreamError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.BranchHead(context.Background(), "o", "r", "missing")
	assert.ErrorIs(t, err, analysis.ErrUpstream)
}
