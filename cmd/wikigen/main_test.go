package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/wiki-generator/internal/config"
	"github.com/jonathan/wiki-generator/internal/llm"
	"github.com/jonathan/wiki-generator/internal/platform"
	"github.com/jonathan/wiki-generator/internal/project"
	"github.com/jonathan/wiki-generator/internal/types"
)

type fakeWiki struct {
	mu      sync.Mutex
	loginOK bool
	pages   map[string]string
}

func (w *fakeWiki) Login(context.Context) (bool, error) { return w.loginOK, nil }
func (w *fakeWiki) GetPage(_ context.Context, title string) (string, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.pages[title]
	return c, ok, nil
}
func (w *fakeWiki) UploadPage(_ context.Context, title, content, _ string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pages[title] = content
	return true, nil
}
func (w *fakeWiki) ListPages(_ context.Context, limit int) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	titles := make([]string, 0, len(w.pages))
	for t := range w.pages {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return titles[:min(limit, len(titles))], nil
}
func (w *fakeWiki) TestConnection(context.Context) platform.ConnectionResult {
	return platform.ConnectionResult{Success: w.loginOK, APIAccessible: true, LoginSuccess: w.loginOK, EditPermission: w.loginOK}
}
func (w *fakeWiki) ContentExtension() string { return ".wiki" }
func (w *fakeWiki) PlatformName() string     { return "fake" }

type harness struct {
	dir   string
	wiki  *fakeWiki
	calls int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("WIKIGEN_PROVIDER", "")
	return &harness{dir: t.TempDir(), wiki: &fakeWiki{loginOK: true, pages: map[string]string{}}}
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{
		newClient: func(context.Context, *config.Config) (llm.Client, error) {
			return llm.ClientFunc(func(_ context.Context, req llm.Request) (string, error) {
				h.calls++
				return "Article body citing [https://operator.example.com the operator].", nil
			}), nil
		},
		newAdapter: func(*types.Project) (platform.Adapter, error) { return h.wiki, nil },
	}
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--projects-dir", h.dir}, args...))
	err := root.Execute()
	return out.String(), err
}

// seed creates a project with two pages and one unlimited link.
func (h *harness) seed(t *testing.T) string {
	t.Helper()
	store := project.NewStore(h.dir)
	p, err := store.Create(&types.Project{
		Name:      "Help Wiki",
		MediaWiki: &types.MediaWikiCredentials{WikiDomain: "help.miraheze.org", BotUsername: "Bot@gen", BotPassword: "pw"},
	})
	require.NoError(t, err)
	require.NoError(t, store.SaveStructure(p.ID, &types.StructureConfig{
		WikiName:        "Help Wiki",
		DefaultCategory: types.DefaultCategory,
		Pages:           []types.PageSpec{{Title: "Bet Stop"}, {Title: "ACMA"}},
	}))
	require.NoError(t, store.SaveLinkBank(p.ID, &types.LinkBankConfig{
		Links: []types.LinkEntry{{URL: "https://operator.example.com", Anchors: []string{"the operator"}}},
	}))
	return p.ID
}

func TestProjectCommands(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "project", "create", "--name", "Help Wiki", "--platform", "miraheze",
		"--wiki-domain", "help.miraheze.org", "--bot-username", "Bot@gen", "--bot-password", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Created project")

	projects, err := project.NewStore(h.dir).List()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	id := projects[0].ID
	assert.Equal(t, types.PlatformMediaWiki, projects[0].Platform)
	assert.Equal(t, types.DefaultAPIPath, projects[0].MediaWiki.APIPath)

	out, err = h.run(t, "project", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Help Wiki")

	out, err = h.run(t, "project", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, `"wiki_domain": "help.miraheze.org"`)

	_, err = h.run(t, "project", "show", "missing")
	assert.ErrorIs(t, err, project.ErrNotFound)
}

func TestProjectCreate_MissingCredentials(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "project", "create", "--name", "Space", "--platform", "confluence")
	assert.Error(t, err)

	_, err = h.run(t, "project", "create", "--platform", "mediawiki")
	assert.ErrorContains(t, err, `"name" not set`)
}

func TestGenerateAndReview(t *testing.T) {
	h := newHarness(t)
	id := h.seed(t)

	out, err := h.run(t, "generate", id, "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "[1/2] generating Bet Stop")
	assert.Contains(t, out, "[2/2] generating ACMA")
	assert.Contains(t, out, "Succeeded: 2/2")
	assert.Equal(t, 2, h.calls)

	_, err = os.Stat(filepath.Join(h.dir, id, "generated", "Bet_Stop.wiki"))
	require.NoError(t, err)

	out, err = h.run(t, "list", id)
	require.NoError(t, err)
	assert.Contains(t, out, "ACMA.wiki")
	assert.Contains(t, out, "Bet_Stop.wiki")

	out, err = h.run(t, "review", id)
	require.NoError(t, err)
	assert.Contains(t, out, "LINK BANK PLACEMENT")
	assert.Contains(t, out, "placed 2 / target ∞")
}

func TestGenerate_UnknownPageIsReported(t *testing.T) {
	h := newHarness(t)
	id := h.seed(t)

	out, err := h.run(t, "generate", id, "--page", "Bet Stop", "--page", "Nowhere")
	assert.ErrorIs(t, err, errBatchIncomplete)
	assert.ErrorContains(t, err, "1 of 2 pages failed")
	assert.Contains(t, out, "Succeeded: 1/2")
	assert.Contains(t, out, "✗ Nowhere")
}

func TestGenerate_Errors(t *testing.T) {
	h := newHarness(t)
	id := h.seed(t)

	_, err := h.run(t, "generate", id)
	assert.ErrorContains(t, err, "no pages selected")

	_, err = h.run(t, "generate")
	assert.Error(t, err)

	_, err = h.run(t, "edit", id, "--mode", "full", "--all")
	assert.ErrorContains(t, err, "--mode must be")
}

func TestGenerate_MissingAPIKey(t *testing.T) {
	h := newHarness(t)
	id := h.seed(t)
	t.Setenv("GEMINI_API_KEY", "")

	root := newRootCmd(&app{})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"--projects-dir", h.dir, "generate", id, "--all"})
	assert.ErrorContains(t, root.Execute(), "API key is required")
}

func TestEdit_LocalAndLivePages(t *testing.T) {
	h := newHarness(t)
	id := h.seed(t)
	h.wiki.pages["Live Only"] = "Existing live text"

	_, err := h.run(t, "generate", id, "--page", "Bet Stop")
	require.NoError(t, err)
	h.calls = 0

	out, err := h.run(t, "edit", id, "--mode", "add_operator", "--page", "Bet Stop", "--page", "ACMA", "--live-page", "Live Only")
	assert.ErrorIs(t, err, errBatchIncomplete)
	// ACMA was never generated, so there is nothing to edit.
	assert.Contains(t, out, "Succeeded: 2/3")
	assert.Contains(t, out, "✗ ACMA")
	assert.Equal(t, 2, h.calls)

	content, err := project.NewStore(h.dir).ReadPage(id, "Live_Only.wiki")
	require.NoError(t, err)
	assert.Contains(t, content, "operator.example.com")
}

func TestUpload(t *testing.T) {
	h := newHarness(t)
	id := h.seed(t)
	_, err := h.run(t, "generate", id, "--all")
	require.NoError(t, err)

	out, err := h.run(t, "upload", id, "--delay", "0s", "--file", "ACMA.wiki")
	require.NoError(t, err)
	assert.Contains(t, out, "Succeeded: 1/1")
	assert.Contains(t, h.wiki.pages, "ACMA")
	assert.NotContains(t, h.wiki.pages, "Bet Stop")

	out, err = h.run(t, "upload", id, "--delay", "0s")
	require.NoError(t, err)
	assert.Contains(t, out, "Succeeded: 2/2")

	_, err = h.run(t, "upload", id, "--delay", "0s", "--file", "Missing.wiki")
	assert.ErrorIs(t, err, errBatchIncomplete)
	assert.Contains(t, h.wiki.pages, "Bet Stop")
}

func TestUpload_Directory(t *testing.T) {
	h := newHarness(t)
	id := h.seed(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Self_Exclusion.wiki"), []byte("body"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	out, err := h.run(t, "upload", id, "--dir", dir, "--delay", "0s")
	require.NoError(t, err)
	assert.Contains(t, out, "[1/1] uploading Self Exclusion")
	assert.Equal(t, "body", h.wiki.pages["Self Exclusion"])
}

func TestUpload_LoginRejected(t *testing.T) {
	h := newHarness(t)
	id := h.seed(t)
	h.wiki.loginOK = false

	_, err := h.run(t, "upload", id, "--delay", "0s")
	assert.Error(t, err)
}

func TestLivePagesAndConnection(t *testing.T) {
	h := newHarness(t)
	id := h.seed(t)
	h.wiki.pages["Bet Stop"] = "x"
	h.wiki.pages["ACMA"] = "y"

	out, err := h.run(t, "live-pages", id, "--limit", "1")
	require.NoError(t, err)
	assert.Equal(t, "ACMA\n", out)

	out, err = h.run(t, "test-connection", id)
	require.NoError(t, err)
	assert.Contains(t, out, "FAKE CONNECTION")

	h.wiki.loginOK = false
	_, err = h.run(t, "test-connection", id)
	assert.ErrorContains(t, err, "connection test failed")
}

func TestConfigFile(t *testing.T) {
	h := newHarness(t)

	bad := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"provider": "anthropic"}`), 0o644))
	_, err := h.run(t, "--config", bad, "project", "list")
	assert.ErrorContains(t, err, "config error")

	_, err = h.run(t, "--config", filepath.Join(t.TempDir(), "missing.json"), "project", "list")
	assert.ErrorContains(t, err, "failed to load config")

	// The flag wins over the file.
	id := h.seed(t)
	other := t.TempDir()
	good := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"projects_dir": "`+other+`", "upload_delay": "1s"}`), 0o644))
	out, err := h.run(t, "--config", good, "project", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
}
