package project

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/wiki-generator/internal/types"
)

func mediaWikiProject(name string) *types.Project {
	return &types.Project{
		Name:      name,
		Platform:  "miraheze",
		MediaWiki: &types.MediaWikiCredentials{WikiDomain: "gambling.miraheze.org", BotUsername: "Bot@gen", BotPassword: "pw"},
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	s := NewStore(t.TempDir())

	p, err := s.Create(mediaWikiProject("Gambling Help"))
	require.NoError(t, err)
	assert.Len(t, p.ID, 8)
	assert.Equal(t, types.PlatformMediaWiki, p.Platform)
	assert.Equal(t, types.DefaultAPIPath, p.MediaWiki.APIPath)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := s.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, *p.MediaWiki, *got.MediaWiki)
	assert.FileExists(t, filepath.Join(s.Dir(p.ID), "config.json"))
}

func TestStore_CreateRejectsIncompleteCredentials(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.Create(&types.Project{Name: "x", Platform: types.PlatformConfluence})
	var missing *types.MissingCredentialsError
	assert.ErrorAs(t, err, &missing)
}

func TestStore_GetNotFound(t *testing.T) {
	s := NewStore(t.TempDir())
	for _, id := range []string{"deadbeef", "", "..", "a/b"} {
		_, err := s.Get(id)
		assert.ErrorIs(t, err, ErrNotFound, id)
	}
}

func TestStore_GetRejectsSchemaViolations(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, os.MkdirAll(s.Dir("broken"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir("broken"), "config.json"), []byte(`{"platform":"mediawiki"}`), 0o644))

	_, err := s.Get("broken")
	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "config does not match schema", storeErr.Message)
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := NewStore(t.TempDir())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"old", "mid", "new"} {
		at := base.Add(time.Duration(i) * time.Hour)
		s.now = func() time.Time { return at }
		_, err := s.Create(mediaWikiProject(name))
		require.NoError(t, err)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(s.Root(), "stray"), 0o755))

	projects, err := s.List()
	require.NoError(t, err)
	require.Len(t, projects, 3)
	assert.Equal(t, "new", projects[0].Name)
	assert.Equal(t, "old", projects[2].Name)
}

func TestStore_ListMissingRoot(t *testing.T) {
	projects, err := NewStore(filepath.Join(t.TempDir(), "absent")).List()
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestStore_StructureRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	p, err := s.Create(mediaWikiProject("w"))
	require.NoError(t, err)

	cfg, err := s.Structure(p.ID)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	want := &types.StructureConfig{
		WikiName:        "Gambling Help",
		DefaultCategory: "Support",
		Style:           types.StyleConfig{Tone: "neutral", Include: []string{"Infobox"}},
		Pages: []types.PageSpec{
			{Title: "BetStop", KeyPoints: []string{"Self-exclusion"}, FormatHint: "Include a table"},
			{Title: "ACMA", RelatedPages: []string{"BetStop"}},
		},
	}
	require.NoError(t, s.SaveStructure(p.ID, want))

	got, err := s.Structure(p.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_SaveStructureValidates(t *testing.T) {
	s := NewStore(t.TempDir())
	err := s.SaveStructure("abc", &types.StructureConfig{Pages: []types.PageSpec{{Title: "A"}, {Title: "a"}}})
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(s.Dir("abc"), "pages.yaml"))
}

func TestStore_LinkBanks(t *testing.T) {
	s := NewStore(t.TempDir())

	empty, err := s.LinkBank("abc")
	require.NoError(t, err)
	assert.Empty(t, empty.Links)

	links := &types.LinkBankConfig{Links: []types.LinkEntry{
		{URL: "https://example.com/a", Anchors: []string{"a"}, Count: 2},
		{URL: "https://example.com/b"},
	}}
	require.NoError(t, s.SaveLinkBank("abc", links))
	got, err := s.LinkBank("abc")
	require.NoError(t, err)
	assert.Equal(t, links, got)

	masking := &types.MaskingBankConfig{MaskingLinks: []types.MaskingLink{{URL: "https://en.wikipedia.org/wiki/Gambling", Anchors: []string{"gambling"}}}}
	require.NoError(t, s.SaveMaskingBank("abc", masking))
	gotMasking, err := s.MaskingBank("abc")
	require.NoError(t, err)
	assert.Equal(t, masking, gotMasking)

	err = s.SaveLinkBank("abc", &types.LinkBankConfig{Links: []types.LinkEntry{{URL: "https://x.example"}, {URL: "https://x.example"}}})
	assert.Error(t, err)
}
