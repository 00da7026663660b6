package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/wiki-generator/internal/types"
)

// fakeWiki is a minimal MediaWiki Action API.
type fakeWiki struct {
	mu          sync.Mutex
	editReplies []string // error codes to return before succeeding; "" means success
	edits       []map[string]string
	csrfCalls   int
	csrfToken   string
	password    string
	pages       map[string]string
	allPages    []string
}

func (f *fakeWiki) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "json", r.Form.Get("format"))
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		f.mu.Lock()
		defer f.mu.Unlock()

		write := func(v any) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(v)
		}

		switch {
		case r.Form.Get("meta") == "siteinfo":
			write(map[string]any{"query": map[string]any{"general": map[string]any{"sitename": "Test Wiki"}}})
		case r.Form.Get("meta") == "tokens" && r.Form.Get("type") == "login":
			write(map[string]any{"query": map[string]any{"tokens": map[string]any{"logintoken": "login+\\"}}})
		case r.Form.Get("meta") == "tokens":
			f.csrfCalls++
			write(map[string]any{"query": map[string]any{"tokens": map[string]any{"csrftoken": f.csrfToken}}})
		case r.Form.Get("action") == "login":
			result := "Failed"
			if r.Form.Get("lgpassword") == f.password && r.Form.Get("lgtoken") == "login+\\" {
				result = "Success"
			}
			write(map[string]any{"login": map[string]any{"result": result}})
		case r.Form.Get("action") == "edit":
			f.edits = append(f.edits, map[string]string{
				"title": r.Form.Get("title"), "text": r.Form.Get("text"), "summary": r.Form.Get("summary"),
				"token": r.Form.Get("token"), "bot": r.Form.Get("bot"),
			})
			code := ""
			if len(f.editReplies) > 0 {
				code, f.editReplies = f.editReplies[0], f.editReplies[1:]
			}
			if code == "" {
				write(map[string]any{"edit": map[string]any{"result": "Success"}})
				return
			}
			write(map[string]any{"error": map[string]any{"code": code, "info": code + " info"}})
		case r.Form.Get("prop") == "revisions":
			content, ok := f.pages[r.Form.Get("titles")]
			if !ok {
				write(map[string]any{"query": map[string]any{"pages": map[string]any{"-1": map[string]any{"missing": ""}}}})
				return
			}
			write(map[string]any{"query": map[string]any{"pages": map[string]any{
				"7": map[string]any{"revisions": []any{map[string]any{"slots": map[string]any{"main": map[string]any{"*": content}}}}},
			}}})
		case r.Form.Get("list") == "allpages":
			start := 0
			if c := r.Form.Get("apcontinue"); c != "" {
				for i, p := range f.allPages {
					if p == c {
						start = i
					}
				}
			}
			end := min(start+2, len(f.allPages))
			batch := make([]any, 0)
			for _, p := range f.allPages[start:end] {
				batch = append(batch, map[string]any{"title": p})
			}
			resp := map[string]any{"query": map[string]any{"allpages": batch}}
			if end < len(f.allPages) {
				resp["continue"] = map[string]any{"apcontinue": f.allPages[end]}
			}
			write(resp)
		default:
			http.Error(w, "unexpected request", http.StatusBadRequest)
		}
	})
}

func newTestMediaWiki(t *testing.T, f *fakeWiki) *MediaWiki {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	mw, err := NewMediaWiki(types.MediaWikiCredentials{
		WikiDomain:  srv.URL,
		BotUsername: "Bot@wikigen",
		BotPassword: "secret",
		APIPath:     "/w/api.php",
	}, Options{RateLimitStep: time.Millisecond, RetryWaitMin: time.Millisecond})
	require.NoError(t, err)
	return mw
}

func TestNewMediaWiki_APIURL(t *testing.T) {
	mw, err := NewMediaWiki(types.MediaWikiCredentials{WikiDomain: "example.miraheze.org"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "https://example.miraheze.org/w/api.php", mw.apiURL)
	assert.Equal(t, ".wiki", mw.ContentExtension())

	_, err = NewMediaWiki(types.MediaWikiCredentials{}, Options{})
	assert.Error(t, err)
}

func TestMediaWiki_Login(t *testing.T) {
	f := &fakeWiki{password: "secret", csrfToken: "tok+\\"}
	mw := newTestMediaWiki(t, f)

	ok, err := mw.Login(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	f.password = "other"
	ok, err = mw.Login(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMediaWiki_UploadPage(t *testing.T) {
	f := &fakeWiki{password: "secret", csrfToken: "tok+\\"}
	mw := newTestMediaWiki(t, f)

	ok, err := mw.UploadPage(context.Background(), "BetStop", "== Intro ==", "")
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, f.edits, 1)
	assert.Equal(t, map[string]string{
		"title": "BetStop", "text": "== Intro ==", "summary": "Bot: Automated content update",
		"token": "tok+\\", "bot": "1",
	}, f.edits[0])

	// The token is cached between edits.
	_, err = mw.UploadPage(context.Background(), "ACMA", "x", "s")
	require.NoError(t, err)
	assert.Equal(t, 1, f.csrfCalls)
}

func TestMediaWiki_UploadPageRetries(t *testing.T) {
	tests := []struct {
		name      string
		replies   []string
		wantOK    bool
		wantEdits int
		wantCSRF  int
		wantCode  string
	}{
		{"rate limited then success", []string{"ratelimited"}, true, 2, 1, ""},
		{"bad token refreshes token", []string{"badtoken"}, true, 2, 2, ""},
		{"rate limited until retries run out", []string{"ratelimited", "ratelimited", "ratelimited", "ratelimited"}, false, 3, 1, "ratelimited"},
		{"other errors are final", []string{"protectedpage"}, false, 1, 1, "protectedpage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeWiki{csrfToken: "tok+\\", editReplies: tt.replies}
			mw := newTestMediaWiki(t, f)

			ok, err := mw.UploadPage(context.Background(), "Page", "text", "")
			assert.Equal(t, tt.wantOK, ok)
			assert.Len(t, f.edits, tt.wantEdits)
			assert.Equal(t, tt.wantCSRF, f.csrfCalls)
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}

func TestMediaWiki_GetPage(t *testing.T) {
	f := &fakeWiki{pages: map[string]string{"BetStop": "'''BetStop''' is..."}}
	mw := newTestMediaWiki(t, f)

	content, found, err := mw.GetPage(context.Background(), "BetStop")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "'''BetStop''' is...", content)

	_, found, err = mw.GetPage(context.Background(), "Missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMediaWiki_ListPages(t *testing.T) {
	f := &fakeWiki{allPages: []string{"A", "B", "C", "D", "E"}}
	mw := newTestMediaWiki(t, f)

	all, err := mw.ListPages(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, all)

	some, err := mw.ListPages(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, some)
}

func TestMediaWiki_TestConnection(t *testing.T) {
	tests := []struct {
		name     string
		password string
		token    string
		want     ConnectionResult
	}{
		{"full access", "secret", "tok+\\", ConnectionResult{Success: true, APIAccessible: true, LoginSuccess: true, EditPermission: true, SiteName: "Test Wiki"}},
		{"anonymous token", "secret", anonymousToken, ConnectionResult{APIAccessible: true, LoginSuccess: true, SiteName: "Test Wiki", Error: "Bot has no edit permission"}},
		{"bad password", "wrong", "tok+\\", ConnectionResult{APIAccessible: true, SiteName: "Test Wiki", Error: "Authentication failed - check username and password"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeWiki{password: "secret", csrfToken: tt.token}
			mw := newTestMediaWiki(t, f)
			mw.creds.BotPassword = tt.password
			assert.Equal(t, tt.want, mw.TestConnection(context.Background()))
		})
	}
}

func TestMediaWiki_TestConnectionUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	mw, err := NewMediaWiki(types.MediaWikiCredentials{WikiDomain: srv.URL}, Options{MaxRetries: 1, RetryWaitMin: time.Millisecond})
	require.NoError(t, err)
	res := mw.TestConnection(context.Background())
	assert.False(t, res.APIAccessible)
	assert.Contains(t, res.Error, "Could not connect")
}
