package platform

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jonathan/wiki-generator/internal/types"
)

// anonymousToken is the CSRF token MediaWiki hands out to sessions without edit rights.
const anonymousToken = `+\`

const maxAllPagesLimit = 500

// MediaWiki talks to the MediaWiki Action API with a bot password.
type MediaWiki struct {
	creds  types.MediaWikiCredentials
	apiURL string
	client *http.Client
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	csrfToken string
}

// NewMediaWiki builds an adapter. A wiki_domain without a scheme is served over https.
func NewMediaWiki(creds types.MediaWikiCredentials, opts Options) (*MediaWiki, error) {
	if creds.WikiDomain == "" {
		return nil, &Error{Message: "wiki_domain is required"}
	}
	opts = opts.withDefaults()

	apiPath := creds.APIPath
	if apiPath == "" {
		apiPath = types.DefaultAPIPath
	}
	base := strings.TrimSuffix(creds.WikiDomain, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}

	return &MediaWiki{
		creds:  creds,
		apiURL: base + apiPath,
		client: newHTTPClient(opts),
		opts:   opts,
		logger: opts.Logger.With("platform", "mediawiki"),
	}, nil
}

// ContentExtension implements Adapter.
func (m *MediaWiki) ContentExtension() string { return types.FormatMediaWiki.Extension() }

// PlatformName implements Adapter.
func (m *MediaWiki) PlatformName() string { return "Miraheze (MediaWiki)" }

type apiErrorBody struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type tokensResponse struct {
	Query struct {
		Tokens struct {
			LoginToken string `json:"logintoken"`
			CSRFToken  string `json:"csrftoken"`
		} `json:"tokens"`
	} `json:"query"`
	Error *apiErrorBody `json:"error"`
}

func (m *MediaWiki) get(ctx context.Context, params url.Values, out any) error {
	params.Set("format", "json")
	req, err := newRequest(ctx, http.MethodGet, m.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	_, err = doJSON(m.client, req, out)
	return err
}

func (m *MediaWiki) post(ctx context.Context, form url.Values, out any) error {
	form.Set("format", "json")
	req, err := newRequest(ctx, http.MethodPost, m.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	_, err = doJSON(m.client, req, out)
	return err
}

// Login performs the two-step bot password login.
func (m *MediaWiki) Login(ctx context.Context) (bool, error) {
	var tokens tokensResponse
	if err := m.get(ctx, url.Values{"action": {"query"}, "meta": {"tokens"}, "type": {"login"}}, &tokens); err != nil {
		return false, err
	}
	loginToken := tokens.Query.Tokens.LoginToken
	if loginToken == "" {
		return false, nil
	}

	var resp struct {
		Login struct {
			Result string `json:"result"`
			Reason string `json:"reason"`
		} `json:"login"`
	}
	err := m.post(ctx, url.Values{
		"action":     {"login"},
		"lgname":     {m.creds.BotUsername},
		"lgpassword": {m.creds.BotPassword},
		"lgtoken":    {loginToken},
	}, &resp)
	if err != nil {
		return false, err
	}
	if resp.Login.Result != "Success" {
		m.logger.Warn("login rejected", "result", resp.Login.Result, "reason", resp.Login.Reason)
		return false, nil
	}

	m.mu.Lock()
	m.csrfToken = ""
	m.mu.Unlock()
	return true, nil
}

// csrf returns the cached edit token, fetching one when needed.
func (m *MediaWiki) csrf(ctx context.Context) (string, error) {
	m.mu.Lock()
	token := m.csrfToken
	m.mu.Unlock()
	if token != "" {
		return token, nil
	}

	var tokens tokensResponse
	if err := m.get(ctx, url.Values{"action": {"query"}, "meta": {"tokens"}}, &tokens); err != nil {
		return "", err
	}
	token = tokens.Query.Tokens.CSRFToken
	if token == "" {
		return "", &Error{Message: "no csrf token in response"}
	}

	m.mu.Lock()
	m.csrfToken = token
	m.mu.Unlock()
	return token, nil
}

func (m *MediaWiki) dropToken() {
	m.mu.Lock()
	m.csrfToken = ""
	m.mu.Unlock()
}

// editBackOff waits step*n before the n-th retry, or not at all when the
// previous attempt only needed a fresh token.
type editBackOff struct {
	step    time.Duration
	attempt int
	now     bool
}

func (b *editBackOff) NextBackOff() time.Duration {
	b.attempt++
	if b.now {
		b.now = false
		return 0
	}
	return time.Duration(b.attempt) * b.step
}

func (b *editBackOff) Reset() { b.attempt = 0 }

// UploadPage edits the page as a bot. ratelimited responses are retried with
// a linear wait, badtoken responses with a fresh CSRF token, up to MaxRetries attempts.
func (m *MediaWiki) UploadPage(ctx context.Context, title, content, summary string) (bool, error) {
	if summary == "" {
		summary = "Bot: Automated content update"
	}

	policy := &editBackOff{step: m.opts.RateLimitStep}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(m.opts.MaxRetries-1)), ctx)

	op := func() error {
		token, err := m.csrf(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}

		var resp struct {
			Edit struct {
				Result string `json:"result"`
			} `json:"edit"`
			Error *apiErrorBody `json:"error"`
		}
		err = m.post(ctx, url.Values{
			"action":  {"edit"},
			"title":   {title},
			"text":    {content},
			"summary": {summary},
			"token":   {token},
			"bot":     {"1"},
		}, &resp)
		if err != nil {
			return backoff.Permanent(err)
		}

		switch {
		case resp.Edit.Result == "Success":
			return nil
		case resp.Error == nil:
			return backoff.Permanent(&APIError{Code: "unexpected", Info: "edit result " + strconv.Quote(resp.Edit.Result)})
		case resp.Error.Code == "ratelimited":
			m.logger.Warn("edit rate limited", "page", title, "attempt", policy.attempt+1)
			return &APIError{Code: resp.Error.Code, Info: resp.Error.Info}
		case resp.Error.Code == "badtoken":
			m.dropToken()
			policy.now = true
			return &APIError{Code: resp.Error.Code, Info: resp.Error.Info}
		default:
			return backoff.Permanent(&APIError{Code: resp.Error.Code, Info: resp.Error.Info})
		}
	}

	if err := backoff.Retry(op, b); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		return false, err
	}
	return true, nil
}

// GetPage reads the main slot of the latest revision.
func (m *MediaWiki) GetPage(ctx context.Context, title string) (string, bool, error) {
	var resp struct {
		Query struct {
			Pages map[string]struct {
				Missing   *string `json:"missing"`
				Revisions []struct {
					Slots struct {
						Main struct {
							Content *string `json:"*"`
						} `json:"main"`
					} `json:"slots"`
				} `json:"revisions"`
			} `json:"pages"`
		} `json:"query"`
	}
	err := m.get(ctx, url.Values{
		"action":  {"query"},
		"titles":  {title},
		"prop":    {"revisions"},
		"rvprop":  {"content"},
		"rvslots": {"main"},
	}, &resp)
	if err != nil {
		return "", false, err
	}

	for id, page := range resp.Query.Pages {
		if id == "-1" || page.Missing != nil {
			return "", false, nil
		}
		if len(page.Revisions) > 0 && page.Revisions[0].Slots.Main.Content != nil {
			return *page.Revisions[0].Slots.Main.Content, true, nil
		}
	}
	return "", false, nil
}

// ListPages walks list=allpages in the main namespace until limit titles are collected.
func (m *MediaWiki) ListPages(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = maxAllPagesLimit
	}
	params := url.Values{
		"action":      {"query"},
		"list":        {"allpages"},
		"apnamespace": {"0"},
		"aplimit":     {strconv.Itoa(min(limit, maxAllPagesLimit))},
	}

	titles := make([]string, 0)
	for {
		var resp struct {
			Continue *struct {
				APContinue string `json:"apcontinue"`
			} `json:"continue"`
			Query struct {
				AllPages []struct {
					Title string `json:"title"`
				} `json:"allpages"`
			} `json:"query"`
		}
		if err := m.get(ctx, params, &resp); err != nil {
			if len(titles) > 0 {
				m.logger.Warn("listing stopped early", "error", err, "collected", len(titles))
				break
			}
			return nil, err
		}
		for _, p := range resp.Query.AllPages {
			titles = append(titles, p.Title)
		}
		if resp.Continue == nil || resp.Continue.APContinue == "" || len(titles) >= limit {
			break
		}
		params.Set("apcontinue", resp.Continue.APContinue)
	}

	if len(titles) > limit {
		titles = titles[:limit]
	}
	return titles, nil
}

// TestConnection checks siteinfo, then login, then whether the session gets a real edit token.
func (m *MediaWiki) TestConnection(ctx context.Context) ConnectionResult {
	var result ConnectionResult

	var info struct {
		Query *struct {
			General struct {
				SiteName string `json:"sitename"`
			} `json:"general"`
		} `json:"query"`
	}
	if err := m.get(ctx, url.Values{"action": {"query"}, "meta": {"siteinfo"}}, &info); err != nil {
		result.Error = "Could not connect to wiki: " + err.Error()
		return result
	}
	if info.Query == nil {
		result.Error = "Unexpected API response"
		return result
	}
	result.APIAccessible = true
	result.SiteName = info.Query.General.SiteName
	if result.SiteName == "" {
		result.SiteName = "Unknown"
	}

	ok, err := m.Login(ctx)
	if err != nil || !ok {
		result.Error = "Authentication failed - check username and password"
		return result
	}
	result.LoginSuccess = true

	token, err := m.csrf(ctx)
	switch {
	case err != nil:
		// Token lookup failing after a good login leaves edit rights unknown.
		result.Success = true
	case token != anonymousToken:
		result.EditPermission = true
		result.Success = true
	default:
		result.Error = "Bot has no edit permission"
	}
	return result
}
