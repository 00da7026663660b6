package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonathan/wiki-generator/internal/types"
)

const maxContentPageSize = 200

// Confluence talks to the Confluence Cloud REST API with an API token.
type Confluence struct {
	creds  types.ConfluenceCredentials
	apiURL string
	client *http.Client
	logger *slog.Logger
}

// NewConfluence builds an adapter for one space.
func NewConfluence(creds types.ConfluenceCredentials, opts Options) (*Confluence, error) {
	if creds.BaseURL == "" || creds.SpaceKey == "" {
		return nil, &Error{Message: "base_url and space_key are required"}
	}
	opts = opts.withDefaults()

	return &Confluence{
		creds:  creds,
		apiURL: strings.TrimSuffix(creds.BaseURL, "/") + "/rest/api",
		client: newHTTPClient(opts),
		logger: opts.Logger.With("platform", "confluence", "space", creds.SpaceKey),
	}, nil
}

// ContentExtension implements Adapter.
func (c *Confluence) ContentExtension() string { return types.FormatConfluence.Extension() }

// PlatformName implements Adapter.
func (c *Confluence) PlatformName() string { return "Confluence" }

func (c *Confluence) do(ctx context.Context, method, path string, query url.Values, payload, out any) (int, error) {
	target := c.apiURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, &Error{Message: "failed to encode request", Cause: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := newRequest(ctx, method, target, body)
	if err != nil {
		return 0, err
	}
	req.SetBasicAuth(c.creds.UserEmail, c.creds.APIToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return doJSON(c.client, req, out)
}

type spaceResponse struct {
	Results []struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"results"`
}

func (c *Confluence) space(ctx context.Context) (*spaceResponse, int, error) {
	var resp spaceResponse
	status, err := c.do(ctx, http.MethodGet, "/space", url.Values{"spaceKey": {c.creds.SpaceKey}}, nil, &resp)
	return &resp, status, err
}

// Login verifies the credentials can read the configured space.
func (c *Confluence) Login(ctx context.Context) (bool, error) {
	_, status, err := c.space(ctx)
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		c.logger.Warn("space check rejected", "status", statusErr.StatusCode)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status == http.StatusOK, nil
}

type contentPage struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Version struct {
		Number int `json:"number"`
	} `json:"version"`
	Body struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
}

func (c *Confluence) pageByTitle(ctx context.Context, title string) (*contentPage, error) {
	var resp struct {
		Results []contentPage `json:"results"`
	}
	_, err := c.do(ctx, http.MethodGet, "/content", url.Values{
		"spaceKey": {c.creds.SpaceKey},
		"title":    {title},
		"type":     {"page"},
		"expand":   {"version,body.storage"},
	}, nil, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

// GetPage returns the storage-format body of the page.
func (c *Confluence) GetPage(ctx context.Context, title string) (string, bool, error) {
	page, err := c.pageByTitle(ctx, title)
	if err != nil {
		return "", false, err
	}
	if page == nil {
		return "", false, nil
	}
	return page.Body.Storage.Value, true, nil
}

// UploadPage updates the page with the next version number, or creates it.
func (c *Confluence) UploadPage(ctx context.Context, title, content, summary string) (bool, error) {
	if summary == "" {
		summary = "Updated via wikigen"
	}
	existing, err := c.pageByTitle(ctx, title)
	if err != nil {
		return false, err
	}

	payload := map[string]any{
		"type":  "page",
		"title": title,
		"space": map[string]string{"key": c.creds.SpaceKey},
		"body": map[string]any{
			"storage": map[string]string{"value": content, "representation": "storage"},
		},
	}

	var status int
	if existing != nil {
		version := existing.Version.Number
		if version == 0 {
			version = 1
		}
		payload["version"] = map[string]any{"number": version + 1, "message": summary}
		status, err = c.do(ctx, http.MethodPut, "/content/"+url.PathEscape(existing.ID), nil, payload, nil)
	} else {
		status, err = c.do(ctx, http.MethodPost, "/content", nil, payload, nil)
	}
	if err != nil {
		return false, err
	}
	return status == http.StatusOK || status == http.StatusCreated, nil
}

// ListPages pages through the space's content.
func (c *Confluence) ListPages(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 500
	}
	titles := make([]string, 0)
	start := 0
	for {
		var resp struct {
			Results []struct {
				Title string `json:"title"`
			} `json:"results"`
			Links struct {
				Next string `json:"next"`
			} `json:"_links"`
		}
		_, err := c.do(ctx, http.MethodGet, "/content", url.Values{
			"spaceKey": {c.creds.SpaceKey},
			"type":     {"page"},
			"limit":    {strconv.Itoa(min(limit-len(titles), maxContentPageSize))},
			"start":    {strconv.Itoa(start)},
		}, nil, &resp)
		if err != nil {
			if len(titles) > 0 {
				c.logger.Warn("listing stopped early", "error", err, "collected", len(titles))
				break
			}
			return nil, err
		}
		for _, r := range resp.Results {
			titles = append(titles, r.Title)
		}
		if len(titles) >= limit || resp.Links.Next == "" || len(resp.Results) == 0 {
			break
		}
		start += len(resp.Results)
	}
	if len(titles) > limit {
		titles = titles[:limit]
	}
	return titles, nil
}

// TestConnection checks access to the space. Reading the space is taken as edit access.
func (c *Confluence) TestConnection(ctx context.Context) ConnectionResult {
	var result ConnectionResult

	resp, _, err := c.space(ctx)
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized:
		result.Error = "Authentication failed - check email and API token"
		return result
	case err != nil:
		result.Error = "Could not connect to Confluence: " + err.Error()
		return result
	}

	result.APIAccessible = true
	if len(resp.Results) == 0 {
		result.Error = "Space not found"
		return result
	}
	result.SiteName = resp.Results[0].Name
	result.LoginSuccess = true
	result.EditPermission = true
	result.Success = true
	return result
}
