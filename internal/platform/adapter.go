// Package platform publishes pages to MediaWiki-family wikis and Confluence
// behind one Adapter interface. Transient HTTP failures are retried here;
// callers only see the final outcome.
package platform

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonathan/wiki-generator/internal/types"
)

// UserAgent is sent with every wiki API request.
const UserAgent = "WikiGeneratorBot/1.0 (wikigen)"

// DefaultMaxRetries bounds both transport retries and MediaWiki edit retries.
const DefaultMaxRetries = 3

// Adapter is the set of operations the generator and orchestrator need from a wiki.
type Adapter interface {
	// Login authenticates. false with a nil error means the credentials were rejected.
	Login(ctx context.Context) (bool, error)
	// GetPage returns the current page source. found is false when the page does not exist.
	GetPage(ctx context.Context, title string) (content string, found bool, err error)
	// UploadPage creates or replaces a page.
	UploadPage(ctx context.Context, title, content, summary string) (bool, error)
	// ListPages returns up to limit page titles.
	ListPages(ctx context.Context, limit int) ([]string, error)
	// TestConnection checks API reachability, authentication and edit rights.
	TestConnection(ctx context.Context) ConnectionResult
	// ContentExtension is the local file suffix of content for this platform.
	ContentExtension() string
	// PlatformName is a human-readable platform name.
	PlatformName() string
}

// ConnectionResult is the outcome of TestConnection.
type ConnectionResult struct {
	Success        bool   `json:"success"`
	APIAccessible  bool   `json:"api_accessible"`
	LoginSuccess   bool   `json:"login_success"`
	EditPermission bool   `json:"edit_permission"`
	SiteName       string `json:"site_name,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Options tunes adapter HTTP behaviour. The zero value is usable.
type Options struct {
	// HTTPClient replaces the retrying client. Tests pass httptest clients here.
	HTTPClient *http.Client
	MaxRetries int
	// RetryWaitMin is the smallest transport retry wait.
	RetryWaitMin time.Duration
	// RateLimitStep is the MediaWiki ratelimited wait unit; attempt n waits n*step.
	RateLimitStep time.Duration
	Logger        *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.RetryWaitMin <= 0 {
		o.RetryWaitMin = time.Second
	}
	if o.RateLimitStep <= 0 {
		o.RateLimitStep = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// New selects the adapter for the project's platform.
func New(project *types.Project, opts Options) (Adapter, error) {
	if project == nil {
		return nil, &Error{Message: "project is required"}
	}
	if err := project.Validate(); err != nil {
		return nil, &Error{Message: "invalid project credentials", Cause: err}
	}
	switch project.Platform {
	case types.PlatformConfluence:
		return NewConfluence(*project.Confluence, opts)
	default:
		return NewMediaWiki(*project.MediaWiki, opts)
	}
}
