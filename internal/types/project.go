package types

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Platform identifies the wiki backend a project publishes to.
type Platform string

const (
	// PlatformMediaWiki covers MediaWiki-family wikis (Miraheze, self-hosted).
	PlatformMediaWiki Platform = "mediawiki"
	// PlatformConfluence is Atlassian Confluence Cloud.
	PlatformConfluence Platform = "confluence"
)

// DefaultAPIPath is the MediaWiki Action API path used when none is configured.
const DefaultAPIPath = "/w/api.php"

// NormalizePlatform maps aliases ("miraheze", "") to a Platform.
func NormalizePlatform(s string) Platform {
	if strings.EqualFold(strings.TrimSpace(s), string(PlatformConfluence)) {
		return PlatformConfluence
	}
	return PlatformMediaWiki
}

// Format returns the content format generated for the platform.
func (p Platform) Format() Format {
	if p == PlatformConfluence {
		return FormatConfluence
	}
	return FormatMediaWiki
}

// MediaWikiCredentials are bot-password credentials for the MediaWiki Action API.
type MediaWikiCredentials struct {
	WikiDomain  string `json:"wiki_domain" validate:"required"`
	BotUsername string `json:"bot_username" validate:"required"`
	BotPassword string `json:"bot_password" validate:"required"`
	APIPath     string `json:"api_path,omitempty"`
}

// ConfluenceCredentials are API-token credentials for Confluence Cloud.
type ConfluenceCredentials struct {
	BaseURL   string `json:"base_url" validate:"required,url"`
	SpaceKey  string `json:"space_key" validate:"required"`
	UserEmail string `json:"user_email" validate:"required,email"`
	APIToken  string `json:"api_token" validate:"required"`
}

// Project is a wiki project as stored in its config.json.
// Credentials are kept in plaintext.
type Project struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name" validate:"required"`
	Platform  Platform  `json:"platform"`
	CreatedAt time.Time `json:"created_at"`

	MediaWiki  *MediaWikiCredentials  `json:"mediawiki,omitempty"`
	Confluence *ConfluenceCredentials `json:"confluence,omitempty"`
}

// Validate checks that the credentials for the project's platform are complete.
func (p *Project) Validate() error {
	validate := validator.New()
	if err := validate.Struct(p); err != nil {
		return err
	}
	switch p.Platform {
	case PlatformConfluence:
		if p.Confluence == nil {
			return &MissingCredentialsError{Platform: p.Platform}
		}
		return validate.Struct(p.Confluence)
	default:
		if p.MediaWiki == nil {
			return &MissingCredentialsError{Platform: p.Platform}
		}
		return validate.Struct(p.MediaWiki)
	}
}

// SpaceKey returns the Confluence space key, or "" for other platforms.
func (p *Project) SpaceKey() string {
	if p.Confluence != nil {
		return p.Confluence.SpaceKey
	}
	return ""
}

// MissingCredentialsError indicates a project has no credentials block for its platform.
type MissingCredentialsError struct {
	Platform Platform
}

func (e *MissingCredentialsError) Error() string {
	return "missing credentials for platform " + string(e.Platform)
}
