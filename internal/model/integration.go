package model

import (
	"strings"
	"time"
	"unicode"
)

// Platform is the messaging platform an integration belongs to.
type Platform string

const (
	PlatformInstagram Platform = "INSTAGRAM"
	PlatformWhatsApp  Platform = "WHATSAPP"
	PlatformFacebook  Platform = "FACEBOOK"
)

// ParsePlatform maps a route segment ("instagram", "whatsapp", "facebook")
// to a Platform.
func ParsePlatform(s string) (Platform, bool) {
	switch s {
	case "instagram", "INSTAGRAM":
		return PlatformInstagram, true
	case "whatsapp", "WHATSAPP":
		return PlatformWhatsApp, true
	case "facebook", "FACEBOOK":
		return PlatformFacebook, true
	}
	return "", false
}

// ExpectedObject is the top-level "object" tag webhook payloads carry for the platform.
func (p Platform) ExpectedObject() string {
	switch p {
	case PlatformInstagram:
		return "instagram"
	case PlatformFacebook:
		return "page"
	case PlatformWhatsApp:
		return "whatsapp_business_account"
	}
	return ""
}

// Integration is a stored platform credential.
type Integration struct {
	ID                int64      `json:"id"`
	UserID            int64      `json:"user_id"`
	Platform          Platform   `json:"platform"`
	AccessToken       string     `json:"-"` // never expose tokens in API
	PlatformAccountID *string    `json:"platform_account_id,omitempty"`
	PageName          *string    `json:"page_name,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (i Integration) AccountID() string {
	if i.PlatformAccountID == nil {
		return ""
	}
	return *i.PlatformAccountID
}

// SanitizeToken strips every whitespace and control rune from a token.
// Tokens pasted from dashboards routinely carry stray newlines and
// zero-width characters that the Graph API rejects as malformed.
func SanitizeToken(token string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, token)
}
