package safebrowsing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/olegrjumin/urlrisk/internal/httpclient"
	"github.com/olegrjumin/urlrisk/internal/logging"
	"github.com/olegrjumin/urlrisk/internal/signal"
	"github.com/olegrjumin/urlrisk/internal/urlnorm"
)

const (
	// SourceName is how Safe Browsing is named in reasons
	SourceName = "Safe Browsing"

	// DefaultBaseURL is the public v4 API host
	DefaultBaseURL = "https://safebrowsing.googleapis.com"

	// DefaultTimeout bounds a single lookup
	DefaultTimeout = 8 * time.Second

	// MatchScore is reported for any threat match; the API has no engine count
	MatchScore = 90

	clientID      = "urlrisk"
	clientVersion = "1.0"
)

// ThreatTypes are the lists every lookup is matched against
var ThreatTypes = []string{
	"MALWARE",
	"SOCIAL_ENGINEERING",
	"UNWANTED_SOFTWARE",
	"POTENTIALLY_HARMFUL_APPLICATION",
}

// Config holds Safe Browsing client settings
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client handles requests to the Safe Browsing v4 threatMatches API
type Client struct {
	apiKey string
	http   *resty.Client
	logger *logging.Logger
}

// FindRequest represents the threatMatches:find request body
type FindRequest struct {
	Client     ClientInfo `json:"client"`
	ThreatInfo ThreatInfo `json:"threatInfo"`
}

// ClientInfo identifies the caller to the API
type ClientInfo struct {
	ClientID      string `json:"clientId"`
	ClientVersion string `json:"clientVersion"`
}

// ThreatInfo describes what to match against
type ThreatInfo struct {
	ThreatTypes      []string      `json:"threatTypes"`
	PlatformTypes    []string      `json:"platformTypes"`
	ThreatEntryTypes []string      `json:"threatEntryTypes"`
	ThreatEntries    []ThreatEntry `json:"threatEntries"`
}

// ThreatEntry is a single URL to check
type ThreatEntry struct {
	URL string `json:"url"`
}

// FindResponse represents the threatMatches:find response
type FindResponse struct {
	Matches []ThreatMatch `json:"matches"`
}

// ThreatMatch is one list hit
type ThreatMatch struct {
	ThreatType   string      `json:"threatType"`
	PlatformType string      `json:"platformType"`
	Threat       ThreatEntry `json:"threat"`
}

// New creates a new Safe Browsing client
func New(cfg Config, logger *logging.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("safebrowsing")

	return &Client{
		apiKey: cfg.APIKey,
		logger: logger,
		http: httpclient.New(logger, httpclient.Options{
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
			Secrets: []string{cfg.APIKey},
		}),
	}
}

// Name is the key this source reports under in verdict details
func (c *Client) Name() string {
	return "safeBrowsing"
}

// Lookup matches the URL against the Safe Browsing threat lists
func (c *Client) Lookup(ctx context.Context, u *urlnorm.URL) signal.Result {
	if c.apiKey == "" {
		return signal.Unconfigured(SourceName)
	}
	if u == nil {
		return signal.Failed(SourceName)
	}

	var found FindResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(newFindRequest(u.Raw)).
		SetResult(&found).
		ForceContentType("application/json").
		Post("/v4/threatMatches:find")
	if err != nil {
		errType, msg := httpclient.ClassifyError(err)
		c.logger.Warn("Lookup failed", "error_type", errType, "error", msg)
		return signal.Failed(SourceName)
	}
	if !resp.IsSuccess() {
		c.logger.Warn("Lookup failed", "error_type", httpclient.ErrorHTTP, "status", resp.StatusCode())
		return signal.Failed(SourceName)
	}

	return scoreMatches(found.Matches)
}

func newFindRequest(raw string) FindRequest {
	return FindRequest{
		Client: ClientInfo{
			ClientID:      clientID,
			ClientVersion: clientVersion,
		},
		ThreatInfo: ThreatInfo{
			ThreatTypes:      ThreatTypes,
			PlatformTypes:    []string{"ANY_PLATFORM"},
			ThreatEntryTypes: []string{"URL"},
			ThreatEntries:    []ThreatEntry{{URL: raw}},
		},
	}
}

// scoreMatches reports one reason per distinct threat type
func scoreMatches(matches []ThreatMatch) signal.Result {
	if len(matches) == 0 {
		return signal.New(0)
	}

	seen := make(map[string]bool, len(matches))
	var reasons []string
	for _, m := range matches {
		if m.ThreatType == "" || seen[m.ThreatType] {
			continue
		}
		seen[m.ThreatType] = true
		reasons = append(reasons, fmt.Sprintf("Google flagged as: %s", m.ThreatType))
	}

	return signal.New(MatchScore, reasons...)
}
