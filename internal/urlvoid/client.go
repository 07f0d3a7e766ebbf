package urlvoid

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/olegrjumin/urlrisk/internal/httpclient"
	"github.com/olegrjumin/urlrisk/internal/logging"
	"github.com/olegrjumin/urlrisk/internal/signal"
	"github.com/olegrjumin/urlrisk/internal/urlnorm"
)

const (
	// SourceName is how URLVoid is named in reasons
	SourceName = "URLVoid"

	// DefaultBaseURL is the public API host
	DefaultBaseURL = "https://api.urlvoid.com"

	// DefaultTimeout bounds a single lookup
	DefaultTimeout = 8 * time.Second

	// multiplier on the detection percentage
	detectionBoost = 1.5
)

var (
	detectionsTag = regexp.MustCompile(`<detections>(\d+)</detections>`)
	enginesTag    = regexp.MustCompile(`<engines>(\d+)</engines>`)
)

// Config holds URLVoid client settings
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client handles requests to the URLVoid host reputation API
type Client struct {
	apiKey string
	http   *resty.Client
	logger *logging.Logger
}

// New creates a new URLVoid client
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
	logger = logger.Named("urlvoid")

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
	return "urlVoid"
}

// Lookup asks URLVoid how many blocklists flag the URL's host
func (c *Client) Lookup(ctx context.Context, u *urlnorm.URL) signal.Result {
	if c.apiKey == "" {
		return signal.Unconfigured(SourceName)
	}
	if u == nil {
		return signal.Failed(SourceName)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"key":  c.apiKey,
			"host": u.Hostname,
		}).
		Get("/1000/{key}/host/{host}/")
	if err != nil {
		errType, msg := httpclient.ClassifyError(err)
		c.logger.Warn("Lookup failed", "host", u.Hostname, "domain", u.RegisteredDomain(), "error_type", errType, "error", msg)
		return signal.Failed(SourceName)
	}
	if !resp.IsSuccess() {
		c.logger.Warn("Lookup failed", "host", u.Hostname, "domain", u.RegisteredDomain(), "error_type", httpclient.ErrorHTTP, "status", resp.StatusCode())
		return signal.Failed(SourceName)
	}

	return parseReport(resp.String())
}

// parseReport pulls the detection and engine counters out of the XML report
func parseReport(body string) signal.Result {
	detections, okD := firstInt(detectionsTag, body)
	engines, okE := firstInt(enginesTag, body)
	if !okD || !okE || engines == 0 {
		return signal.New(0)
	}

	ratio := float64(detections) / float64(engines) * 100
	score := int(math.Min(math.Round(ratio*detectionBoost), 100))

	if detections == 0 {
		return signal.New(score)
	}
	return signal.New(score, fmt.Sprintf("%d/%d engines flagged domain", detections, engines))
}

func firstInt(re *regexp.Regexp, body string) (int, bool) {
	m := re.FindStringSubmatch(body)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
