package virustotal

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/olegrjumin/urlrisk/internal/httpclient"
	"github.com/olegrjumin/urlrisk/internal/logging"
	"github.com/olegrjumin/urlrisk/internal/signal"
	"github.com/olegrjumin/urlrisk/internal/urlnorm"
)

const (
	// SourceName is how VirusTotal is named in reasons
	SourceName = "VirusTotal"

	// DefaultBaseURL is the public v3 API host
	DefaultBaseURL = "https://www.virustotal.com"

	// DefaultTimeout bounds lookups and background submissions
	DefaultTimeout = 8 * time.Second

	// PendingScore is reported for URLs VirusTotal has never seen
	PendingScore = 10
)

// Config holds VirusTotal client settings
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client handles requests to the VirusTotal v3 URL API
type Client struct {
	apiKey  string
	timeout time.Duration
	http    *resty.Client
	logger  *logging.Logger

	// background submissions of unseen URLs
	pending sync.WaitGroup
}

// analysisStats mirrors the per-verdict engine counts
type analysisStats struct {
	Harmless   int `json:"harmless"`
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Undetected int `json:"undetected"`
}

// urlReport represents the response from GET /api/v3/urls/{id}
type urlReport struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats *analysisStats `json:"last_analysis_stats"`
			Stats             *analysisStats `json:"stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// New creates a new VirusTotal client
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
	logger = logger.Named("virustotal")

	return &Client{
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		logger:  logger,
		http: httpclient.New(logger, httpclient.Options{
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
			Secrets: []string{cfg.APIKey},
		}),
	}
}

// Name is the key this source reports under in verdict details
func (c *Client) Name() string {
	return "virusTotal"
}

// Lookup fetches the URL's analysis report and converts engine counts into a score.
// URLs VirusTotal has not seen yet are submitted in the background.
func (c *Client) Lookup(ctx context.Context, u *urlnorm.URL) signal.Result {
	if c.apiKey == "" {
		return signal.Unconfigured(SourceName)
	}
	if u == nil {
		return signal.Failed(SourceName)
	}

	var report urlReport
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-apikey", c.apiKey).
		SetPathParam("id", URLID(u.Raw)).
		SetResult(&report).
		ForceContentType("application/json").
		Get("/api/v3/urls/{id}")
	if err != nil {
		errType, msg := httpclient.ClassifyError(err)
		c.logger.Warn("Lookup failed", "error_type", errType, "error", msg)
		return signal.Failed(SourceName)
	}

	if resp.StatusCode() == http.StatusNotFound {
		c.submit(ctx, u.Raw)
		return signal.New(PendingScore, "URL submitted for analysis - check back later").
			WithStatus(signal.StatusPending)
	}

	if !resp.IsSuccess() {
		c.logger.Warn("Lookup failed", "error_type", httpclient.ErrorHTTP, "status", resp.StatusCode())
		return signal.Failed(SourceName)
	}

	stats := report.Data.Attributes.LastAnalysisStats
	if stats == nil {
		stats = report.Data.Attributes.Stats
	}
	if stats == nil {
		return signal.New(0)
	}

	return scoreStats(*stats)
}

// Wait blocks until every background submission has finished
func (c *Client) Wait() {
	c.pending.Wait()
}

// submit asks VirusTotal to analyse raw without holding up the caller.
// It outlives the request context and only logs its outcome.
func (c *Client) submit(ctx context.Context, raw string) {
	c.pending.Add(1)

	go func() {
		defer c.pending.Done()

		subCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		resp, err := c.http.R().
			SetContext(subCtx).
			SetHeader("x-apikey", c.apiKey).
			SetFormData(map[string]string{"url": raw}).
			Post("/api/v3/urls")
		if err != nil {
			errType, msg := httpclient.ClassifyError(err)
			c.logger.Warn("Submission failed", "error_type", errType, "error", msg)
			return
		}
		if !resp.IsSuccess() {
			c.logger.Warn("Submission rejected", "status", resp.StatusCode())
			return
		}

		c.logger.Debug("URL submitted for analysis")
	}()
}

// scoreStats weights malicious verdicts double against the engines that answered
func scoreStats(s analysisStats) signal.Result {
	total := s.Harmless + s.Malicious + s.Suspicious + s.Undetected
	if total == 0 {
		return signal.New(0)
	}

	threat := float64(s.Malicious*2+s.Suspicious) / float64(total) * 100
	score := int(math.Min(math.Round(threat), 100))

	var reasons []string
	if s.Malicious > 0 {
		reasons = append(reasons, fmt.Sprintf("%d engines detected malware", s.Malicious))
	}
	if s.Suspicious > 0 {
		reasons = append(reasons, fmt.Sprintf("%d engines flagged as suspicious", s.Suspicious))
	}

	return signal.New(score, reasons...)
}

// URLID is the identifier VirusTotal uses for a URL: unpadded URL-safe base64
func URLID(raw string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}
