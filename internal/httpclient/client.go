package httpclient

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/olegrjumin/urlrisk/internal/logging"
)

// DefaultUserAgent is sent on every outbound reputation request
const DefaultUserAgent = "urlrisk/1.0"

// Options configures a resty client for one reputation source
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Transport http.RoundTripper // nil uses a fresh NewTransport()

	// Secrets are scrubbed from anything resty logs
	Secrets []string
}

// New creates a resty client for talking to one external API.
// Retries are disabled; a failed lookup is reported as failed.
func New(logger *logging.Logger, opts Options) *resty.Client {
	transport := opts.Transport
	if transport == nil {
		transport = NewTransport()
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	client := resty.New().
		SetTransport(transport).
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent)

	if logger != nil {
		client.SetLogger(NewHclogAdapter(logger, opts.Secrets...))
	}

	return client
}

// HclogAdapter adapts the service logger to resty's Logger interface
type HclogAdapter struct {
	logger   *logging.Logger
	redactor *strings.Replacer
}

// NewHclogAdapter creates a new adapter that forwards resty messages to logger,
// replacing every non-empty secret with a placeholder
func NewHclogAdapter(logger *logging.Logger, secrets ...string) resty.Logger {
	var pairs []string
	for _, s := range secrets {
		if s != "" {
			pairs = append(pairs, s, redacted)
		}
	}
	return &HclogAdapter{logger: logger, redactor: strings.NewReplacer(pairs...)}
}

const redacted = "[REDACTED]"

// Errorf logs a message at error level.
func (a *HclogAdapter) Errorf(format string, v ...interface{}) {
	a.logger.Error(a.redactor.Replace(fmt.Sprintf(format, v...)))
}

// Warnf logs a message at warning level.
func (a *HclogAdapter) Warnf(format string, v ...interface{}) {
	a.logger.Warn(a.redactor.Replace(fmt.Sprintf(format, v...)))
}

// Debugf logs a message at debug level.
func (a *HclogAdapter) Debugf(format string, v ...interface{}) {
	a.logger.Debug(a.redactor.Replace(fmt.Sprintf(format, v...)))
}
