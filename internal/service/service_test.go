package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegrjumin/urlrisk/internal/logging"
	"github.com/olegrjumin/urlrisk/internal/metrics"
	"github.com/olegrjumin/urlrisk/internal/signal"
	"github.com/olegrjumin/urlrisk/internal/urlnorm"
)

// fakeSource answers with a canned result, or waits for its context when hang is set
type fakeSource struct {
	key     string
	display string
	result  signal.Result
	hang    bool
	calls   int32
	gotURL  atomic.Pointer[urlnorm.URL]
}

func (f *fakeSource) Name() string { return f.key }

func (f *fakeSource) Lookup(ctx context.Context, u *urlnorm.URL) signal.Result {
	atomic.AddInt32(&f.calls, 1)
	f.gotURL.Store(u)
	if f.hang {
		<-ctx.Done()
		return signal.Failed(f.display)
	}
	if u == nil {
		return signal.Failed(f.display)
	}
	return f.result
}

func unconfiguredSources() []Source {
	return []Source{
		&fakeSource{key: SourceVirusTotal, result: signal.Unconfigured("VirusTotal")},
		&fakeSource{key: SourceURLVoid, result: signal.Unconfigured("URLVoid")},
		&fakeSource{key: SourceSafeBrowsing, result: signal.Unconfigured("Safe Browsing")},
	}
}

func newTestService(sources []Source, timeout time.Duration) *Service {
	return New(sources, logging.NewNop(), Options{AdapterTimeout: timeout})
}

func TestScanIPHostIsDilutedToSafe(t *testing.T) {
	svc := newTestService(unconfiguredSources(), time.Second)

	v := svc.Scan(context.Background(), "http://192.168.1.5/login")

	assert.Equal(t, 50, v.Details[SourceHeuristic].Score)
	assert.Equal(t, 8, v.Score)
	assert.Equal(t, 92, v.SafetyScore)
	assert.Equal(t, signal.Safe, v.Verdict)
	assert.Contains(t, v.Reasons, "IP address instead of domain")
	assert.Contains(t, v.Reasons, "VirusTotal API not configured")
	assert.NotEmpty(t, v.ScanID)
}

func TestScanHeuristicOnlyCannotReachDanger(t *testing.T) {
	svc := newTestService(unconfiguredSources(), time.Second)

	v := svc.Scan(context.Background(), "https://signin-appleid.com-reset-password.security-help.center/login")

	heur := v.Details[SourceHeuristic].Score
	assert.Equal(t, 65, heur)
	assert.Equal(t, 10, v.Score)
	assert.NotEqual(t, signal.Danger, v.Verdict)

	// even a maxed-out heuristic is capped by its weight
	assert.LessOrEqual(t, int(DefaultWeights.Heuristic*100+0.5), signal.URLThresholds.Suspicious)
}

func TestScanMatchesHeuristicOnlyWhenSourcesUnconfigured(t *testing.T) {
	svc := newTestService(unconfiguredSources(), time.Second)

	for _, raw := range []string{
		"http://192.168.1.5/login",
		"https://free-prizes.tk",
		"https://paypal-secure-login.example.com",
		"https://www.google.com",
	} {
		v := svc.Scan(context.Background(), raw)
		quick := svc.QuickCheck(raw)
		want := Combine(DefaultWeights, map[string]signal.Result{SourceHeuristic: quick.Details[SourceHeuristic]})
		assert.Equal(t, want.Score, v.Score, raw)
	}
}

func TestScanCombinesSources(t *testing.T) {
	sources := []Source{
		&fakeSource{key: SourceVirusTotal, result: signal.New(80, "40 engines detected malware")},
		&fakeSource{key: SourceURLVoid, result: signal.New(10, "2/30 engines flagged domain")},
		&fakeSource{key: SourceSafeBrowsing, result: signal.New(90, "Google flagged as: MALWARE")},
	}
	svc := newTestService(sources, time.Second)

	v := svc.Scan(context.Background(), "https://www.google.com")

	// 0.5*80 + 0.05*10 + 0.3*90 + 0.15*0 = 67.5
	assert.Equal(t, 68, v.Score)
	assert.Equal(t, signal.Danger, v.Verdict)
	assert.Equal(t, []string{
		"40 engines detected malware",
		"2/30 engines flagged domain",
		"Google flagged as: MALWARE",
	}, v.Reasons)
	assert.Len(t, v.Details, 4)
}

func TestScanIsIdempotent(t *testing.T) {
	sources := []Source{
		&fakeSource{key: SourceVirusTotal, result: signal.New(30, "3 engines detected malware")},
	}
	svc := newTestService(sources, time.Second)

	first := svc.Scan(context.Background(), "https://paypal-secure-login.example.com")
	second := svc.Scan(context.Background(), "https://paypal-secure-login.example.com")

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Reasons, second.Reasons)
	assert.Equal(t, first.Details, second.Details)
	assert.NotEqual(t, first.ScanID, second.ScanID)
}

func TestScanSlowSourceFailsWithinTimeout(t *testing.T) {
	slow := &fakeSource{key: SourceVirusTotal, display: "VirusTotal", hang: true}
	fast := &fakeSource{key: SourceSafeBrowsing, result: signal.New(90, "Google flagged as: MALWARE")}
	svc := newTestService([]Source{slow, fast}, 100*time.Millisecond)

	start := time.Now()
	v := svc.Scan(context.Background(), "https://example.com")

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 0, v.Details[SourceVirusTotal].Score)
	assert.Equal(t, []string{"VirusTotal scan failed"}, v.Details[SourceVirusTotal].Reasons)
	assert.Equal(t, 90, v.Details[SourceSafeBrowsing].Score)
	assert.Equal(t, 27, v.Score)
}

func TestScanCancelledContext(t *testing.T) {
	slow := &fakeSource{key: SourceVirusTotal, display: "VirusTotal", hang: true}
	svc := newTestService([]Source{slow}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	v := svc.Scan(ctx, "https://example.com")

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, signal.StatusFailed, v.Details[SourceVirusTotal].Status)
}

func TestScanMalformedURL(t *testing.T) {
	src := &fakeSource{key: SourceVirusTotal, display: "VirusTotal", result: signal.New(100)}
	svc := newTestService([]Source{src}, time.Second)

	v := svc.Scan(context.Background(), "not a url")

	assert.Nil(t, src.gotURL.Load())
	assert.Equal(t, []string{"VirusTotal scan failed"}, v.Details[SourceVirusTotal].Reasons)
	assert.Equal(t, 30, v.Details[SourceHeuristic].Score)
}

func TestScanCallsEachSourceOnce(t *testing.T) {
	sources := unconfiguredSources()
	svc := newTestService(sources, time.Second)

	svc.Scan(context.Background(), "https://example.com")

	for _, s := range sources {
		assert.Equal(t, int32(1), atomic.LoadInt32(&s.(*fakeSource).calls))
		require.NotNil(t, s.(*fakeSource).gotURL.Load())
		assert.Equal(t, "example.com", s.(*fakeSource).gotURL.Load().Hostname)
	}
}

func TestScanRecordsMetrics(t *testing.T) {
	rec := metrics.New()
	svc := New(unconfiguredSources(), logging.NewNop(), Options{Metrics: rec})

	svc.Scan(context.Background(), "https://example.com")

	mfs, err := rec.Registry().Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				counts[mf.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, counts["urlrisk_scans_total"])
	assert.Equal(t, 4.0, counts["urlrisk_source_results_total"])
}

func TestQuickCheck(t *testing.T) {
	svc := newTestService(nil, time.Second)

	v := svc.QuickCheck("http://192.168.1.5/login")

	assert.Equal(t, 50, v.Score)
	assert.Equal(t, 50, v.SafetyScore)
	assert.Equal(t, signal.Suspicious, v.Verdict)
	assert.Equal(t, []string{"Non-HTTPS protocol", "IP address instead of domain"}, v.Reasons)
	assert.Len(t, v.Details, 1)
}

func TestNewDefaults(t *testing.T) {
	svc := New(nil, nil, Options{})
	assert.Equal(t, DefaultWeights, svc.weights)
	assert.Equal(t, DefaultAdapterTimeout, svc.timeout)
}
