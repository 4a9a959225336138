package engine

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Kodiak/services/detector/config"
	"github.com/AleutianAI/Kodiak/services/detector/datatypes"
	"github.com/AleutianAI/Kodiak/services/detector/knowledge"
)

const (
	chrome90UA  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/90.0.4430.212 Safari/537.36"
	chrome120UA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	firefox88UA = "Mozilla/5.0 (X11; Linux x86_64; rv:88.0) Gecko/20100101 Firefox/88.0"
	safari131UA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/13.1 Safari/605.1.15"
	safari140UA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0 Safari/605.1.15"
)

func newDetector(t *testing.T) *Detector {
	t.Helper()
	kb, err := knowledge.Load()
	require.NoError(t, err)
	return New(config.Default(), kb, nil)
}

func headers(kv ...string) http.Header {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

func TestDetectChromeWithAcceptHeader(t *testing.T) {
	d := newDetector(t)
	caps := d.Detect(context.Background(), headers(
		"user-agent", chrome90UA,
		"accept", "image/avif,image/webp,image/apng,*/*;q=0.8",
	))

	assert.Equal(t, "chrome", caps.Browser.Name)
	assert.Equal(t, 90.0, caps.Browser.Version)
	assert.Equal(t, datatypes.SourceUserAgent, caps.Browser.Source)

	// Formats merge by their own priority namespace: the Accept header
	// outranks the user-agent inference.
	assert.Equal(t, datatypes.SourceAcceptHeader, caps.Formats.Source)
	assert.True(t, caps.Formats.AVIF)
	assert.True(t, caps.Formats.WebP)

	fd := d.OptimalFormat(caps, "jpeg", "")
	assert.Equal(t, "avif", fd.Format)
	assert.Equal(t, datatypes.TierAcceptHeader, fd.Provenance.DecisionSource)
	assert.Equal(t, 100, fd.Provenance.ConfiguredPriority)
}

func TestDetectFirefox88UserAgentOnly(t *testing.T) {
	d := newDetector(t)
	caps := d.Detect(context.Background(), headers("user-agent", firefox88UA))

	assert.Equal(t, "firefox", caps.Browser.Name)
	assert.True(t, caps.Formats.WebP)
	assert.False(t, caps.Formats.AVIF, "firefox avif arrived in 93")

	fd := d.OptimalFormat(caps, "jpeg", "")
	assert.Equal(t, "webp", fd.Format)
	assert.Equal(t, datatypes.TierUserAgent, fd.Provenance.DecisionSource)
}

func TestDetectSafariVersionBoundary(t *testing.T) {
	d := newDetector(t)

	old := d.Detect(context.Background(), headers("user-agent", safari131UA))
	assert.False(t, old.Formats.WebP, "safari webp arrived in 14")
	fd := d.OptimalFormat(old, "jpeg", "")
	assert.Equal(t, "jpeg2000", fd.Format, "pre-webp safari still decodes jpeg2000")

	modern := d.Detect(context.Background(), headers("user-agent", safari140UA))
	assert.True(t, modern.Formats.WebP)
	fd = d.OptimalFormat(modern, "jpeg", "")
	assert.Equal(t, "webp", fd.Format)
}

func TestDetectEmptyRequest(t *testing.T) {
	d := newDetector(t)
	caps := d.Detect(context.Background(), http.Header{})

	assert.Equal(t, "unknown", caps.Browser.Name)
	assert.Equal(t, datatypes.SourceUnknown, caps.Browser.Source)
	assert.Equal(t, datatypes.NetworkUnknown, caps.Network.Tier)
	assert.Equal(t, datatypes.DeviceUnknown, caps.Device.Class)
	assert.Equal(t, 50, caps.Device.Score, "unknown class keeps the neutral baseline")

	fd := d.OptimalFormat(caps, "png", "")
	assert.Equal(t, "jpeg", fd.Format)
	assert.Equal(t, datatypes.TierFallback, fd.Provenance.DecisionSource)

	qd := d.OptimalQuality(caps, fd.Format, 0)
	assert.Equal(t, 80, qd.Quality, "jpeg format default")
	assert.Equal(t, datatypes.TierFormatDefault, qd.Provenance.DecisionSource)
}

func TestEmptyFallbackKeepsOriginalFormat(t *testing.T) {
	d := newDetector(t)
	cfg := config.Default()
	cfg.Cascade.Format.FallbackFormat = ""
	d.SetConfig(cfg)

	caps := d.Detect(context.Background(), http.Header{})
	fd := d.OptimalFormat(caps, "png", "")
	assert.Equal(t, "png", fd.Format)
}

func TestAutoFormatRunsTheCascade(t *testing.T) {
	d := newDetector(t)
	caps := d.Detect(context.Background(), headers(
		"user-agent", chrome90UA,
		"accept", "image/avif,image/webp",
	))

	for _, pref := range []string{"auto", "AUTO", "Auto"} {
		fd := d.OptimalFormat(caps, "jpeg", pref)
		assert.Equal(t, "avif", fd.Format, "%q must not be taken literally", pref)
		assert.Equal(t, datatypes.TierAcceptHeader, fd.Provenance.DecisionSource)
	}
}

func TestFormatCascadeFallsThroughEmptySource(t *testing.T) {
	d := newDetector(t)

	// The hinted brand is too old for any modern format while the
	// User-Agent attests a current Chrome. The client-hints source wins
	// the merge but confirms nothing, so the format cascade must fall
	// through to the user-agent record instead of the global fallback.
	caps := d.Detect(context.Background(), headers(
		"sec-ch-ua", `"Google Chrome";v="20"`,
		"user-agent", chrome120UA,
	))

	require.Equal(t, datatypes.SourceClientHints, caps.Formats.Source)
	require.False(t, caps.Formats.AVIF)
	require.False(t, caps.Formats.WebP)

	fd := d.OptimalFormat(caps, "jpeg", "")
	assert.Equal(t, "avif", fd.Format)
	assert.Equal(t, datatypes.TierUserAgent, fd.Provenance.DecisionSource)
}

func TestUserPreferenceWinsBothCascades(t *testing.T) {
	d := newDetector(t)
	caps := d.Detect(context.Background(), headers(
		"user-agent", chrome90UA,
		"accept", "image/avif,image/webp",
		"save-data", "on",
	))

	fd := d.OptimalFormat(caps, "jpeg", "webp")
	assert.Equal(t, "webp", fd.Format)
	assert.Equal(t, datatypes.TierUserPreference, fd.Provenance.DecisionSource)
	assert.Equal(t, 1000, fd.Provenance.ConfiguredPriority)

	qd := d.OptimalQuality(caps, "webp", 42)
	assert.Equal(t, 42, qd.Quality, "explicit quality beats even save-data")
	assert.Equal(t, datatypes.TierUserPreference, qd.Provenance.DecisionSource)
}

func TestSaveDataForcesMinimumQuality(t *testing.T) {
	d := newDetector(t)
	caps := d.Detect(context.Background(), headers(
		"user-agent", chrome90UA,
		"save-data", "on",
		"sec-ch-device-memory", "8",
		"sec-ch-hardware-concurrency", "8",
	))

	require.True(t, caps.Network.SaveData)
	assert.Equal(t, datatypes.NetworkSlow, caps.Network.Tier)
	assert.Equal(t, datatypes.DeviceHighEnd, caps.Device.Class)

	qd := d.OptimalQuality(caps, "webp", 0)
	assert.Equal(t, 50, qd.Quality, "smallest configured class minimum, not the high-end floor")
	assert.Equal(t, datatypes.TierSaveData, qd.Provenance.DecisionSource)

	pb := d.Budget(caps)
	assert.Equal(t, 1280, pb.MaxWidth)
	assert.Equal(t, 1280, pb.MaxHeight)
}

func TestNetworkBudgetQuality(t *testing.T) {
	d := newDetector(t)
	caps := d.Detect(context.Background(), headers(
		"user-agent", chrome90UA,
		"ect", "4g",
		"sec-ch-device-memory", "4",
	))

	require.Equal(t, datatypes.NetworkFast, caps.Network.Tier)
	require.Equal(t, datatypes.DeviceMidRange, caps.Device.Class)

	qd := d.OptimalQuality(caps, "webp", 0)
	assert.Equal(t, 83, qd.Quality, "mid-range target 75 scaled by 1.10")
	assert.Equal(t, datatypes.TierNetworkBudget, qd.Provenance.DecisionSource)
}

func TestDeviceBudgetOnlyWhenNetworkUnknown(t *testing.T) {
	d := newDetector(t)
	caps := d.Detect(context.Background(), headers(
		"user-agent", chrome90UA,
		"sec-ch-device-memory", "8",
		"sec-ch-hardware-concurrency", "8",
	))

	require.Equal(t, datatypes.NetworkUnknown, caps.Network.Tier)
	require.Equal(t, datatypes.DeviceHighEnd, caps.Device.Class)

	qd := d.OptimalQuality(caps, "webp", 0)
	assert.Equal(t, 80, qd.Quality, "high-end target, no network factor")
	assert.Equal(t, datatypes.TierDeviceBudget, qd.Provenance.DecisionSource)
}

func TestDPRAdjustmentAfterCascade(t *testing.T) {
	d := newDetector(t)
	caps := d.Detect(context.Background(), headers(
		"user-agent", chrome90UA,
		"ect", "4g",
		"sec-ch-dpr", "2",
	))

	qd := d.OptimalQuality(caps, "webp", 0)
	assert.Equal(t, 88, qd.Quality, "network target 83 plus 5 per DPR point above 1")

	// User preference and save-data are never DPR-adjusted.
	qd = d.OptimalQuality(caps, "webp", 50)
	assert.Equal(t, 50, qd.Quality)
}

func TestClientHintsOutrankUserAgent(t *testing.T) {
	d := newDetector(t)
	caps := d.Detect(context.Background(), headers(
		"user-agent", firefox88UA, // lying UA
		"sec-ch-ua", `"Google Chrome";v="110", "Chromium";v="110", "Not A(Brand";v="99"`,
		"sec-ch-ua-mobile", "?0",
	))

	assert.Equal(t, "chrome", caps.Browser.Name)
	assert.Equal(t, datatypes.SourceClientHints, caps.Browser.Source)
	assert.Equal(t, datatypes.SourceClientHints, caps.Formats.Source)
	assert.True(t, caps.Formats.AVIF)
}

func TestCacheIdempotence(t *testing.T) {
	d := newDetector(t)
	h := headers("user-agent", chrome90UA, "accept", "image/webp")

	first := d.DetectDetailed(context.Background(), h)
	assert.False(t, first.CacheHit)

	second := d.DetectDetailed(context.Background(), h)
	assert.True(t, second.CacheHit)
	assert.Same(t, first.Capabilities, second.Capabilities,
		"a cache hit returns the identical record")

	// An irrelevant header must not split the cache entry.
	h2 := headers("user-agent", chrome90UA, "accept", "image/webp", "x-forwarded-for", "10.0.0.1")
	third := d.DetectDetailed(context.Background(), h2)
	assert.True(t, third.CacheHit)

	d.ClearCache()
	fourth := d.DetectDetailed(context.Background(), h)
	assert.False(t, fourth.CacheHit)
}

func TestDetectNeverPanics(t *testing.T) {
	d := newDetector(t)
	hostile := []http.Header{
		{},
		headers("user-agent", strings.Repeat("\x00\xff", 4096)),
		headers("sec-ch-ua", `"""";v="";;;`),
		headers("sec-ch-device-memory", "NaN", "rtt", "-1", "downlink", "banana"),
		headers("accept", strings.Repeat("image/", 10000)),
		headers("sec-ch-dpr", "1e309"),
	}
	for _, h := range hostile {
		caps := d.Detect(context.Background(), h)
		require.NotNil(t, caps)
		fd := d.OptimalFormat(caps, "jpeg", "")
		require.NotEmpty(t, fd.Format)
		qd := d.OptimalQuality(caps, fd.Format, 0)
		require.Greater(t, qd.Quality, 0)
	}
}

func TestSetConfigHotSwap(t *testing.T) {
	d := newDetector(t)

	caps := d.Detect(context.Background(), http.Header{})
	fd := d.OptimalFormat(caps, "", "")
	require.Equal(t, "jpeg", fd.Format)

	cfg := config.Default()
	cfg.Cascade.Format.FallbackFormat = "webp"
	d.SetConfig(cfg)

	fd = d.OptimalFormat(caps, "", "")
	assert.Equal(t, "webp", fd.Format)
}

func TestOptimizedOptions(t *testing.T) {
	d := newDetector(t)
	caps := d.Detect(context.Background(), headers(
		"user-agent", chrome90UA,
		"accept", "image/avif,image/webp",
		"ect", "4g",
	))

	base := map[string]any{"maxWidth": 800, "blur": 2}
	out := d.OptimizedOptions(caps, base, "jpeg", Meta{RequestID: "req-1"})

	assert.Equal(t, "avif", out["format"])
	assert.Equal(t, 800, out["maxWidth"], "caller cap tighter than budget is kept")
	assert.Equal(t, 2, out["blur"], "unrelated options pass through")
	assert.NotContains(t, base, datatypes.MetricsKey, "base map is not mutated")

	metrics, ok := out[datatypes.MetricsKey].(datatypes.DetectionMetrics)
	require.True(t, ok)
	assert.Equal(t, "req-1", metrics.RequestID)
	assert.Equal(t, "chrome", metrics.BrowserName)
	assert.Equal(t, datatypes.NetworkFast, metrics.NetworkTier)

	// User quality arriving as JSON float64.
	out = d.OptimizedOptions(caps, map[string]any{"quality": 42.0}, "jpeg", Meta{})
	assert.Equal(t, 42, out["quality"])
	metrics = out[datatypes.MetricsKey].(datatypes.DetectionMetrics)
	assert.Equal(t, datatypes.TierUserPreference, metrics.Quality.Provenance.DecisionSource)
}
