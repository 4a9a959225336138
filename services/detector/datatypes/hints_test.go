package datatypes

import (
	"net/http"
	"testing"
)

func TestParseClientHints(t *testing.T) {
	h := http.Header{}
	h.Set("Sec-CH-UA", `"Chromium";v="110", "Google Chrome";v="110", "Not A(Brand";v="24"`)
	h.Set("Sec-CH-UA-Mobile", "?1")
	h.Set("Sec-CH-UA-Platform", `"Android"`)
	h.Set("Sec-CH-DPR", "2.5")
	h.Set("Sec-CH-Device-Memory", "4")
	h.Set("Sec-CH-Hardware-Concurrency", "8")
	h.Set("RTT", "150")
	h.Set("Downlink", "2.5")
	h.Set("ECT", "3g")
	h.Set("Save-Data", "on")

	ch := ParseClientHints(h)

	if !ch.Any() {
		t.Fatal("Any() = false with hint headers present")
	}
	if len(ch.Brands) != 2 {
		t.Fatalf("brands = %v, want 2 entries (GREASE dropped)", ch.Brands)
	}
	if ch.Brands[1].Name != "Google Chrome" || ch.Brands[1].Version != 110 {
		t.Errorf("brand[1] = %+v, want Google Chrome 110", ch.Brands[1])
	}
	if !ch.HasMobile || !ch.Mobile {
		t.Error("mobile flag not parsed from ?1")
	}
	if ch.Platform != "Android" {
		t.Errorf("platform = %q, want Android", ch.Platform)
	}
	if !ch.HasDPR || ch.DPR != 2.5 {
		t.Errorf("dpr = %v (has=%v), want 2.5", ch.DPR, ch.HasDPR)
	}
	if !ch.HasDeviceMemory || ch.DeviceMemoryGB != 4 {
		t.Errorf("deviceMemory = %v, want 4", ch.DeviceMemoryGB)
	}
	if !ch.HasHardwareConcurrency || ch.HardwareConcurrency != 8 {
		t.Errorf("hardwareConcurrency = %v, want 8", ch.HardwareConcurrency)
	}
	if !ch.HasRTT || ch.RTTMillis != 150 {
		t.Errorf("rtt = %v, want 150", ch.RTTMillis)
	}
	if !ch.HasDownlink || ch.DownlinkMbps != 2.5 {
		t.Errorf("downlink = %v, want 2.5", ch.DownlinkMbps)
	}
	if ch.EffectiveType != "3g" {
		t.Errorf("ect = %q, want 3g", ch.EffectiveType)
	}
	if !ch.SaveData {
		t.Error("saveData not parsed")
	}
}

func TestParseClientHintsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
	}{
		{"non-numeric dpr", "Sec-CH-DPR", "huge"},
		{"negative dpr", "Sec-CH-DPR", "-2"},
		{"non-numeric rtt", "RTT", "fast"},
		{"garbled brand list", "Sec-CH-UA", `;;;"v=`},
		{"empty memory", "Sec-CH-Device-Memory", " "},
		{"non-numeric cores", "Sec-CH-Hardware-Concurrency", "many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			h.Set(tt.header, tt.value)

			// Must not panic; malformed collapses to absent.
			ch := ParseClientHints(h)
			if ch.HasDPR || ch.HasRTT || ch.HasDeviceMemory || ch.HasHardwareConcurrency {
				t.Errorf("malformed %s=%q parsed as present: %+v", tt.header, tt.value, ch)
			}
			if len(ch.Brands) != 0 {
				t.Errorf("malformed brand list produced brands: %v", ch.Brands)
			}
		})
	}
}

func TestParseClientHintsLegacyHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("DPR", "2")
	h.Set("Viewport-Width", "414")
	h.Set("Device-Memory", "8")

	ch := ParseClientHints(h)
	if !ch.HasDPR || ch.DPR != 2 {
		t.Errorf("legacy DPR not parsed: %v", ch.DPR)
	}
	if !ch.HasViewportWidth || ch.ViewportWidth != 414 {
		t.Errorf("legacy Viewport-Width not parsed: %v", ch.ViewportWidth)
	}
	if !ch.HasDeviceMemory || ch.DeviceMemoryGB != 8 {
		t.Errorf("legacy Device-Memory not parsed: %v", ch.DeviceMemoryGB)
	}
}

func TestSignatureStableAndSelective(t *testing.T) {
	a := http.Header{}
	a.Set("Accept", "image/avif,image/webp,*/*")
	a.Set("User-Agent", "Mozilla/5.0")
	a.Set("X-Irrelevant", "one")

	b := http.Header{}
	b.Set("Accept", "image/avif,image/webp,*/*")
	b.Set("User-Agent", "Mozilla/5.0")
	b.Set("X-Irrelevant", "two")

	if Signature(a) != Signature(b) {
		t.Error("signatures differ on irrelevant header")
	}

	b.Set("Save-Data", "on")
	if Signature(a) == Signature(b) {
		t.Error("signatures identical despite differing Save-Data")
	}

	if Signature(http.Header{}) != "" {
		t.Error("empty request should have empty signature")
	}
}

func TestHintsFromRawRoundTrip(t *testing.T) {
	h := http.Header{}
	h.Set("Sec-CH-UA-Platform", `"Windows"`)
	h.Set("Sec-CH-DPR", "2")
	h.Set("ECT", "4g")

	first := ParseClientHints(h)
	second := HintsFromRaw(first.Raw)

	if second.Platform != first.Platform || second.DPR != first.DPR || second.EffectiveType != first.EffectiveType {
		t.Errorf("round trip mismatch: %+v vs %+v", first, second)
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"90", 90, true},
		{"90.0.4430.93", 90.0, true},
		{"13.1", 13.1, true},
		{"14.0.3", 14.0, true},
		{"", 0, false},
		{"banana", 0, false},
		{"-1", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseVersion(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseVersion(%q) = %v,%v want %v,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
