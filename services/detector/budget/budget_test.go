package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/Kodiak/services/detector/config"
	"github.com/AleutianAI/Kodiak/services/detector/datatypes"
)

func caps(class datatypes.DeviceClass, tier datatypes.NetworkTier) *datatypes.ClientCapabilities {
	return &datatypes.ClientCapabilities{
		Formats: datatypes.FormatSupport{AVIF: true, WebP: true},
		Network: datatypes.NetworkQuality{Tier: tier},
		Device:  datatypes.DeviceCapability{Class: class},
	}
}

func TestCalculateClassTables(t *testing.T) {
	cfg := config.Default().Budget

	tests := []struct {
		name       string
		class      datatypes.DeviceClass
		wantTarget int
		wantWidth  int
	}{
		{"low-end", datatypes.DeviceLowEnd, 65, 1280},
		{"mid-range", datatypes.DeviceMidRange, 75, 2048},
		{"high-end", datatypes.DeviceHighEnd, 80, 4096},
		{"unknown falls back to mid-range", datatypes.DeviceUnknown, 75, 2048},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := Calculate(caps(tt.class, datatypes.NetworkMedium), cfg)
			assert.Equal(t, tt.wantTarget, pb.Quality.Target)
			assert.Equal(t, tt.wantWidth, pb.MaxWidth)
		})
	}
}

func TestCalculateNetworkFactors(t *testing.T) {
	cfg := config.Default().Budget

	slow := Calculate(caps(datatypes.DeviceMidRange, datatypes.NetworkSlow), cfg)
	assert.Equal(t, 64, slow.Quality.Target, "75 * 0.85 rounded")

	fast := Calculate(caps(datatypes.DeviceMidRange, datatypes.NetworkFast), cfg)
	assert.Equal(t, 83, fast.Quality.Target, "75 * 1.10 rounded")

	unknown := Calculate(caps(datatypes.DeviceMidRange, datatypes.NetworkUnknown), cfg)
	assert.Equal(t, 75, unknown.Quality.Target, "unknown tier uses factor 1.0")
}

func TestCalculateFactorClampsToRange(t *testing.T) {
	cfg := config.Default().Budget
	// high-end max is 95; 80 * 1.10 = 88 stays inside, so force a
	// bigger factor to prove the clamp.
	cfg.FastNetworkFactor = 1.5
	pb := Calculate(caps(datatypes.DeviceHighEnd, datatypes.NetworkFast), cfg)
	assert.Equal(t, 95, pb.Quality.Target)
}

func TestCalculateSaveData(t *testing.T) {
	cfg := config.Default().Budget

	c := caps(datatypes.DeviceHighEnd, datatypes.NetworkSlow)
	c.Network.SaveData = true
	pb := Calculate(c, cfg)

	assert.Equal(t, 65, pb.Quality.Target, "save-data forces the range minimum")
	assert.Equal(t, 1280, pb.MaxWidth)
	assert.Equal(t, 1280, pb.MaxHeight)
}

func TestCalculateSaveDataNeverRaisesDimensions(t *testing.T) {
	cfg := config.Default().Budget
	cfg.SaveDataMaxWidth = 9999
	cfg.SaveDataMaxHeight = 9999

	c := caps(datatypes.DeviceLowEnd, datatypes.NetworkSlow)
	c.Network.SaveData = true
	pb := Calculate(c, cfg)

	assert.Equal(t, 1280, pb.MaxWidth, "save-data cap must not exceed the class table")
}

func TestCalculatePreferredFormatsFiltered(t *testing.T) {
	cfg := config.Default().Budget

	c := caps(datatypes.DeviceHighEnd, datatypes.NetworkMedium)
	c.Formats = datatypes.FormatSupport{WebP: true} // no AVIF
	pb := Calculate(c, cfg)

	assert.NotContains(t, pb.PreferredFormats, "avif")
	assert.Contains(t, pb.PreferredFormats, "webp")
	for _, f := range pb.PreferredFormats {
		assert.True(t, c.Formats.Supports(f), "filtering must never insert %s", f)
	}
}

func TestCalculateDPR(t *testing.T) {
	cfg := config.Default().Budget

	c := caps(datatypes.DeviceMidRange, datatypes.NetworkMedium)
	c.RawClientHints = map[string]string{datatypes.HeaderDPR: "2"}
	pb := Calculate(c, cfg)
	assert.Equal(t, 2.0, pb.DPR)

	c.RawClientHints = nil
	pb = Calculate(c, cfg)
	assert.Equal(t, 1.0, pb.DPR, "absent DPR defaults to 1.0")
}
