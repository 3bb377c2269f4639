package utils

// -----------------------------------------------------------------------------
// Asset & Timeframe Catalog
// -----------------------------------------------------------------------------

// Asset classes supported by the provider.
const (
	AssetSynthetic = "synthetic" // 24/7 synthetic indices
	AssetForex     = "forex"     // calendar-gated currency pairs
)

// Asset is one tradeable instrument in the static catalog.
type Asset struct {
	Symbol      string
	DisplayName string
	Class       string
	MIC         string // reference market for calendar gating (forex only)
}

// -----------------------------------------------------------------------------

// Static catalog, immutable after initialisation.
var assetCatalog = map[string]Asset{
	"R_10":      {Symbol: "R_10", DisplayName: "Volatility 10 Index", Class: AssetSynthetic},
	"R_25":      {Symbol: "R_25", DisplayName: "Volatility 25 Index", Class: AssetSynthetic},
	"R_50":      {Symbol: "R_50", DisplayName: "Volatility 50 Index", Class: AssetSynthetic},
	"R_75":      {Symbol: "R_75", DisplayName: "Volatility 75 Index", Class: AssetSynthetic},
	"R_100":     {Symbol: "R_100", DisplayName: "Volatility 100 Index", Class: AssetSynthetic},
	"frxEURUSD": {Symbol: "frxEURUSD", DisplayName: "EUR/USD", Class: AssetForex, MIC: "xnys"},
	"frxGBPUSD": {Symbol: "frxGBPUSD", DisplayName: "GBP/USD", Class: AssetForex, MIC: "xlon"},
	"frxUSDJPY": {Symbol: "frxUSDJPY", DisplayName: "USD/JPY", Class: AssetForex, MIC: "xtks"},
	"frxAUDUSD": {Symbol: "frxAUDUSD", DisplayName: "AUD/USD", Class: AssetForex, MIC: "xasx"},
	"frxUSDCHF": {Symbol: "frxUSDCHF", DisplayName: "USD/CHF", Class: AssetForex, MIC: "xswx"},
}

// -----------------------------------------------------------------------------

// LookupAsset returns the catalog entry for a symbol.
func LookupAsset(symbol string) (Asset, bool) {
	a, ok := assetCatalog[symbol]
	return a, ok
}

// -----------------------------------------------------------------------------

// AllAssets returns a copy of the catalog values.
func AllAssets() []Asset {
	out := make([]Asset, 0, len(assetCatalog))
	for _, a := range assetCatalog {
		out = append(out, a)
	}
	return out
}

// -----------------------------------------------------------------------------
// Timeframes
// -----------------------------------------------------------------------------

// supportedTimeframes maps granularity seconds to a display name.
var supportedTimeframes = map[int64]string{
	60:   "1m",
	120:  "2m",
	300:  "5m",
	900:  "15m",
	1800: "30m",
	3600: "1h",
}

// -----------------------------------------------------------------------------

// IsSupportedTimeframe reports whether a granularity is in the catalog.
func IsSupportedTimeframe(seconds int64) bool {
	_, ok := supportedTimeframes[seconds]
	return ok
}

// -----------------------------------------------------------------------------

// TimeframeName returns the display name for a granularity ("" if unknown).
func TimeframeName(seconds int64) string {
	return supportedTimeframes[seconds]
}

// -----------------------------------------------------------------------------

// MinTimeframeSeconds returns the shortest supported granularity.
func MinTimeframeSeconds() int64 {
	min := int64(0)
	for tf := range supportedTimeframes {
		if min == 0 || tf < min {
			min = tf
		}
	}
	return min
}
