package pricewatch

import "time"

const (
	PlaywrightAdapter = "playwright"
	RodAdapter        = "rod"
	StaticAdapter     = "http"
)

// Engine holds the tunable run parameters. Run modes override a subset of
// these; everything else keeps its default.
type Engine struct {
	Adapter         string
	BrowserType     string
	ExecutablePaths []string
	Headless        *bool
	JavaScriptEnabled bool

	// BlockResources skips stylesheet/font/media requests plus anything
	// matching BlockedURLs.
	BlockResources bool
	BlockedURLs    []string

	// Timeout bounds one navigation; SettleDelay is the pause after each
	// navigation to let dynamic content settle.
	Timeout     time.Duration
	SettleDelay time.Duration

	MaxDepth int
	MaxPages int

	CheckRobotsTxt bool
	// SendHtmlToBigquery archives every navigated page's raw markup.
	SendHtmlToBigquery bool

	UserAgent string
}

func getDefaultEngine() Engine {
	return Engine{
		Adapter:           PlaywrightAdapter,
		BrowserType:       "chromium",
		JavaScriptEnabled: true,
		BlockResources:    true,
		BlockedURLs: []string{
			"www.googletagmanager.com",
			"google-analytics.com",
			"googleapis.com",
			"gstatic.com",
		},
		Timeout:     30 * time.Second,
		SettleDelay: 300 * time.Millisecond,
		MaxDepth:    10,
		MaxPages:    50,
		UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	}
}

// engineForMode returns the per-mode overrides applied on top of the
// defaults: full crawls go deep and slow, fast mode stays shallow, refresh
// runs with a short timeout since every URL is already known good.
func engineForMode(mode RunMode) Engine {
	switch mode {
	case RunModeFast:
		return Engine{MaxDepth: 1, MaxPages: 5, Timeout: 30 * time.Second}
	case RunModeRefresh:
		return Engine{Timeout: 15 * time.Second, SettleDelay: 500 * time.Millisecond}
	default:
		return Engine{MaxDepth: 10, MaxPages: 50, Timeout: 30 * time.Second}
	}
}

func overrideEngineDefaults(defaultEngine *Engine, eng *Engine) {
	if eng.Adapter != "" {
		defaultEngine.Adapter = eng.Adapter
	}
	if eng.BrowserType != "" {
		defaultEngine.BrowserType = eng.BrowserType
	}
	if len(eng.ExecutablePaths) > 0 {
		defaultEngine.ExecutablePaths = eng.ExecutablePaths
	}
	if eng.Headless != nil {
		defaultEngine.Headless = eng.Headless
	}
	if eng.BlockResources {
		defaultEngine.BlockResources = eng.BlockResources
	}
	if eng.Timeout > 0 {
		defaultEngine.Timeout = eng.Timeout
	}
	if eng.SettleDelay > 0 {
		defaultEngine.SettleDelay = eng.SettleDelay
	}
	if eng.MaxDepth > 0 {
		defaultEngine.MaxDepth = eng.MaxDepth
	}
	if eng.MaxPages > 0 {
		defaultEngine.MaxPages = eng.MaxPages
	}
	if eng.CheckRobotsTxt {
		defaultEngine.CheckRobotsTxt = eng.CheckRobotsTxt
	}
	if eng.SendHtmlToBigquery {
		defaultEngine.SendHtmlToBigquery = eng.SendHtmlToBigquery
	}
	if eng.UserAgent != "" {
		defaultEngine.UserAgent = eng.UserAgent
	}
	defaultEngine.BlockedURLs = append(defaultEngine.BlockedURLs, eng.BlockedURLs...)
}
