package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// pageCloseTimeout bounds closing a tab whose render was abandoned
const pageCloseTimeout = 5 * time.Second

// fontsReady resolves once every web font used by the document has loaded
const fontsReady = `() => document.fonts.ready.then(() => document.fonts.size)`

// BrowserConfig configures the headless Chrome page factory
type BrowserConfig struct {
	// ExecutablePath is the Chrome binary. Empty means look it up.
	ExecutablePath string
	// RemoteURL is the DevTools websocket of an already running Chrome.
	// Empty means launch a local headless one.
	RemoteURL string
	// SettleDelay is waited after fonts are ready, before capture
	SettleDelay time.Duration
	Clock       ports.TimeProvider
	Logger      *slog.Logger
}

// BrowserAutomation opens off-screen pages in headless Chrome. The browser
// is launched on first use and shared by every page.
type BrowserAutomation struct {
	cfg    BrowserConfig
	mu     sync.Mutex
	b      *rod.Browser
	lnch   *launcher.Launcher
	closed bool
	logger *slog.Logger
}

var _ ports.PageFactory = (*BrowserAutomation)(nil)

// NewBrowserAutomation creates a Chrome page factory. Nothing is launched yet.
func NewBrowserAutomation(cfg BrowserConfig) *BrowserAutomation {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = ports.NewRealTimeProvider()
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 500 * time.Millisecond
	}
	return &BrowserAutomation{
		cfg:    cfg,
		logger: cfg.Logger.With("service", "browser"),
	}
}

// BrowserAvailable reports whether a Chrome binary can be used
func BrowserAvailable(cfg BrowserConfig) bool {
	if cfg.RemoteURL != "" {
		return true
	}
	if cfg.ExecutablePath != "" {
		_, err := os.Stat(cfg.ExecutablePath)
		return err == nil
	}
	_, found := launcher.LookPath()
	return found
}

// Name identifies the renderer in export results
func (ba *BrowserAutomation) Name() string {
	return "chrome"
}

func (ba *BrowserAutomation) browser() (*rod.Browser, error) {
	ba.mu.Lock()
	defer ba.mu.Unlock()

	if ba.closed {
		return nil, errors.New("browser automation is closed")
	}
	if ba.b != nil {
		return ba.b, nil
	}

	wsURL := ba.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(true)
		if ba.cfg.ExecutablePath != "" {
			l = l.Bin(ba.cfg.ExecutablePath)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		ba.lnch = l
		ba.logger.Info("launched headless chrome", "url", wsURL)
	} else {
		ba.logger.Info("connecting to remote chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		ba.killLocked()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	ba.b = b
	return b, nil
}

// NewPage opens a blank tab with the slide viewport
func (ba *BrowserAutomation) NewPage(ctx context.Context, size entities.Size, pixelRatio float64) (ports.OffscreenPage, error) {
	b, err := ba.browser()
	if err != nil {
		return nil, err
	}

	created, err := b.Context(ctx).Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}
	// the page keeps no render context; each call scopes its own
	page := created.Context(context.Background())

	err = page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             int(size.Width),
		Height:            int(size.Height),
		DeviceScaleFactor: pixelRatio,
	})
	if err != nil {
		closing := page.Timeout(pageCloseTimeout)
		_ = closing.Close()
		closing.CancelTimeout()
		return nil, fmt.Errorf("browser: set viewport: %w", err)
	}

	return &browserPage{page: page, settle: ba.cfg.SettleDelay, clock: ba.cfg.Clock}, nil
}

// Close shuts the browser down. Pages still open are closed with it.
func (ba *BrowserAutomation) Close() error {
	ba.mu.Lock()
	defer ba.mu.Unlock()

	ba.closed = true
	var err error
	if ba.b != nil {
		err = ba.b.Close()
		ba.b = nil
	}
	ba.killLocked()
	return err
}

func (ba *BrowserAutomation) killLocked() {
	if ba.lnch != nil {
		ba.lnch.Kill()
		ba.lnch.Cleanup()
		ba.lnch = nil
	}
}

type browserPage struct {
	page   *rod.Page
	settle time.Duration
	clock  ports.TimeProvider
}

func (p *browserPage) Load(ctx context.Context, html string) error {
	page := p.page.Context(ctx)

	if err := page.SetDocumentContent(html); err != nil {
		return fmt.Errorf("browser: set content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait load: %w", err)
	}
	if _, err := page.Eval(fontsReady); err != nil {
		return fmt.Errorf("browser: wait fonts: %w", err)
	}

	select {
	case <-p.clock.After(p.settle):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *browserPage) Capture(ctx context.Context, selector string) ([]byte, error) {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: find %s: %w", selector, err)
	}
	img, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("browser: screenshot: %w", err)
	}
	return img, nil
}

func (p *browserPage) Close(ctx context.Context) error {
	if err := p.page.Context(ctx).Close(); err != nil {
		return fmt.Errorf("browser: close page: %w", err)
	}
	return nil
}
