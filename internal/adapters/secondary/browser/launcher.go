// Package browser opens the player page in a local browser.
package browser

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"runtime"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// Launcher opens the player in a local browser
type Launcher struct {
	browsers []Browser
	kiosk    bool
	lookPath func(string) (string, error)
	start    func(name string, args ...string) error
	logger   *slog.Logger
}

// Browser represents a browser configuration
type Browser struct {
	Name    string
	Command string
	Args    func(url string, kiosk bool) []string
}

// NewLauncher creates a launcher. With kiosk set, a Chrome found on the
// system opens the player full screen without browser chrome.
func NewLauncher(kiosk bool, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		browsers: detectBrowsers(runtime.GOOS),
		kiosk:    kiosk,
		lookPath: exec.LookPath,
		start:    startDetached,
		logger:   logger.With("service", "browser_launcher"),
	}
}

// OpenPlayer opens playerURL in the selected browser
func (l *Launcher) OpenPlayer(playerURL string) error {
	u, err := url.Parse(playerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("player url must be an http address: %q", playerURL)
	}

	browser, err := l.selectBrowser()
	if err != nil {
		return fmt.Errorf("browser selection: %w", err)
	}

	l.logger.Info("opening player", "browser", browser.Name, "url", u.String(), "kiosk", l.kiosk)
	if err := l.start(browser.Command, browser.Args(u.String(), l.kiosk)...); err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}
	return nil
}

// Detect reports the browser OpenPlayer would use
func (l *Launcher) Detect() (string, error) {
	browser, err := l.selectBrowser()
	if err != nil {
		return "", err
	}
	return browser.Name, nil
}

// selectBrowser prefers a Chrome binary in kiosk mode, then the platform list
func (l *Launcher) selectBrowser() (*Browser, error) {
	if l.kiosk {
		if bin, found := launcher.LookPath(); found {
			return &Browser{Name: "Chrome", Command: bin, Args: chromeArgs}, nil
		}
	}

	if len(l.browsers) == 0 {
		return nil, errors.New("no browsers detected")
	}

	for _, candidate := range l.browsers {
		if _, err := l.lookPath(candidate.Command); err == nil {
			return &candidate, nil
		}
	}

	return nil, errors.New("no supported browsers found on this system")
}

func chromeArgs(url string, kiosk bool) []string {
	if kiosk {
		return []string{"--kiosk", "--app=" + url}
	}
	return []string{url}
}

func plainArgs(url string, _ bool) []string {
	return []string{url}
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...) // #nosec G204 - command comes from the detected browser list
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// detectBrowsers lists the candidate openers for a platform in order
func detectBrowsers(goos string) []Browser {
	switch goos {
	case "darwin":
		return []Browser{
			{Name: "Chrome", Command: "open", Args: func(url string, kiosk bool) []string {
				if kiosk {
					return []string{"-a", "Google Chrome", "--args", "--kiosk", "--app=" + url}
				}
				return []string{"-a", "Google Chrome", url}
			}},
			{Name: "Default", Command: "open", Args: plainArgs},
		}
	case "linux":
		return []Browser{
			{Name: "Chrome", Command: "google-chrome", Args: chromeArgs},
			{Name: "Chromium", Command: "chromium", Args: chromeArgs},
			{Name: "xdg-open", Command: "xdg-open", Args: plainArgs},
			{Name: "Firefox", Command: "firefox", Args: func(url string, kiosk bool) []string {
				if kiosk {
					return []string{"--kiosk", url}
				}
				return []string{url}
			}},
		}
	case "windows":
		return []Browser{
			{Name: "Default", Command: "cmd", Args: func(url string, _ bool) []string {
				return []string{"/c", "start", url}
			}},
		}
	default:
		return nil
	}
}

var _ ports.PlayerOpener = (*Launcher)(nil)
