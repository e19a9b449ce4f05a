// Package update checks GitHub releases for a newer mini-app package and
// installs it with miniapp_cli.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/penosext/pentools/internal/logging"
	"github.com/penosext/pentools/internal/metrics"
	"github.com/penosext/pentools/internal/shell"
	"github.com/penosext/pentools/pkg/types"
	"go.uber.org/zap"
)

var (
	ErrBusy       = errors.New("an update operation is already running")
	ErrNoRelease  = errors.New("no release checked")
	ErrNoAsset    = errors.New("no installable package in the release")
	ErrNoDownload = errors.New("no downloaded package")
)

// Config describes where releases come from and what is installed.
type Config struct {
	APIURL         string // default https://api.github.com
	Owner          string
	Repo           string
	CurrentVersion string
	DeviceModel    string
	DownloadDir    string
}

// Checker drives the update state machine.
type Checker struct {
	cfg        Config
	sh         shell.Shell
	httpClient *http.Client
	now        func() time.Time
	log        *zap.Logger

	mu           sync.Mutex
	running      bool
	state        types.UpdateState
	downloadPath string
}

// NewChecker creates a Checker in the idle state.
func NewChecker(cfg Config, sh shell.Shell) *Checker {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.github.com"
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = "/userdisk"
	}
	return &Checker{
		cfg: cfg,
		sh:  sh,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		now: time.Now,
		log: logging.Named("update"),
		state: types.UpdateState{
			Status:         types.UpdateIdle,
			CurrentVersion: cfg.CurrentVersion,
			DeviceModel:    cfg.DeviceModel,
		},
	}
}

// State returns a copy of the current state.
func (c *Checker) State() types.UpdateState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// begin moves to status unless another operation is in flight. Callers
// must call end when done.
func (c *Checker) begin(status types.UpdateStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrBusy
	}
	c.running = true
	c.state.Status = status
	c.state.Error = ""
	return nil
}

func (c *Checker) end() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

func (c *Checker) fail(err error) error {
	c.mu.Lock()
	c.state.Status = types.UpdateError
	c.state.Error = err.Error()
	c.mu.Unlock()
	c.log.Warn("update failed", zap.Error(err))
	return err
}

// Check fetches the latest release and decides whether it is newer than the
// running version.
func (c *Checker) Check(ctx context.Context) (types.UpdateState, error) {
	if err := c.begin(types.UpdateChecking); err != nil {
		return c.State(), err
	}
	defer c.end()

	rel, err := c.latestRelease(ctx)
	if err != nil {
		metrics.UpdateChecksTotal.WithLabelValues("error").Inc()
		return c.State(), c.fail(err)
	}

	asset := PickAsset(rel.Assets, c.cfg.DeviceModel, rel.TagName)
	newer := CompareVersions(rel.TagName, c.cfg.CurrentVersion) > 0

	c.mu.Lock()
	c.state.Latest = rel
	c.state.Asset = asset
	c.state.HasUpdate = newer
	if newer {
		c.state.Status = types.UpdateAvailable
	} else {
		c.state.Status = types.UpdateUpdated
	}
	state := c.state
	c.mu.Unlock()

	metrics.UpdateChecksTotal.WithLabelValues(string(state.Status)).Inc()
	c.log.Info("update check finished",
		zap.String("latest", rel.TagName),
		zap.String("current", c.cfg.CurrentVersion),
		zap.Bool("has_update", newer))
	return state, nil
}

func (c *Checker) latestRelease(ctx context.Context) (*types.Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest",
		strings.TrimRight(c.cfg.APIURL, "/"), c.cfg.Owner, c.cfg.Repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "pentools")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("GitHub API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rel types.Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("decode release: %w", err)
	}
	if rel.TagName == "" {
		return nil, errors.New("invalid release data: missing tag_name")
	}
	return &rel, nil
}

// Download streams the selected asset into the download directory and
// verifies it landed.
func (c *Checker) Download(ctx context.Context) (string, error) {
	c.mu.Lock()
	rel, asset := c.state.Latest, c.state.Asset
	c.mu.Unlock()
	if rel == nil {
		return "", ErrNoRelease
	}
	if asset == nil || asset.BrowserDownloadURL == "" {
		return "", ErrNoAsset
	}

	if err := c.begin(types.UpdateDownloading); err != nil {
		return "", err
	}
	defer c.end()

	name := fmt.Sprintf("miniapp_%s_v%s_%d.amr", c.cfg.DeviceModel, trimV(rel.TagName), c.now().UnixMilli())
	path := filepath.Join(c.cfg.DownloadDir, name)
	if err := c.fetch(ctx, asset.BrowserDownloadURL, path); err != nil {
		os.Remove(path)
		return "", c.fail(err)
	}
	if _, err := c.sh.Exec(ctx, "test -f "+shell.Quote(path)); err != nil {
		return "", c.fail(fmt.Errorf("downloaded file missing: %s", path))
	}

	c.mu.Lock()
	c.downloadPath = path
	c.state.Status = types.UpdateAvailable
	c.mu.Unlock()
	c.log.Info("update downloaded", zap.String("path", path))
	return path, nil
}

func (c *Checker) fetch(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "pentools")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed (status %d)", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Install installs the downloaded package and removes it afterwards.
func (c *Checker) Install(ctx context.Context) error {
	c.mu.Lock()
	path := c.downloadPath
	c.mu.Unlock()
	if path == "" {
		return ErrNoDownload
	}

	if err := c.begin(types.UpdateInstalling); err != nil {
		return err
	}
	defer c.end()
	if _, err := c.sh.Exec(ctx, "miniapp_cli install "+shell.Quote(path)); err != nil {
		return c.fail(fmt.Errorf("install failed: %w", err))
	}

	c.mu.Lock()
	c.state.Status = types.UpdateUpdated
	c.state.HasUpdate = false
	c.downloadPath = ""
	c.mu.Unlock()

	if _, err := c.sh.Exec(ctx, "rm -f "+shell.Quote(path)); err != nil {
		c.log.Warn("failed to remove package", zap.String("path", path), zap.Error(err))
	}
	c.log.Info("update installed", zap.String("path", path))
	return nil
}

// DownloadAndInstall runs Download followed by Install.
func (c *Checker) DownloadAndInstall(ctx context.Context) (types.UpdateState, error) {
	if _, err := c.Download(ctx); err != nil {
		return c.State(), err
	}
	if err := c.Install(ctx); err != nil {
		return c.State(), err
	}
	return c.State(), nil
}

// Cleanup removes every downloaded package from the download directory.
func (c *Checker) Cleanup(ctx context.Context) error {
	pattern := shell.Quote(strings.TrimRight(c.cfg.DownloadDir, "/")+"/") + "miniapp_*.amr"
	if _, err := c.sh.Exec(ctx, "rm -f "+pattern+" 2>/dev/null || true"); err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}
	c.mu.Lock()
	c.downloadPath = ""
	c.mu.Unlock()
	return nil
}

// PickAsset chooses the package for model: the exact
// miniapp_<model>_v<version>.amr name, then any .amr containing the model,
// then any .amr.
func PickAsset(assets []types.ReleaseAsset, model, tag string) *types.ReleaseAsset {
	exact := fmt.Sprintf("miniapp_%s_v%s.amr", model, trimV(tag))
	matchers := []func(string) bool{
		func(n string) bool { return n == exact },
		func(n string) bool { return model != "" && strings.Contains(n, model) && strings.HasSuffix(n, ".amr") },
		func(n string) bool { return strings.HasSuffix(n, ".amr") },
	}
	for _, match := range matchers {
		for i := range assets {
			if match(assets[i].Name) {
				a := assets[i]
				return &a
			}
		}
	}
	return nil
}

// CompareVersions compares dotted versions numerically, ignoring a leading
// "v". Missing components count as 0.
func CompareVersions(a, b string) int {
	pa, pb := strings.Split(trimV(a), "."), strings.Split(trimV(b), ".")
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var x, y int
		if i < len(pa) {
			x = leadingInt(pa[i])
		}
		if i < len(pb) {
			y = leadingInt(pb[i])
		}
		switch {
		case x > y:
			return 1
		case x < y:
			return -1
		}
	}
	return 0
}

func trimV(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// leadingInt parses the leading digits of s ("3-beta" → 3).
func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}
