package remotion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"vidkit/internal/config"
	"vidkit/internal/logging"
	"vidkit/internal/services"
)

// minNodeMajor is the oldest Node release the render scripts support.
const minNodeMajor = 18

// ErrBundle marks failures while producing or reusing the webpack bundle.
var ErrBundle = errors.New("bundle failure")

// bundleReadyMarker flags a bundle directory as completely written.
const bundleReadyMarker = ".bundle-complete"

// RenderRequest is the document sent to the render script on stdin.
type RenderRequest struct {
	ServeURL         string         `json:"serveUrl"`
	Composition      string         `json:"composition"`
	Props            map[string]any `json:"props"`
	DurationInFrames int            `json:"durationInFrames"`
	FPS              int            `json:"fps"`
	Width            int            `json:"width"`
	Height           int            `json:"height"`
	Output           string         `json:"output"`
	Concurrency      int            `json:"concurrency"`
	LogLevel         string         `json:"logLevel"`
}

// renderResponse is the last JSON line the render script prints.
type renderResponse struct {
	OK     bool   `json:"ok"`
	Output string `json:"output"`
	Error  string `json:"error"`
}

// Renderer drives the Node side of the bridge. It is safe for concurrent
// use; renders are throttled to the configured concurrency.
type Renderer struct {
	cfg    config.Remotion
	runner Runner
	logger *slog.Logger
	slots  chan struct{}

	depsOnce sync.Once
	depsErr  error

	bundleMu  sync.Mutex
	bundleDir string
}

// RendererOption configures a renderer.
type RendererOption func(*Renderer)

// WithRunner injects a custom process runner (primarily for tests).
func WithRunner(r Runner) RendererOption {
	return func(rd *Renderer) {
		if r != nil {
			rd.runner = r
		}
	}
}

// NewRenderer builds a renderer over the configured Remotion project.
func NewRenderer(cfg config.Remotion, logger *slog.Logger, opts ...RendererOption) (*Renderer, error) {
	if cfg.ProjectDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "remotion", "new", "remotion.project_dir is not set", nil)
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	r := &Renderer{
		cfg:    cfg,
		runner: NewProcessRunner(),
		logger: logging.NewComponentLogger(logger, "remotion"),
		slots:  make(chan struct{}, concurrency),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// EnsureDependencies verifies the Node runtime and installs the project's
// npm packages when missing. The check runs once per renderer; subsequent
// calls return the memoized result.
func (r *Renderer) EnsureDependencies(ctx context.Context) error {
	r.depsOnce.Do(func() {
		r.depsErr = r.checkDependencies(ctx)
	})
	return r.depsErr
}

func (r *Renderer) checkDependencies(ctx context.Context) error {
	stdout, stderr, err := r.runner.Run(ctx, r.cfg.ProjectDir, r.cfg.NodeExecutable, []string{"--version"}, nil)
	if err != nil {
		return services.Wrap(services.ErrDependency, "remotion", "check node", strings.TrimSpace(stderr), err)
	}
	major, err := parseNodeMajor(stdout)
	if err != nil {
		return services.Wrap(services.ErrDependency, "remotion", "check node", strings.TrimSpace(stdout), err)
	}
	if major < minNodeMajor {
		return services.Wrap(services.ErrDependency, "remotion", "check node",
			fmt.Sprintf("node %d found, need %d or newer", major, minNodeMajor), nil)
	}

	if _, err := os.Stat(filepath.Join(r.cfg.ProjectDir, "node_modules")); err == nil {
		return nil
	}
	r.logger.Info("installing render project dependencies",
		logging.String("project_dir", r.cfg.ProjectDir))
	_, stderr, err = r.runner.Run(ctx, r.cfg.ProjectDir, r.cfg.NpmExecutable, []string{"install", "--no-audit", "--no-fund"}, nil)
	if err != nil {
		return services.Wrap(services.ErrDependency, "remotion", "npm install", strings.TrimSpace(stderr), err)
	}
	return nil
}

func parseNodeMajor(version string) (int, error) {
	v := strings.TrimSpace(version)
	v = strings.TrimPrefix(v, "v")
	head, _, _ := strings.Cut(v, ".")
	major, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("unparseable node version %q", version)
	}
	return major, nil
}

// Bundle produces the webpack bundle for the project, reusing a cached
// bundle when the project sources are unchanged. The bundle directory is
// named by a content hash over the project's source files, and creation is
// serialized with a file lock so concurrent builds of different projects
// sharing one cache never corrupt each other. Force discards any cached
// bundle for the current sources and rebuilds it.
func (r *Renderer) Bundle(ctx context.Context, force bool) (string, error) {
	r.bundleMu.Lock()
	defer r.bundleMu.Unlock()
	if r.bundleDir != "" && !force {
		return r.bundleDir, nil
	}
	if err := r.EnsureDependencies(ctx); err != nil {
		return "", err
	}
	hash, err := projectHash(r.cfg.ProjectDir, r.cfg.CustomCompositionsDir)
	if err != nil {
		return "", services.Wrap(ErrBundle, "remotion", "bundle", "hash project sources", err)
	}
	cacheDir := r.cfg.BundleCacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(r.cfg.ProjectDir, ".bundle-cache")
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", services.Wrap(ErrBundle, "remotion", "bundle", "create bundle cache", err)
	}
	dir := filepath.Join(cacheDir, hash)

	lock := flock.New(filepath.Join(cacheDir, hash+".lock"))
	locked, err := lock.TryLockContext(ctx, 200*time.Millisecond)
	if err != nil || !locked {
		return "", services.Wrap(ErrBundle, "remotion", "bundle", "acquire bundle lock", err)
	}
	defer lock.Unlock()

	if force {
		if err := os.RemoveAll(dir); err != nil {
			return "", services.Wrap(ErrBundle, "remotion", "bundle", "discard stale bundle", err)
		}
	} else if _, err := os.Stat(filepath.Join(dir, bundleReadyMarker)); err == nil {
		r.bundleDir = dir
		r.logger.Debug("bundle cache hit", logging.String("bundle", hash))
		return dir, nil
	}

	r.logger.Info("bundling render project", logging.String("bundle", hash))
	req, err := json.Marshal(map[string]string{"outDir": dir})
	if err != nil {
		return "", services.Wrap(ErrBundle, "remotion", "bundle", "encode request", err)
	}
	script := filepath.Join(r.cfg.ProjectDir, "scripts", "bundle.mjs")
	stdout, stderr, err := r.runner.Run(ctx, r.cfg.ProjectDir, r.cfg.NodeExecutable, []string{script}, req)
	if err != nil {
		return "", services.Wrap(ErrBundle, "remotion", "bundle", strings.TrimSpace(stderr), err)
	}
	if _, err := lastJSONLine(stdout); err != nil {
		return "", services.Wrap(ErrBundle, "remotion", "bundle", "parse bundle output", err)
	}
	if err := os.WriteFile(filepath.Join(dir, bundleReadyMarker), []byte(hash+"\n"), 0o644); err != nil {
		return "", services.Wrap(ErrBundle, "remotion", "bundle", "mark bundle", err)
	}
	r.bundleDir = dir
	return dir, nil
}

// Render renders one composition to req.Output. The request's ServeURL,
// Concurrency, and LogLevel are filled in from the renderer.
func (r *Renderer) Render(ctx context.Context, req RenderRequest) error {
	select {
	case r.slots <- struct{}{}:
		defer func() { <-r.slots }()
	case <-ctx.Done():
		return ctx.Err()
	}

	serveURL, err := r.Bundle(ctx, false)
	if err != nil {
		return err
	}
	req.ServeURL = serveURL
	req.Concurrency = 1
	req.LogLevel = r.cfg.LogLevel
	req.Props = resolveAssetPaths(req.Props, r.cfg.ProjectDir)

	if r.cfg.TimeoutPerRender > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(r.cfg.TimeoutPerRender)*time.Second)
		defer cancel()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return services.Wrap(services.ErrRender, "remotion", "render", "encode request", err)
	}
	r.logger.Info("rendering composition",
		logging.String("composition", req.Composition),
		logging.Int("frames", req.DurationInFrames))
	script := filepath.Join(r.cfg.ProjectDir, "scripts", "render.mjs")
	stdout, stderr, err := r.runner.Run(ctx, r.cfg.ProjectDir, r.cfg.NodeExecutable, []string{script}, payload)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return services.Wrap(services.ErrTimeout, "remotion", "render", req.Composition, err)
		}
		return services.Wrap(services.ErrRender, "remotion", "render", strings.TrimSpace(stderr), err)
	}
	line, err := lastJSONLine(stdout)
	if err != nil {
		return services.Wrap(services.ErrRender, "remotion", "render", "parse render output", err)
	}
	var resp renderResponse
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return services.Wrap(services.ErrRender, "remotion", "render", "decode render output", err)
	}
	if !resp.OK {
		return services.Wrap(services.ErrRender, "remotion", "render", resp.Error, nil)
	}
	if _, err := os.Stat(req.Output); err != nil {
		return services.Wrap(services.ErrRender, "remotion", "render",
			fmt.Sprintf("script reported success but %s is missing", req.Output), err)
	}
	return nil
}

// lastJSONLine returns the final line of output that parses as a JSON
// object. Render scripts are free to print progress noise before it.
func lastJSONLine(stdout string) (string, error) {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		if json.Valid([]byte(line)) {
			return line, nil
		}
	}
	return "", fmt.Errorf("no JSON document in script output")
}

// assetKeys are the prop names whose string values name files on disk.
var assetKeys = map[string]bool{
	"path":       true,
	"image":      true,
	"source":     true,
	"src":        true,
	"asset":      true,
	"background": true,
}

// resolveAssetPaths rewrites file-like prop values to absolute paths so the
// render script resolves them regardless of its working directory. The key
// name heuristic matches the prop conventions used by the stock
// compositions.
func resolveAssetPaths(props map[string]any, baseDir string) map[string]any {
	if len(props) == 0 {
		return props
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		switch val := v.(type) {
		case string:
			if assetKeys[k] && looksLikePath(val) && !filepath.IsAbs(val) {
				out[k] = filepath.Join(baseDir, val)
			} else {
				out[k] = val
			}
		case map[string]any:
			out[k] = resolveAssetPaths(val, baseDir)
		case []any:
			items := make([]any, len(val))
			for i, item := range val {
				if m, ok := item.(map[string]any); ok {
					items[i] = resolveAssetPaths(m, baseDir)
				} else {
					items[i] = item
				}
			}
			out[k] = items
		default:
			out[k] = val
		}
	}
	return out
}

func looksLikePath(v string) bool {
	if v == "" || strings.Contains(v, "://") {
		return false
	}
	return strings.ContainsAny(v, "/\\") || filepath.Ext(v) != ""
}

// sourceExts are the file types that participate in the bundle hash.
var sourceExts = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true,
	".json": true, ".css": true,
}

// projectHash fingerprints the project's source tree. node_modules and
// dotted directories are skipped; an optional custom compositions directory
// is folded in when set.
func projectHash(dirs ...string) (string, error) {
	h := sha256.New()
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := d.Name()
			if d.IsDir() {
				if name == "node_modules" || strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !sourceExts[filepath.Ext(name)] {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			io.WriteString(h, rel)
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			_, err = io.Copy(h, f)
			f.Close()
			return err
		})
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:16], nil
}
