package project

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"vidkit/internal/audiosync"
	"vidkit/internal/cache"
	"vidkit/internal/config"
	"vidkit/internal/deps"
	"vidkit/internal/fileutil"
	"vidkit/internal/logging"
	"vidkit/internal/media"
	"vidkit/internal/overlays"
	"vidkit/internal/remotion"
	"vidkit/internal/segments"
	"vidkit/internal/services"
	"vidkit/internal/sources"
	"vidkit/internal/tts"
)

// silentEngine names the combined-layer engine slot for builds without a
// speech engine.
const silentEngine = "silent"

// Project is the build orchestrator for one presentation.
type Project struct {
	cfg    *config.Project
	logger *slog.Logger
	cache  *cache.Manager
	tools  *media.Toolchain
	sync   *audiosync.Synchronizer
	speech *tts.Synthesizer
	env    *sources.RenderEnv

	overlayDefaults segments.OverlayDefaults

	segs  []segments.Segment
	index map[string]int

	rendererOnce sync.Once
	renderer     *remotion.Renderer
	rendererErr  error

	executor media.Executor
	runner   remotion.Runner
}

// Option configures a project.
type Option func(*Project)

// WithExecutor injects a media executor (primarily for tests).
func WithExecutor(exec media.Executor) Option {
	return func(p *Project) { p.executor = exec }
}

// WithRunner injects a composition render runner (primarily for tests).
func WithRunner(r remotion.Runner) Option {
	return func(p *Project) { p.runner = r }
}

// WithSpeechEngine enables narration synthesis through the given engine.
func WithSpeechEngine(engine tts.Engine) Option {
	return func(p *Project) {
		p.speech = tts.NewSynthesizer(engine, nil, p.logger)
	}
}

// WithOverlayDefaults sets the project-wide overlay configuration that
// segment overlay specs resolve against.
func WithOverlayDefaults(defaults segments.OverlayDefaults) Option {
	return func(p *Project) { p.overlayDefaults = defaults }
}

// New builds a project from configuration.
func New(cfg *config.Project, logger *slog.Logger, opts ...Option) (*Project, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "project", "new", "create directories", err)
	}
	p := &Project{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "project"),
		index:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(p)
	}

	toolOpts := []media.Option{}
	if p.executor != nil {
		toolOpts = append(toolOpts, media.WithExecutor(p.executor))
	}
	tools, err := media.NewToolchain(cfg, logger, toolOpts...)
	if err != nil {
		return nil, err
	}
	p.tools = tools

	cacheOpts := []cache.Option{}
	if cfg.LedgerEnabled {
		ledger, err := cache.OpenLedger(cfg.LedgerPath())
		if err != nil {
			return nil, err
		}
		cacheOpts = append(cacheOpts, cache.WithLedger(ledger))
	}
	mgr, err := cache.NewManager(cfg.CacheDir, logger, cacheOpts...)
	if err != nil {
		return nil, err
	}
	p.cache = mgr

	syncer, err := audiosync.New(cfg.AudioSync, tools, logger)
	if err != nil {
		return nil, err
	}
	p.sync = syncer

	if p.speech != nil {
		p.speech = tts.NewSynthesizer(p.speech.Engine(), mgr.TTS, logger)
	}

	p.env = &sources.RenderEnv{Config: cfg, Tools: tools, Generated: mgr.Generated, Logger: logger}
	return p, nil
}

// Close releases the project's resources, including the cache ledger.
func (p *Project) Close() error {
	if ledger := p.cache.Ledger(); ledger != nil {
		return ledger.Close()
	}
	return nil
}

// Cache exposes the cache manager for status reporting and invalidation.
func (p *Project) Cache() *cache.Manager { return p.cache }

// Config exposes the project configuration.
func (p *Project) Config() *config.Project { return p.cfg }

// Engine names the narration engine slot used in combined filenames.
func (p *Project) Engine() string {
	if p.speech != nil {
		return p.speech.Engine().Name()
	}
	return silentEngine
}

// Voice returns the configured narration voice, empty without an engine.
func (p *Project) Voice() string {
	if p.speech != nil {
		return p.speech.Engine().Voice()
	}
	return ""
}

// AddSegment appends a segment to the timeline.
func (p *Project) AddSegment(seg segments.Segment) error {
	if seg.ID() == "" {
		return services.Wrap(services.ErrValidation, "project", "add segment", "segment has no id", nil)
	}
	if _, dup := p.index[seg.ID()]; dup {
		return services.Wrap(services.ErrValidation, "project", "add segment", "duplicate segment id "+seg.ID(), nil)
	}
	p.index[seg.ID()] = len(p.segs)
	p.segs = append(p.segs, seg)
	return nil
}

// SegmentByID returns the segment with the given id.
func (p *Project) SegmentByID(id string) (segments.Segment, bool) {
	i, ok := p.index[id]
	if !ok {
		return nil, false
	}
	return p.segs[i], true
}

// SegmentIDs returns the timeline order.
func (p *Project) SegmentIDs() []string {
	ids := make([]string, len(p.segs))
	for i, seg := range p.segs {
		ids[i] = seg.ID()
	}
	return ids
}

// rendererSink is implemented by segments that render through the
// composition bridge. The renderer is constructed on first use so builds
// without compositions never touch Node.
type rendererSink interface {
	SetRenderer(*remotion.Renderer)
}

func (p *Project) injectRenderer(seg segments.Segment) error {
	sink, ok := seg.(rendererSink)
	if !ok {
		return nil
	}
	p.rendererOnce.Do(func() {
		opts := []remotion.RendererOption{}
		if p.runner != nil {
			opts = append(opts, remotion.WithRunner(p.runner))
		}
		p.renderer, p.rendererErr = remotion.NewRenderer(p.cfg.Remotion, p.logger, opts...)
	})
	if p.rendererErr != nil {
		return p.rendererErr
	}
	sink.SetRenderer(p.renderer)
	return nil
}

// BuildSegment produces the segment's silent video artifact, returning its
// cache path. An existing artifact is reused unless force is set.
func (p *Project) BuildSegment(ctx context.Context, id string, force bool) (string, error) {
	seg, ok := p.SegmentByID(id)
	if !ok {
		return "", services.Wrap(services.ErrValidation, "project", "build segment", "unknown segment "+id, nil)
	}
	mode := p.cfg.Mode()
	final := p.cache.Segments.PathFor(id, mode)
	if !force && p.cache.Segments.ExistsFor(id, mode) {
		p.logger.Debug("segment cache hit", logging.String(logging.FieldSegment, id))
		return final, nil
	}
	if err := p.injectRenderer(seg); err != nil {
		return "", err
	}
	p.logger.Info("building segment",
		logging.String(logging.FieldSegment, id),
		logging.String("mode", mode))

	work := final + ".build.mp4"
	defer os.Remove(work)
	if err := seg.Render(ctx, p.env, work); err != nil {
		return "", err
	}

	compositor := seg.Overlays().Effective(p.overlayDefaults, seg.Section(), seg.Narration())
	if !compositor.Empty() {
		geometry := overlays.Geometry{Width: p.cfg.Width(), Height: p.cfg.Height(), FPS: p.cfg.FPS}
		overlaid := final + ".overlay.mp4"
		defer os.Remove(overlaid)
		applied, err := compositor.Apply(ctx, p.tools, geometry, work, overlaid)
		if err != nil {
			return "", err
		}
		if applied {
			work = overlaid
		}
	}

	if err := fileutil.MoveFileAtomic(work, final); err != nil {
		return "", services.Wrap(services.ErrRender, "project", "build segment", "store segment artifact", err)
	}
	// Stale narrated variants of this segment are now out of date.
	if _, err := p.cache.Combined.InvalidateFor(id, mode, ""); err != nil {
		return "", err
	}
	p.recordGeneratedConsumers(ctx, seg, mode)
	return final, nil
}

// recordGeneratedConsumers notes which generated-layer artifacts this
// segment drew from, feeding ledger-assisted invalidation. Without a
// ledger the calls are no-ops.
func (p *Project) recordGeneratedConsumers(ctx context.Context, seg segments.Segment, mode string) {
	ref := cache.SegmentRef{SegmentID: seg.ID(), Mode: mode}
	for _, key := range generatedKeys(seg) {
		if err := p.cache.RecordGenerated(ctx, key, ref); err != nil {
			p.logger.Warn("ledger record failed",
				logging.String(logging.FieldSegment, seg.ID()),
				logging.Error(err))
		}
	}
}

// generatedKeys lists the generated-layer cache keys a segment consumes.
func generatedKeys(seg segments.Segment) []string {
	switch s := seg.(type) {
	case *segments.Video:
		if s.Source != nil {
			return []string{s.Source.CacheKey()}
		}
	case *segments.Grid:
		keys := make([]string, 0, len(s.Cells))
		for _, cell := range s.Cells {
			if cell.Source != nil {
				keys = append(keys, cell.Source.CacheKey())
			}
		}
		return keys
	case *remotion.Segment:
		return []string{s.Gen.CacheKey()}
	case *remotion.Transition:
		return []string{s.CacheKey()}
	}
	return nil
}

// BuildSegmentWithAudio produces the narrated combined artifact for the
// segment, returning its cache path. Segments without narration get a
// silent audio track so every combined artifact has uniform streams.
func (p *Project) BuildSegmentWithAudio(ctx context.Context, id string, force bool) (string, error) {
	seg, ok := p.SegmentByID(id)
	if !ok {
		return "", services.Wrap(services.ErrValidation, "project", "build combined", "unknown segment "+id, nil)
	}
	mode := p.cfg.Mode()
	engine := p.Engine()
	final := p.cache.Combined.PathFor(id, mode, engine)
	if !force && p.cache.Combined.ExistsFor(id, mode, engine) {
		p.logger.Debug("combined cache hit", logging.String(logging.FieldSegment, id))
		return final, nil
	}

	video, err := p.BuildSegment(ctx, id, force)
	if err != nil {
		return "", err
	}
	videoLen, err := p.tools.ProbeDuration(ctx, video)
	if err != nil {
		return "", err
	}

	work := final + ".build.mp4"
	defer os.Remove(work)

	narration := seg.Narration()
	if narration != "" && p.speech != nil {
		audio, err := p.speech.Speak(ctx, narration)
		if err != nil {
			return "", err
		}
		audioLen, err := p.tools.ProbeDuration(ctx, audio)
		if err != nil {
			return "", err
		}
		if _, err := p.sync.Sync(ctx, video, videoLen, audio, audioLen, work); err != nil {
			return "", err
		}
		if err := p.cache.RecordTTS(ctx, p.speech.Key(narration), cache.CombinedRef{SegmentID: id, Mode: mode, Engine: engine}); err != nil {
			p.logger.Warn("ledger record failed",
				logging.String(logging.FieldSegment, id),
				logging.Error(err))
		}
	} else {
		if err := p.tools.AddSilentAudio(ctx, video, videoLen, work); err != nil {
			return "", err
		}
	}

	if err := fileutil.MoveFileAtomic(work, final); err != nil {
		return "", services.Wrap(services.ErrRender, "project", "build combined", "store combined artifact", err)
	}
	return final, nil
}

// prepareTransitions builds the neighbors of every transition that still
// needs rendering, then extracts their boundary frames. Transitions whose
// segment artifact is already cached need no frames and are left alone, so
// a re-run with a warm cache does no work here. Transitions without both
// neighbors are skipped with a warning; the returned skipped set names
// them, and the prebuilt set names neighbors this pass already rebuilt so
// the main loop does not force them a second time.
func (p *Project) prepareTransitions(ctx context.Context, force bool) (skipped, prebuilt map[string]bool, err error) {
	skipped = make(map[string]bool)
	prebuilt = make(map[string]bool)
	framesDir := filepath.Join(p.cache.BaseDir(), "frames")
	for i, seg := range p.segs {
		tr, ok := seg.(*remotion.Transition)
		if !ok {
			continue
		}
		prev, next := p.neighbors(i)
		if prev == nil || next == nil {
			p.logger.Warn("transition has no neighbor on one side, skipping",
				logging.String(logging.FieldSegment, tr.ID()))
			skipped[tr.ID()] = true
			continue
		}
		if !force && p.cache.Segments.ExistsFor(tr.ID(), p.cfg.Mode()) {
			continue
		}
		if err := os.MkdirAll(framesDir, 0o755); err != nil {
			return nil, nil, services.Wrap(services.ErrRender, "project", "prepare transitions", "create frames dir", err)
		}
		prevVideo, err := p.buildNeighbor(ctx, prev.ID(), force, prebuilt)
		if err != nil {
			return nil, nil, err
		}
		nextVideo, err := p.buildNeighbor(ctx, next.ID(), force, prebuilt)
		if err != nil {
			return nil, nil, err
		}
		prevFrame := filepath.Join(framesDir, prev.ID()+"_exit.png")
		nextFrame := filepath.Join(framesDir, next.ID()+"_entry.png")
		if err := p.tools.ExtractFrame(ctx, prevVideo, true, prevFrame); err != nil {
			return nil, nil, err
		}
		if err := p.tools.ExtractFrame(ctx, nextVideo, false, nextFrame); err != nil {
			return nil, nil, err
		}
		tr.SetFrames(prevFrame, nextFrame)
	}
	return skipped, prebuilt, nil
}

// buildNeighbor builds one transition neighbor, forcing it at most once
// per pass even when two transitions share it.
func (p *Project) buildNeighbor(ctx context.Context, id string, force bool, prebuilt map[string]bool) (string, error) {
	path, err := p.BuildSegment(ctx, id, force && !prebuilt[id])
	if err != nil {
		return "", err
	}
	if force {
		prebuilt[id] = true
	}
	return path, nil
}

// neighbors returns the nearest non-transition segments on either side of
// index i.
func (p *Project) neighbors(i int) (segments.Segment, segments.Segment) {
	var prev, next segments.Segment
	for j := i - 1; j >= 0; j-- {
		if _, isTr := p.segs[j].(*remotion.Transition); !isTr {
			prev = p.segs[j]
			break
		}
	}
	for j := i + 1; j < len(p.segs); j++ {
		if _, isTr := p.segs[j].(*remotion.Transition); !isTr {
			next = p.segs[j]
			break
		}
	}
	return prev, next
}

// BuildAll builds every segment's combined artifact in timeline order and
// returns their paths. Transitions missing a neighbor are dropped from the
// output.
func (p *Project) BuildAll(ctx context.Context, force bool) ([]string, error) {
	if len(p.segs) == 0 {
		return nil, services.Wrap(services.ErrValidation, "project", "build all", "project has no segments", nil)
	}
	skipped, prebuilt, err := p.prepareTransitions(ctx, force)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(p.segs))
	for _, seg := range p.segs {
		if skipped[seg.ID()] {
			continue
		}
		// A neighbor the pre-pass already rebuilt keeps its fresh artifact;
		// its stale combined variant was invalidated by that rebuild.
		path, err := p.BuildSegmentWithAudio(ctx, seg.ID(), force && !prebuilt[seg.ID()])
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", seg.ID(), err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Export builds everything and joins the combined artifacts into the final
// video under the output directory. Stream copy is the default; reencode
// forces a full re-encode for inputs with mismatched parameters.
func (p *Project) Export(ctx context.Context, filename string, force, reencode bool) (string, error) {
	paths, err := p.BuildAll(ctx, force)
	if err != nil {
		return "", err
	}
	out := filepath.Join(p.cfg.OutputDir, filename)
	work := out + ".export.mp4"
	defer os.Remove(work)
	if reencode {
		err = p.tools.ConcatReencode(ctx, paths, work)
	} else {
		err = p.tools.Concat(ctx, paths, work)
	}
	if err != nil {
		return "", err
	}
	if err := fileutil.MoveFileAtomic(work, out); err != nil {
		return "", services.Wrap(services.ErrRender, "project", "export", "store final video", err)
	}
	p.logger.Info("exported presentation",
		logging.String("output", out),
		logging.Int("segments", len(paths)))
	return out, nil
}

// CheckDependencies reports availability of the external binaries the
// current configuration needs. Missing required entries mean builds will
// fail at the first render.
func (p *Project) CheckDependencies() []deps.Status {
	return deps.CheckBinaries(deps.Requirements(p.cfg))
}

// Status reports cache state for one segment under the current mode and
// engine.
func (p *Project) Status(id string) cache.Status {
	return p.cache.Status(id, p.cfg.Mode(), p.Engine(), p.Voice())
}

// StatusAll reports cache state for the whole timeline.
func (p *Project) StatusAll() map[string]cache.Status {
	return p.cache.StatusAll(p.SegmentIDs(), p.cfg.Mode(), p.Engine(), p.Voice())
}
