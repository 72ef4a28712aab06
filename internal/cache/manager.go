package cache

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"vidkit/internal/logging"
)

// SegmentRef identifies one layer-2 artifact.
type SegmentRef struct {
	SegmentID string
	Mode      string
}

// CombinedRef identifies one layer-3 artifact.
type CombinedRef struct {
	SegmentID string
	Mode      string
	Engine    string
}

// Status reports artifact presence for one segment at layers 2 and 3.
// Layers 0 and 1 are reported by their owning source or engine, not here.
type Status struct {
	Segment  bool `json:"segment"`
	Combined bool `json:"combined"`
}

// Counts tallies deletions per layer after an invalidation or clear.
type Counts struct {
	Generated int `json:"generated"`
	TTS       int `json:"tts"`
	Segments  int `json:"segments"`
	Combined  int `json:"combined"`
}

// Manager owns the four cache layers and implements cascading invalidation
// across the dependency graph. Cascades always run downstream; callers
// enumerate cross-layer dependents explicitly unless a Ledger is attached.
type Manager struct {
	base   string
	logger *slog.Logger
	ledger *Ledger

	Generated *GeneratedLayer
	TTS       *TTSLayer
	Segments  *SegmentsLayer
	Combined  *CombinedLayer
}

// Option configures the manager.
type Option func(*Manager)

// WithLedger attaches a dependency ledger enabling the Auto invalidation
// variants. The manual-cascade contract is unchanged either way.
func WithLedger(ledger *Ledger) Option {
	return func(m *Manager) { m.ledger = ledger }
}

// NewManager creates all four layers under baseDir.
func NewManager(baseDir string, logger *slog.Logger, opts ...Option) (*Manager, error) {
	m := &Manager{
		base:   baseDir,
		logger: logging.NewComponentLogger(logger, "cache"),
	}
	var err error
	if m.Generated, err = NewGeneratedLayer(filepath.Join(baseDir, "generated")); err != nil {
		return nil, err
	}
	if m.TTS, err = NewTTSLayer(filepath.Join(baseDir, "tts")); err != nil {
		return nil, err
	}
	if m.Segments, err = NewSegmentsLayer(filepath.Join(baseDir, "segments")); err != nil {
		return nil, err
	}
	if m.Combined, err = NewCombinedLayer(filepath.Join(baseDir, "combined")); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// BaseDir returns the cache root.
func (m *Manager) BaseDir() string { return m.base }

// Ledger returns the attached dependency ledger, or nil.
func (m *Manager) Ledger() *Ledger { return m.ledger }

// Status reports layer-2/layer-3 presence for the given coordinates.
func (m *Manager) Status(segmentID, mode, engine, voice string) Status {
	_ = voice // voice is folded into the engine cache key upstream
	return Status{
		Segment:  m.Segments.ExistsFor(segmentID, mode),
		Combined: m.Combined.ExistsFor(segmentID, mode, engine),
	}
}

// StatusAll reports status for multiple segments, keyed by segment id.
func (m *Manager) StatusAll(segmentIDs []string, mode, engine, voice string) map[string]Status {
	statuses := make(map[string]Status, len(segmentIDs))
	for _, id := range segmentIDs {
		statuses[id] = m.Status(id, mode, engine, voice)
	}
	return statuses
}

// InvalidateSegment deletes the layer-2 artifact. With cascade, every layer-3
// artifact for the same (segment, mode) is deleted regardless of engine,
// since they were all derived from the removed segment video.
func (m *Manager) InvalidateSegment(segmentID, mode string, cascade bool) (Counts, error) {
	var counts Counts

	deleted, err := m.Segments.InvalidateFor(segmentID, mode)
	if err != nil {
		return counts, err
	}
	if deleted {
		counts.Segments = 1
	}

	if cascade {
		n, err := m.Combined.InvalidateFor(segmentID, mode, "")
		if err != nil {
			return counts, err
		}
		counts.Combined = n
	}

	m.logger.Debug("invalidated segment cache",
		logging.String(logging.FieldSegment, segmentID),
		logging.String("mode", mode),
		logging.Bool("cascade", cascade),
		logging.Int("segments_deleted", counts.Segments),
		logging.Int("combined_deleted", counts.Combined))
	return counts, nil
}

// InvalidateGenerated deletes the layer-0 artifact for key and cascades into
// each dependent (segment, mode) the caller names. Dependents are not tracked
// automatically; see InvalidateGeneratedAuto for the ledger-backed variant.
func (m *Manager) InvalidateGenerated(key string, dependents []SegmentRef) (Counts, error) {
	var counts Counts

	deleted, err := m.Generated.Invalidate(key, "")
	if err != nil {
		return counts, err
	}
	if deleted {
		counts.Generated = 1
	}

	for _, ref := range dependents {
		cascade, err := m.InvalidateSegment(ref.SegmentID, ref.Mode, true)
		if err != nil {
			return counts, err
		}
		counts.Segments += cascade.Segments
		counts.Combined += cascade.Combined
	}
	return counts, nil
}

// InvalidateTTS deletes the layer-1 artifact for key and cascades into each
// dependent layer-3 artifact the caller names. TTS never touches layer 2.
func (m *Manager) InvalidateTTS(key string, dependents []CombinedRef) (Counts, error) {
	var counts Counts

	deleted, err := m.TTS.Invalidate(key)
	if err != nil {
		return counts, err
	}
	if deleted {
		counts.TTS = 1
	}

	for _, ref := range dependents {
		n, err := m.Combined.InvalidateFor(ref.SegmentID, ref.Mode, ref.Engine)
		if err != nil {
			return counts, err
		}
		counts.Combined += n
	}
	return counts, nil
}

// InvalidateGeneratedAuto is InvalidateGenerated with dependents read from
// the attached ledger. The consumed ledger rows are removed afterwards.
func (m *Manager) InvalidateGeneratedAuto(ctx context.Context, key string) (Counts, error) {
	if m.ledger == nil {
		return Counts{}, fmt.Errorf("cache: no ledger attached; use InvalidateGenerated with explicit dependents")
	}
	dependents, err := m.ledger.GeneratedDependents(ctx, key)
	if err != nil {
		return Counts{}, err
	}
	counts, err := m.InvalidateGenerated(key, dependents)
	if err != nil {
		return counts, err
	}
	if err := m.ledger.ForgetGenerated(ctx, key); err != nil {
		return counts, err
	}
	return counts, nil
}

// InvalidateTTSAuto is InvalidateTTS with dependents read from the ledger.
func (m *Manager) InvalidateTTSAuto(ctx context.Context, key string) (Counts, error) {
	if m.ledger == nil {
		return Counts{}, fmt.Errorf("cache: no ledger attached; use InvalidateTTS with explicit dependents")
	}
	dependents, err := m.ledger.TTSDependents(ctx, key)
	if err != nil {
		return Counts{}, err
	}
	counts, err := m.InvalidateTTS(key, dependents)
	if err != nil {
		return counts, err
	}
	if err := m.ledger.ForgetTTS(ctx, key); err != nil {
		return counts, err
	}
	return counts, nil
}

// RecordGenerated notes that a segment build consumed a generated key.
// A no-op without a ledger.
func (m *Manager) RecordGenerated(ctx context.Context, key string, ref SegmentRef) error {
	if m.ledger == nil {
		return nil
	}
	return m.ledger.RecordGenerated(ctx, key, ref)
}

// RecordTTS notes that a combined build consumed a TTS key. A no-op without
// a ledger.
func (m *Manager) RecordTTS(ctx context.Context, key string, ref CombinedRef) error {
	if m.ledger == nil {
		return nil
	}
	return m.ledger.RecordTTS(ctx, key, ref)
}

// ClearAll wipes every layer unconditionally.
func (m *Manager) ClearAll() (Counts, error) {
	var counts Counts
	var err error
	if counts.Generated, err = m.Generated.Clear(); err != nil {
		return counts, err
	}
	if counts.TTS, err = m.TTS.Clear(); err != nil {
		return counts, err
	}
	if counts.Segments, err = m.Segments.Clear(); err != nil {
		return counts, err
	}
	if counts.Combined, err = m.Combined.Clear(); err != nil {
		return counts, err
	}
	m.logger.Info("cleared all cache layers",
		logging.Int("generated", counts.Generated),
		logging.Int("tts", counts.TTS),
		logging.Int("segments", counts.Segments),
		logging.Int("combined", counts.Combined))
	return counts, nil
}
