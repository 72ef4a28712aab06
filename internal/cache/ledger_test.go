package cache

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	ledger, err := OpenLedger(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("OpenLedger failed: %v", err)
	}
	t.Cleanup(func() { _ = ledger.Close() })
	return ledger
}

func TestLedgerRecordAndQuery(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)

	ref := SegmentRef{SegmentID: "chart", Mode: "standard"}
	if err := ledger.RecordGenerated(ctx, "k0", ref); err != nil {
		t.Fatalf("RecordGenerated failed: %v", err)
	}
	// Re-recording the same consumer is an upsert, not a duplicate.
	if err := ledger.RecordGenerated(ctx, "k0", ref); err != nil {
		t.Fatalf("repeat RecordGenerated failed: %v", err)
	}

	deps, err := ledger.GeneratedDependents(ctx, "k0")
	if err != nil {
		t.Fatalf("GeneratedDependents failed: %v", err)
	}
	if len(deps) != 1 || deps[0] != ref {
		t.Errorf("dependents = %+v, want exactly %+v", deps, ref)
	}

	deps, err = ledger.GeneratedDependents(ctx, "unknown")
	if err != nil {
		t.Fatalf("GeneratedDependents for unknown key failed: %v", err)
	}
	if len(deps) != 0 {
		t.Errorf("unknown key has dependents %+v", deps)
	}
}

func TestAutoCascadeMatchesManual(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)
	m := newTestManager(t, WithLedger(ledger))

	touch(t, m.Generated.Path("genkey", ""))
	touch(t, m.Segments.PathFor("7", "standard"))
	touch(t, m.Combined.PathFor("7", "standard", "soprano"))

	if err := m.RecordGenerated(ctx, "genkey", SegmentRef{SegmentID: "7", Mode: "standard"}); err != nil {
		t.Fatalf("RecordGenerated failed: %v", err)
	}

	counts, err := m.InvalidateGeneratedAuto(ctx, "genkey")
	if err != nil {
		t.Fatalf("InvalidateGeneratedAuto failed: %v", err)
	}
	if counts.Generated != 1 || counts.Segments != 1 || counts.Combined != 1 {
		t.Errorf("counts = %+v, want 1/1/1", counts)
	}

	// Rows are consumed; a second auto invalidation has nothing to cascade.
	deps, err := ledger.GeneratedDependents(ctx, "genkey")
	if err != nil {
		t.Fatalf("GeneratedDependents failed: %v", err)
	}
	if len(deps) != 0 {
		t.Errorf("ledger rows should be forgotten, got %+v", deps)
	}
}

func TestAutoTTSInvalidation(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)
	m := newTestManager(t, WithLedger(ledger))

	key := m.TTS.Key("narration", "soprano", "nova", nil)
	touch(t, m.TTS.Path(key))
	touch(t, m.Segments.PathFor("2", "standard"))
	touch(t, m.Combined.PathFor("2", "standard", "soprano"))

	ref := CombinedRef{SegmentID: "2", Mode: "standard", Engine: "soprano"}
	if err := m.RecordTTS(ctx, key, ref); err != nil {
		t.Fatalf("RecordTTS failed: %v", err)
	}

	counts, err := m.InvalidateTTSAuto(ctx, key)
	if err != nil {
		t.Fatalf("InvalidateTTSAuto failed: %v", err)
	}
	if counts.TTS != 1 || counts.Combined != 1 {
		t.Errorf("counts = %+v", counts)
	}
	if !m.Segments.ExistsFor("2", "standard") {
		t.Error("auto tts cascade must not touch layer 2")
	}
}

func TestAutoInvalidationRequiresLedger(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.InvalidateGeneratedAuto(context.Background(), "k"); err == nil {
		t.Fatal("expected error without an attached ledger")
	}
}
