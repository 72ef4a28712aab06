package segments

import (
	"context"
	"errors"
	"strings"
	"testing"

	"vidkit/internal/cache"
	"vidkit/internal/config"
	"vidkit/internal/logging"
	"vidkit/internal/media"
	"vidkit/internal/services"
	"vidkit/internal/sources"
)

type fakeExecutor struct {
	calls [][]string
}

func (f *fakeExecutor) Run(_ context.Context, binary string, args []string) (string, string, error) {
	f.calls = append(f.calls, append([]string{binary}, args...))
	return "5.0\n", "", nil
}

func (f *fakeExecutor) joined(i int) string {
	return strings.Join(f.calls[i], " ")
}

type staticSource struct {
	key  string
	clip media.Clip
	err  error
}

func (s *staticSource) CacheKey() string { return s.key }

func (s *staticSource) Clip(context.Context, *sources.RenderEnv) (media.Clip, error) {
	return s.clip, s.err
}

func newTestEnv(t *testing.T, exec media.Executor) *sources.RenderEnv {
	t.Helper()
	cfg := config.Default()
	cfg.CacheDir = t.TempDir()
	tools, err := media.NewToolchain(cfg, logging.NewNop(), media.WithExecutor(exec))
	if err != nil {
		t.Fatalf("NewToolchain failed: %v", err)
	}
	mgr, err := cache.NewManager(cfg.CacheDir, logging.NewNop())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return &sources.RenderEnv{Config: cfg, Tools: tools, Generated: mgr.Generated, Logger: logging.NewNop()}
}

func TestTitleRequiresDuration(t *testing.T) {
	title := NewTitle("intro", "Welcome", 0)
	_, err := title.Duration(context.Background(), newTestEnv(t, &fakeExecutor{}))
	if !errors.Is(err, services.ErrValidation) {
		t.Errorf("zero duration should fail validation, got %v", err)
	}
}

func TestTitleRenderInvokesCard(t *testing.T) {
	exec := &fakeExecutor{}
	env := newTestEnv(t, exec)
	title := NewTitle("intro", "Welcome", 3)
	title.SubtitleText = "Part One"
	if err := title.Render(context.Background(), env, "/tmp/intro.mp4"); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	joined := exec.joined(0)
	if !strings.Contains(joined, "Welcome") || !strings.Contains(joined, "Part One") {
		t.Errorf("card invocation missing text: %s", joined)
	}
}

func TestVideoDurationFromSource(t *testing.T) {
	env := newTestEnv(t, &fakeExecutor{})
	src := &staticSource{key: "k", clip: media.Clip{Path: "/tmp/a.mp4", Duration: 9.5}}
	seg := NewVideo("demo", src)
	d, err := seg.Duration(context.Background(), env)
	if err != nil {
		t.Fatalf("Duration failed: %v", err)
	}
	if d != 9.5 {
		t.Errorf("duration = %v, want 9.5 from source", d)
	}

	seg.Length = 4
	d, err = seg.Duration(context.Background(), env)
	if err != nil {
		t.Fatalf("Duration failed: %v", err)
	}
	if d != 4 {
		t.Errorf("explicit duration = %v, want 4", d)
	}
}

func TestVideoWithoutSourceFails(t *testing.T) {
	env := newTestEnv(t, &fakeExecutor{})
	seg := NewVideo("demo", nil)
	if _, err := seg.Duration(context.Background(), env); !errors.Is(err, services.ErrValidation) {
		t.Errorf("missing source should fail validation, got %v", err)
	}
	if err := seg.Render(context.Background(), env, "/tmp/out.mp4"); !errors.Is(err, services.ErrValidation) {
		t.Errorf("missing source should fail render, got %v", err)
	}
}

func TestVideoRenderTrimsWhenShorter(t *testing.T) {
	exec := &fakeExecutor{}
	env := newTestEnv(t, exec)
	src := &staticSource{key: "k", clip: media.Clip{Path: "/tmp/a.mp4", Duration: 10}}
	seg := NewVideo("demo", src)
	seg.Length = 4
	if err := seg.Render(context.Background(), env, "/tmp/out.mp4"); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(exec.calls) != 2 {
		t.Fatalf("expected normalize then trim, got %d calls", len(exec.calls))
	}
	if !strings.Contains(exec.joined(1), "-t 4.000") {
		t.Errorf("second pass should trim to 4s: %s", exec.joined(1))
	}
}

func TestVideoRenderExtendsWhenLonger(t *testing.T) {
	exec := &fakeExecutor{}
	env := newTestEnv(t, exec)
	src := &staticSource{key: "k", clip: media.Clip{Path: "/tmp/a.mp4", Duration: 2}}
	seg := NewVideo("demo", src)
	seg.Length = 6
	if err := seg.Render(context.Background(), env, "/tmp/out.mp4"); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(exec.joined(1), "tpad") {
		t.Errorf("extension should freeze the last frame: %s", exec.joined(1))
	}
}

func TestImageRequiresDurationAndFile(t *testing.T) {
	env := newTestEnv(t, &fakeExecutor{})
	img := NewImage("pic", "/nonexistent/p.png", 0)
	if _, err := img.Duration(context.Background(), env); !errors.Is(err, services.ErrValidation) {
		t.Errorf("zero duration should fail validation, got %v", err)
	}
	img.Length = 3
	if err := img.Render(context.Background(), env, "/tmp/out.mp4"); !errors.Is(err, services.ErrValidation) {
		t.Errorf("missing image should fail validation, got %v", err)
	}
}

func TestGridAutoPlacementRowMajor(t *testing.T) {
	g := NewGrid("g", 2, 2, 5)
	for i := 0; i < 4; i++ {
		g.Add(&staticSource{})
	}
	placements, err := g.layout()
	if err != nil {
		t.Fatalf("layout failed: %v", err)
	}
	want := [][2]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	for i, p := range placements {
		if p.row != want[i][0] || p.col != want[i][1] {
			t.Errorf("cell %d at %d,%d, want %d,%d", i, p.row, p.col, want[i][0], want[i][1])
		}
	}
}

func TestGridPinnedCellsTakePrecedence(t *testing.T) {
	g := NewGrid("g", 2, 2, 5)
	g.Add(&staticSource{})
	g.AddAt(&staticSource{}, 0, 0, 1, 1)
	placements, err := g.layout()
	if err != nil {
		t.Fatalf("layout failed: %v", err)
	}
	if placements[1].row != 0 || placements[1].col != 0 {
		t.Errorf("pinned cell at %d,%d, want 0,0", placements[1].row, placements[1].col)
	}
	if placements[0].row == 0 && placements[0].col == 0 {
		t.Error("auto cell must flow around the pinned slot")
	}
}

func TestGridSpanClaimsMultipleSlots(t *testing.T) {
	g := NewGrid("g", 2, 2, 5)
	g.AddAt(&staticSource{}, 0, 0, 1, 2)
	g.Add(&staticSource{})
	placements, err := g.layout()
	if err != nil {
		t.Fatalf("layout failed: %v", err)
	}
	if placements[1].row != 1 {
		t.Errorf("auto cell should land below the span, got row %d", placements[1].row)
	}
}

func TestGridCollisionRejected(t *testing.T) {
	g := NewGrid("g", 2, 2, 5)
	g.AddAt(&staticSource{}, 0, 0, 1, 1)
	g.AddAt(&staticSource{}, 0, 0, 1, 1)
	if _, err := g.layout(); !errors.Is(err, services.ErrValidation) {
		t.Errorf("colliding cells should fail validation, got %v", err)
	}
}

func TestGridOverflowRejected(t *testing.T) {
	g := NewGrid("g", 1, 1, 5)
	g.Add(&staticSource{})
	g.Add(&staticSource{})
	if _, err := g.layout(); !errors.Is(err, services.ErrValidation) {
		t.Errorf("overflowing cells should fail validation, got %v", err)
	}
}

func TestGridRenderComposesCells(t *testing.T) {
	exec := &fakeExecutor{}
	env := newTestEnv(t, exec)
	g := NewGrid("g", 1, 2, 5)
	g.Add(&staticSource{clip: media.Clip{Path: "/tmp/a.mp4", Duration: 5}})
	g.Add(&staticSource{clip: media.Clip{Path: "/tmp/b.mp4", Duration: 5}})
	if err := g.Render(context.Background(), env, "/tmp/grid.mp4"); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	joined := exec.joined(0)
	if !strings.Contains(joined, "/tmp/a.mp4") || !strings.Contains(joined, "/tmp/b.mp4") {
		t.Errorf("grid invocation missing cell inputs: %s", joined)
	}
}

func TestGridRenderLabelsCells(t *testing.T) {
	exec := &fakeExecutor{}
	env := newTestEnv(t, exec)
	g := NewGrid("g", 1, 2, 5)
	g.AddLabeled(&staticSource{clip: media.Clip{Path: "/tmp/a.mp4", Duration: 5}}, "before")
	g.Add(&staticSource{clip: media.Clip{Path: "/tmp/b.mp4", Duration: 5}})
	if err := g.Render(context.Background(), env, "/tmp/grid.mp4"); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	joined := exec.joined(0)
	if !strings.Contains(joined, "drawtext=text='before'") {
		t.Errorf("labeled cell caption missing from invocation: %s", joined)
	}
}

func TestBaseBuilders(t *testing.T) {
	b := NewBase("seg-1").WithNarration("hello").WithSection("intro").WithOverlays(NoOverlays())
	if b.ID() != "seg-1" || b.Narration() != "hello" || b.Section() != "intro" {
		t.Errorf("builder fields lost: %+v", b)
	}
	if !b.Overlays().Effective(testDefaults(), b.Section(), b.Narration()).Empty() {
		t.Error("overlay spec lost through builder")
	}
}
