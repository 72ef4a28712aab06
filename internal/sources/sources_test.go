package sources

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"vidkit/internal/cache"
	"vidkit/internal/cachekey"
	"vidkit/internal/config"
	"vidkit/internal/logging"
	"vidkit/internal/media"
	"vidkit/internal/services"
)

type fakeExecutor struct {
	calls  int
	stdout string
	err    error
	onRun  func(binary string, args []string)
}

func (f *fakeExecutor) Run(_ context.Context, binary string, args []string) (string, string, error) {
	f.calls++
	if f.onRun != nil {
		f.onRun(binary, args)
	}
	return f.stdout, "", f.err
}

func newTestEnv(t *testing.T, exec media.Executor) *RenderEnv {
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
	return &RenderEnv{Config: cfg, Tools: tools, Generated: mgr.Generated, Logger: logging.NewNop()}
}

func TestAssetClipProbesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	env := newTestEnv(t, &fakeExecutor{stdout: "7.5\n"})
	clip, err := NewAsset(path).Clip(context.Background(), env)
	if err != nil {
		t.Fatalf("Clip failed: %v", err)
	}
	if clip.Duration != 7.5 {
		t.Errorf("duration = %v, want 7.5", clip.Duration)
	}
	if clip.Path != path {
		t.Errorf("path = %s, want %s", clip.Path, path)
	}
}

func TestAssetClipMissingFile(t *testing.T) {
	env := newTestEnv(t, &fakeExecutor{})
	_, err := NewAsset("/nonexistent/clip.mp4").Clip(context.Background(), env)
	if !errors.Is(err, services.ErrValidation) {
		t.Errorf("missing asset should fail validation, got %v", err)
	}
}

func TestAssetCacheKeyStableAndPathSensitive(t *testing.T) {
	a := NewAsset("/media/a.mp4")
	b := NewAsset("/media/b.mp4")
	if a.CacheKey() != NewAsset("/media/a.mp4").CacheKey() {
		t.Error("identical assets must share a key")
	}
	if a.CacheKey() == b.CacheKey() {
		t.Error("different paths must produce different keys")
	}
	if len(a.CacheKey()) != cachekey.KeyLength {
		t.Errorf("key length = %d, want %d", len(a.CacheKey()), cachekey.KeyLength)
	}
}

func TestPlaceholderRendersThroughCache(t *testing.T) {
	exec := &fakeExecutor{stdout: "3.0\n"}
	env := newTestEnv(t, exec)
	p := NewPlaceholder("Coming Soon", 3)

	// Simulate the render writing real output so a second call hits cache.
	exec.onRun = func(binary string, args []string) {
		out := args[len(args)-1]
		if filepath.Ext(out) == ".mp4" {
			os.WriteFile(out, []byte("rendered"), 0o644)
		}
	}

	clip, err := p.Clip(context.Background(), env)
	if err != nil {
		t.Fatalf("Clip failed: %v", err)
	}
	if clip.Path != env.Generated.Path(p.CacheKey(), cache.DefaultGeneratedExt) {
		t.Errorf("clip path should be the cache path, got %s", clip.Path)
	}
	renders := exec.calls

	if _, err := p.Clip(context.Background(), env); err != nil {
		t.Fatalf("second Clip failed: %v", err)
	}
	// Only the cached-path probes run again; no additional render.
	if exec.calls-renders > 2 {
		t.Errorf("cache hit should not re-render, calls went %d -> %d", renders, exec.calls)
	}
}

func TestFuncGeneratorKeyDependsOnParams(t *testing.T) {
	a := NewFuncGenerator("chart", map[string]any{"series": []string{"x"}}, nil)
	b := NewFuncGenerator("chart", map[string]any{"series": []string{"y"}}, nil)
	if a.CacheKey() == b.CacheKey() {
		t.Error("different params must produce different keys")
	}
	if a.CacheKey() != NewFuncGenerator("chart", map[string]any{"series": []string{"x"}}, nil).CacheKey() {
		t.Error("identical generators must share a key")
	}
}

func TestFuncGeneratorWithoutCallbackFails(t *testing.T) {
	env := newTestEnv(t, &fakeExecutor{})
	g := NewFuncGenerator("empty", nil, nil)
	if _, err := g.Clip(context.Background(), env); !errors.Is(err, services.ErrValidation) {
		t.Errorf("nil callback should fail validation, got %v", err)
	}
}

func TestFuncGeneratorInvokesCallbackOnce(t *testing.T) {
	exec := &fakeExecutor{stdout: "2.0\n"}
	env := newTestEnv(t, exec)
	invocations := 0
	g := NewFuncGenerator("counter", nil, func(_ context.Context, _ *RenderEnv, out string) error {
		invocations++
		return os.WriteFile(out, []byte("artifact"), 0o644)
	})
	if _, err := g.Clip(context.Background(), env); err != nil {
		t.Fatalf("first Clip failed: %v", err)
	}
	if _, err := g.Clip(context.Background(), env); err != nil {
		t.Fatalf("second Clip failed: %v", err)
	}
	if invocations != 1 {
		t.Errorf("callback ran %d times, want 1", invocations)
	}
}

func TestScriptGeneratorExpandsTemplate(t *testing.T) {
	env := newTestEnv(t, &fakeExecutor{})
	g := NewScriptGenerator("render.sh --scene {scene} --out {output}", map[string]string{"scene": "intro"})
	binary, args, err := g.expand(env, "/tmp/out.mp4")
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}
	if binary != "render.sh" {
		t.Errorf("binary = %s, want render.sh", binary)
	}
	want := []string{"--scene", "intro", "--out", "/tmp/out.mp4"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %s, want %s", i, args[i], want[i])
		}
	}
}

func TestScriptGeneratorExpandsDimensions(t *testing.T) {
	env := newTestEnv(t, &fakeExecutor{})
	g := NewScriptGenerator("render.sh --size {width}x{height} --fps {fps} {output}", nil)
	_, args, err := g.expand(env, "/tmp/out.mp4")
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}
	wantSize := fmt.Sprintf("%dx%d", env.Config.Width(), env.Config.Height())
	if args[1] != wantSize {
		t.Errorf("size arg = %s, want %s", args[1], wantSize)
	}
	if args[3] != strconv.Itoa(env.Config.FPS) {
		t.Errorf("fps arg = %s, want %d", args[3], env.Config.FPS)
	}
}

func TestScriptGeneratorUnknownPlaceholder(t *testing.T) {
	env := newTestEnv(t, &fakeExecutor{})
	g := NewScriptGenerator("render.sh {missing}", nil)
	if _, _, err := g.expand(env, "/tmp/out.mp4"); !errors.Is(err, services.ErrValidation) {
		t.Errorf("unknown placeholder should fail validation, got %v", err)
	}
}

func TestScriptGeneratorKeyChangesWithTemplate(t *testing.T) {
	a := NewScriptGenerator("render.sh {output}", nil)
	b := NewScriptGenerator("render.sh --hq {output}", nil)
	if a.CacheKey() == b.CacheKey() {
		t.Error("template change must change the key")
	}
}

func TestScriptGeneratorRunsCommand(t *testing.T) {
	probe := &fakeExecutor{stdout: "4.0\n"}
	env := newTestEnv(t, probe)

	script := &fakeExecutor{}
	g := NewScriptGenerator("gen {output}", nil)
	g.Exec = script
	script.onRun = func(_ string, args []string) {
		os.WriteFile(args[len(args)-1], []byte("artifact"), 0o644)
	}

	clip, err := g.Clip(context.Background(), env)
	if err != nil {
		t.Fatalf("Clip failed: %v", err)
	}
	if script.calls != 1 {
		t.Errorf("script ran %d times, want 1", script.calls)
	}
	if clip.Duration != 4.0 {
		t.Errorf("duration = %v, want 4.0", clip.Duration)
	}
}
