package media

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"vidkit/internal/config"
	"vidkit/internal/logging"
	"vidkit/internal/services"
)

type fakeCall struct {
	binary string
	args   []string
}

type fakeExecutor struct {
	calls  []fakeCall
	stdout string
	stderr string
	err    error
}

func (f *fakeExecutor) Run(_ context.Context, binary string, args []string) (string, string, error) {
	f.calls = append(f.calls, fakeCall{binary: binary, args: append([]string(nil), args...)})
	return f.stdout, f.stderr, f.err
}

func newTestToolchain(t *testing.T, exec Executor) *Toolchain {
	t.Helper()
	cfg := config.Default()
	tc, err := NewToolchain(cfg, logging.NewNop(), WithExecutor(exec))
	if err != nil {
		t.Fatalf("NewToolchain failed: %v", err)
	}
	return tc
}

func TestProbeDurationParsesAndMemoizes(t *testing.T) {
	exec := &fakeExecutor{stdout: "12.480000\n"}
	tc := newTestToolchain(t, exec)

	d, err := tc.ProbeDuration(context.Background(), "/tmp/a.mp4")
	if err != nil {
		t.Fatalf("ProbeDuration failed: %v", err)
	}
	if d != 12.48 {
		t.Errorf("duration = %v, want 12.48", d)
	}
	if _, err := tc.ProbeDuration(context.Background(), "/tmp/a.mp4"); err != nil {
		t.Fatalf("second probe failed: %v", err)
	}
	if len(exec.calls) != 1 {
		t.Errorf("ffprobe invoked %d times, want 1 (memoized)", len(exec.calls))
	}
}

func TestProbeDurationRejectsGarbage(t *testing.T) {
	exec := &fakeExecutor{stdout: "N/A"}
	tc := newTestToolchain(t, exec)
	if _, err := tc.ProbeDuration(context.Background(), "/tmp/a.mp4"); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestHasAudioStream(t *testing.T) {
	exec := &fakeExecutor{stdout: "1\n"}
	tc := newTestToolchain(t, exec)
	has, err := tc.HasAudioStream(context.Background(), "/tmp/a.mp4")
	if err != nil {
		t.Fatalf("HasAudioStream failed: %v", err)
	}
	if !has {
		t.Error("expected audio stream to be detected")
	}

	exec2 := &fakeExecutor{stdout: "\n"}
	tc2 := newTestToolchain(t, exec2)
	has, err = tc2.HasAudioStream(context.Background(), "/tmp/b.mp4")
	if err != nil {
		t.Fatalf("HasAudioStream failed: %v", err)
	}
	if has {
		t.Error("expected no audio stream")
	}
}

func TestRenderCardBuildsLavfiInvocation(t *testing.T) {
	exec := &fakeExecutor{}
	tc := newTestToolchain(t, exec)
	spec := CardSpec{
		Title:      "Hello World",
		Subtitle:   "Part One",
		Duration:   3,
		Width:      1920,
		Height:     1080,
		FPS:        30,
		Background: ColorCardGray,
		TitleColor: ColorInk,
		SubColor:   ColorSubtleInk,
	}
	if err := tc.RenderCard(context.Background(), spec, "/tmp/card.mp4"); err != nil {
		t.Fatalf("RenderCard failed: %v", err)
	}
	joined := strings.Join(exec.calls[0].args, " ")
	if !strings.Contains(joined, "color=c=0xF0F0F5:s=1920x1080") {
		t.Errorf("missing background source in args: %s", joined)
	}
	if !strings.Contains(joined, "Hello World") {
		t.Errorf("missing title text in args: %s", joined)
	}
	if !strings.Contains(joined, "Part One") {
		t.Errorf("missing subtitle text in args: %s", joined)
	}
}

func TestRenderCardEscapesDrawtextSpecials(t *testing.T) {
	exec := &fakeExecutor{}
	tc := newTestToolchain(t, exec)
	spec := CardSpec{Title: "100% done: it's fine", Duration: 2, Width: 854, Height: 480, FPS: 30}
	if err := tc.RenderCard(context.Background(), spec, "/tmp/card.mp4"); err != nil {
		t.Fatalf("RenderCard failed: %v", err)
	}
	joined := strings.Join(exec.calls[0].args, " ")
	for _, escaped := range []string{`\%`, `\:`, `\'`} {
		if !strings.Contains(joined, escaped) {
			t.Errorf("expected %s in drawtext args: %s", escaped, joined)
		}
	}
}

func TestStillVideoZoomOnlyWhenRequested(t *testing.T) {
	exec := &fakeExecutor{}
	tc := newTestToolchain(t, exec)
	spec := StillSpec{Image: "/tmp/pic.png", Duration: 4, Width: 1920, Height: 1080, FPS: 30}
	if err := tc.StillVideo(context.Background(), spec, "/tmp/out.mp4"); err != nil {
		t.Fatalf("StillVideo failed: %v", err)
	}
	if strings.Contains(strings.Join(exec.calls[0].args, " "), "zoompan") {
		t.Error("zoompan present without zoom")
	}

	spec.Zoom = 1.2
	if err := tc.StillVideo(context.Background(), spec, "/tmp/out.mp4"); err != nil {
		t.Fatalf("StillVideo with zoom failed: %v", err)
	}
	if !strings.Contains(strings.Join(exec.calls[1].args, " "), "zoompan") {
		t.Error("zoompan missing with zoom requested")
	}
}

func TestExtractFrameLastUsesSseof(t *testing.T) {
	exec := &fakeExecutor{}
	tc := newTestToolchain(t, exec)
	if err := tc.ExtractFrame(context.Background(), "/tmp/v.mp4", true, "/tmp/last.png"); err != nil {
		t.Fatalf("ExtractFrame failed: %v", err)
	}
	joined := strings.Join(exec.calls[0].args, " ")
	if !strings.Contains(joined, "-sseof") {
		t.Errorf("last frame extraction should seek from end: %s", joined)
	}

	if err := tc.ExtractFrame(context.Background(), "/tmp/v.mp4", false, "/tmp/first.png"); err != nil {
		t.Fatalf("ExtractFrame failed: %v", err)
	}
	if strings.Contains(strings.Join(exec.calls[1].args, " "), "-sseof") {
		t.Error("first frame extraction should not seek from end")
	}
}

func TestExternalToolFailureWrapsSentinel(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("exit status 1"), stderr: "line1\nline2\nsome error"}
	tc := newTestToolchain(t, exec)
	err := tc.ApplyFilters(context.Background(), "/tmp/in.mp4", "hue=s=0", "/tmp/out.mp4")
	if err == nil {
		t.Fatal("expected failure")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Errorf("error should wrap ErrExternalTool: %v", err)
	}
	if !strings.Contains(err.Error(), "some error") {
		t.Errorf("error should carry stderr tail: %v", err)
	}
}

func TestAudioTempoValidatesFactor(t *testing.T) {
	tc := newTestToolchain(t, &fakeExecutor{})
	err := tc.AudioTempo(context.Background(), "/tmp/a.wav", 0, "/tmp/out.wav")
	if !errors.Is(err, services.ErrValidation) {
		t.Errorf("zero factor should fail validation, got %v", err)
	}
}

func TestAudioTempoFilter(t *testing.T) {
	exec := &fakeExecutor{}
	tc := newTestToolchain(t, exec)
	if err := tc.AudioTempo(context.Background(), "/tmp/a.wav", 1.05, "/tmp/out.wav"); err != nil {
		t.Fatalf("AudioTempo failed: %v", err)
	}
	joined := strings.Join(exec.calls[0].args, " ")
	if !strings.Contains(joined, "atempo=1.050") {
		t.Errorf("missing atempo filter: %s", joined)
	}
}

func TestConcatWritesListFile(t *testing.T) {
	exec := &fakeExecutor{}
	tc := newTestToolchain(t, exec)
	dir := t.TempDir()
	inputs := []string{filepath.Join(dir, "a.mp4"), filepath.Join(dir, "b.mp4")}
	if err := tc.Concat(context.Background(), inputs, filepath.Join(dir, "out.mp4")); err != nil {
		t.Fatalf("Concat failed: %v", err)
	}
	joined := strings.Join(exec.calls[0].args, " ")
	if !strings.Contains(joined, "-f concat") {
		t.Errorf("expected concat demuxer: %s", joined)
	}
	if !strings.Contains(joined, "-c copy") {
		t.Errorf("export concat must be stream copy: %s", joined)
	}
}

func TestConcatRejectsEmptyInputs(t *testing.T) {
	tc := newTestToolchain(t, &fakeExecutor{})
	if err := tc.Concat(context.Background(), nil, "/tmp/out.mp4"); !errors.Is(err, services.ErrValidation) {
		t.Errorf("empty concat should fail validation, got %v", err)
	}
}

func TestGridComposeFiltergraph(t *testing.T) {
	exec := &fakeExecutor{}
	tc := newTestToolchain(t, exec)
	cells := []GridCell{
		{Path: "/tmp/a.mp4", X: 0, Y: 0, W: 960, H: 540},
		{Path: "/tmp/b.mp4", X: 960, Y: 0, W: 960, H: 540},
	}
	if err := tc.GridCompose(context.Background(), cells, 1920, 1080, 5, 30, ColorWhite, "/tmp/grid.mp4"); err != nil {
		t.Fatalf("GridCompose failed: %v", err)
	}
	joined := strings.Join(exec.calls[0].args, " ")
	for _, want := range []string{"overlay=0:0", "overlay=960:0", "[out]"} {
		if !strings.Contains(joined, want) {
			t.Errorf("filtergraph missing %q: %s", want, joined)
		}
	}
}

func TestGridComposeCellLabels(t *testing.T) {
	exec := &fakeExecutor{}
	tc := newTestToolchain(t, exec)
	cells := []GridCell{
		{Path: "/tmp/a.mp4", Label: "before", X: 0, Y: 0, W: 960, H: 540},
		{Path: "/tmp/b.mp4", X: 960, Y: 0, W: 960, H: 540},
	}
	if err := tc.GridCompose(context.Background(), cells, 1920, 1080, 5, 30, ColorWhite, "/tmp/grid.mp4"); err != nil {
		t.Fatalf("GridCompose failed: %v", err)
	}
	joined := strings.Join(exec.calls[0].args, " ")
	if !strings.Contains(joined, "drawtext=text='before'") {
		t.Errorf("labeled cell should draw its caption: %s", joined)
	}
	if strings.Count(joined, "drawtext") != 1 {
		t.Errorf("unlabeled cell should not draw text: %s", joined)
	}
}

func TestColorHex(t *testing.T) {
	cases := []struct {
		color Color
		want  string
	}{
		{ColorWhite, "0xFFFFFF"},
		{ColorCardGray, "0xF0F0F5"},
		{Color{R: 1, G: 2, B: 3}, "0x010203"},
	}
	for _, tc := range cases {
		if got := tc.color.Hex(); got != tc.want {
			t.Errorf("Hex(%v) = %s, want %s", tc.color, got, tc.want)
		}
	}
}

func TestAddSilentAudioUsesAnullsrc(t *testing.T) {
	exec := &fakeExecutor{}
	tc := newTestToolchain(t, exec)
	if err := tc.AddSilentAudio(context.Background(), "/tmp/v.mp4", 5, "/tmp/out.mp4"); err != nil {
		t.Fatalf("AddSilentAudio failed: %v", err)
	}
	joined := strings.Join(exec.calls[0].args, " ")
	if !strings.Contains(joined, "anullsrc") {
		t.Errorf("expected anullsrc source: %s", joined)
	}
	if !strings.Contains(joined, fmt.Sprintf("-t %s", formatSeconds(5))) {
		t.Errorf("expected duration clamp: %s", joined)
	}
}
