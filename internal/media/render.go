package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vidkit/internal/fileutil"
	"vidkit/internal/services"
)

// CardSpec describes a solid-color text card.
type CardSpec struct {
	Title      string
	Subtitle   string
	Duration   float64
	Width      int
	Height     int
	FPS        int
	Background Color
	TitleColor Color
	SubColor   Color
}

// RenderCard renders a title card onto a solid background using drawtext.
func (t *Toolchain) RenderCard(ctx context.Context, spec CardSpec, out string) error {
	src := fmt.Sprintf("color=c=%s:s=%dx%d:d=%s:r=%d",
		spec.Background.Hex(), spec.Width, spec.Height, formatSeconds(spec.Duration), spec.FPS)
	titleSize := spec.Height / 10
	subSize := spec.Height / 22
	filters := []string{
		drawText(spec.Title, spec.TitleColor, titleSize, "(h-text_h)/2-"+fmt.Sprintf("%d", spec.Height/14)),
	}
	if spec.Subtitle != "" {
		filters = append(filters,
			drawText(spec.Subtitle, spec.SubColor, subSize, "(h-text_h)/2+"+fmt.Sprintf("%d", spec.Height/12)))
	}
	args := []string{
		"-f", "lavfi", "-i", src,
		"-vf", strings.Join(filters, ","),
		"-t", formatSeconds(spec.Duration),
	}
	args = append(args, t.encodeArgs()...)
	args = append(args, out)
	return t.runFFmpeg(ctx, "render card", args)
}

func drawText(text string, color Color, size int, y string) string {
	return fmt.Sprintf("drawtext=text='%s':fontcolor=%s:fontsize=%d:x=(w-text_w)/2:y=%s",
		escapeDrawText(text), color.Hex(), size, y)
}

// escapeDrawText escapes the characters drawtext treats specially.
func escapeDrawText(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`, `%`, `\%`)
	return r.Replace(s)
}

// StillSpec describes a still-image segment.
type StillSpec struct {
	Image    string
	Duration float64
	Width    int
	Height   int
	FPS      int
	Zoom     float64
	PanX     float64
	PanY     float64
}

// StillVideo loops a still image for the requested duration, optionally
// applying a slow zoom and pan.
func (t *Toolchain) StillVideo(ctx context.Context, spec StillSpec, out string) error {
	fit := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		spec.Width, spec.Height, spec.Width, spec.Height)
	filters := []string{fit}
	if spec.Zoom > 1.0 {
		frames := int(spec.Duration * float64(spec.FPS))
		if frames < 1 {
			frames = 1
		}
		step := (spec.Zoom - 1.0) / float64(frames)
		filters = append(filters, fmt.Sprintf(
			"zoompan=z='min(zoom+%.6f,%.3f)':x='iw/2-(iw/zoom/2)+%.3f*iw':y='ih/2-(ih/zoom/2)+%.3f*ih':d=%d:s=%dx%d:fps=%d",
			step, spec.Zoom, spec.PanX, spec.PanY, frames, spec.Width, spec.Height, spec.FPS))
	}
	args := []string{
		"-loop", "1", "-i", spec.Image,
		"-vf", strings.Join(filters, ","),
		"-t", formatSeconds(spec.Duration),
		"-r", fmt.Sprintf("%d", spec.FPS),
	}
	args = append(args, t.encodeArgs()...)
	args = append(args, out)
	return t.runFFmpeg(ctx, "still video", args)
}

// NormalizeVideo re-encodes a source to the project resolution and frame
// rate, stripping audio. Sources arrive in arbitrary formats; downstream
// stages assume uniform streams.
func (t *Toolchain) NormalizeVideo(ctx context.Context, src string, width, height, fps int, out string) error {
	fit := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		width, height, width, height)
	args := []string{
		"-i", src,
		"-vf", fit,
		"-r", fmt.Sprintf("%d", fps),
		"-an",
	}
	args = append(args, t.encodeArgs()...)
	args = append(args, out)
	return t.runFFmpeg(ctx, "normalize video", args)
}

// ExtractFrame writes a single frame from the start or end of a video as a
// PNG. Transition compositions consume these as entry and exit stills.
func (t *Toolchain) ExtractFrame(ctx context.Context, video string, last bool, out string) error {
	var cancel context.CancelFunc
	if t.frameTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, t.frameTimeout)
		defer cancel()
	}
	var args []string
	if last {
		args = []string{"-sseof", "-0.1", "-i", video, "-frames:v", "1", "-update", "1", out}
	} else {
		args = []string{"-i", video, "-frames:v", "1", "-update", "1", out}
	}
	return t.runFFmpeg(ctx, "extract frame", args)
}

// ApplyFilters re-encodes a video through a single filtergraph pass. The
// audio stream, if present, is copied untouched.
func (t *Toolchain) ApplyFilters(ctx context.Context, src, filtergraph, out string) error {
	args := []string{
		"-i", src,
		"-vf", filtergraph,
	}
	args = append(args, t.encodeArgs()...)
	args = append(args, "-c:a", "copy", out)
	return t.runFFmpeg(ctx, "apply filters", args)
}

// AddSilentAudio muxes a silent stereo track matching the video duration.
// Every combined artifact carries an audio stream so concatenation never
// mixes silent and voiced inputs.
func (t *Toolchain) AddSilentAudio(ctx context.Context, video string, duration float64, out string) error {
	args := []string{
		"-i", video,
		"-f", "lavfi", "-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
		"-c:v", "copy",
		"-c:a", t.audioCodec,
		"-t", formatSeconds(duration),
		"-shortest",
		out,
	}
	return t.runFFmpeg(ctx, "add silent audio", args)
}

// MuxAudio combines a video stream with an external audio file.
func (t *Toolchain) MuxAudio(ctx context.Context, video, audio string, duration float64, out string) error {
	args := []string{
		"-i", video,
		"-i", audio,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", t.audioCodec,
		"-t", formatSeconds(duration),
		out,
	}
	return t.runFFmpeg(ctx, "mux audio", args)
}

// FreezeExtend pads a video to the target duration by holding its final
// frame.
func (t *Toolchain) FreezeExtend(ctx context.Context, video string, target float64, out string) error {
	args := []string{
		"-i", video,
		"-vf", fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%s", formatSeconds(target)),
		"-t", formatSeconds(target),
	}
	args = append(args, t.encodeArgs()...)
	args = append(args, "-an", out)
	return t.runFFmpeg(ctx, "freeze extend", args)
}

// PadAudio extends an audio file with silence at the head and tail and out
// to the target duration.
func (t *Toolchain) PadAudio(ctx context.Context, audio string, padStart, target float64, out string) error {
	filters := make([]string, 0, 2)
	if padStart > 0 {
		filters = append(filters, fmt.Sprintf("adelay=%d:all=1", int(padStart*1000)))
	}
	filters = append(filters, fmt.Sprintf("apad=whole_dur=%s", formatSeconds(target)))
	args := []string{
		"-i", audio,
		"-af", strings.Join(filters, ","),
		"-t", formatSeconds(target),
		out,
	}
	return t.runFFmpeg(ctx, "pad audio", args)
}

// TrimVideo truncates a video to the target duration with a re-encode.
func (t *Toolchain) TrimVideo(ctx context.Context, video string, target float64, out string) error {
	args := []string{
		"-i", video,
		"-t", formatSeconds(target),
	}
	args = append(args, t.encodeArgs()...)
	args = append(args, "-c:a", "copy", out)
	return t.runFFmpeg(ctx, "trim video", args)
}

// AudioTempo resamples audio playback rate by the given factor. factor
// above 1 speeds the audio up (shorter), below 1 slows it down.
func (t *Toolchain) AudioTempo(ctx context.Context, audio string, factor float64, out string) error {
	if factor <= 0 {
		return services.Wrap(services.ErrValidation, "media", "audio tempo", fmt.Sprintf("invalid factor %.3f", factor), nil)
	}
	args := []string{
		"-i", audio,
		"-af", fmt.Sprintf("atempo=%s", formatSeconds(factor)),
		out,
	}
	return t.runFFmpeg(ctx, "audio tempo", args)
}

// GridCell positions one input inside a grid composition. A non-empty
// Label is drawn along the cell's bottom edge.
type GridCell struct {
	Path  string
	Label string
	X     int
	Y     int
	W     int
	H     int
}

// GridCompose scales each input into its cell and overlays them onto a
// solid background canvas.
func (t *Toolchain) GridCompose(ctx context.Context, cells []GridCell, width, height int, duration float64, fps int, background Color, out string) error {
	if len(cells) == 0 {
		return services.Wrap(services.ErrValidation, "media", "grid compose", "no cells", nil)
	}
	args := []string{
		"-f", "lavfi", "-i", fmt.Sprintf("color=c=%s:s=%dx%d:d=%s:r=%d",
			background.Hex(), width, height, formatSeconds(duration), fps),
	}
	for _, cell := range cells {
		args = append(args, "-i", cell.Path)
	}
	var graph strings.Builder
	prev := "[0:v]"
	for i, cell := range cells {
		scaled := fmt.Sprintf("[s%d]", i)
		chain := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
			cell.W, cell.H, cell.W, cell.H)
		if cell.Label != "" {
			chain += fmt.Sprintf(",drawtext=text='%s':fontcolor=%s:fontsize=%d:x=(w-text_w)/2:y=h-text_h-%d:box=1:boxcolor=black@0.5:boxborderw=8",
				escapeDrawText(cell.Label), ColorWhite.Hex(), cell.H/16, cell.H/24)
		}
		fmt.Fprintf(&graph, "[%d:v]%s%s;", i+1, chain, scaled)
		next := fmt.Sprintf("[o%d]", i)
		if i == len(cells)-1 {
			next = "[out]"
		}
		fmt.Fprintf(&graph, "%s%soverlay=%d:%d%s;", prev, scaled, cell.X, cell.Y, next)
		prev = next
	}
	graphStr := strings.TrimSuffix(graph.String(), ";")
	args = append(args,
		"-filter_complex", graphStr,
		"-map", "[out]",
		"-t", formatSeconds(duration),
	)
	args = append(args, t.encodeArgs()...)
	args = append(args, out)
	return t.runFFmpeg(ctx, "grid compose", args)
}

// Concat joins inputs without re-encoding via the concat demuxer. Inputs
// must share codec parameters; the build pipeline guarantees this by
// normalizing every combined artifact.
func (t *Toolchain) Concat(ctx context.Context, inputs []string, out string) error {
	if len(inputs) == 0 {
		return services.Wrap(services.ErrValidation, "media", "concat", "no inputs", nil)
	}
	list, err := writeConcatList(filepath.Dir(out), inputs)
	if err != nil {
		return services.Wrap(services.ErrRender, "media", "concat", "write list file", err)
	}
	defer os.Remove(list)
	args := []string{
		"-f", "concat", "-safe", "0",
		"-i", list,
		"-c", "copy",
		out,
	}
	return t.runFFmpeg(ctx, "concat", args)
}

// ConcatReencode joins inputs with a full re-encode, tolerating mismatched
// stream parameters.
func (t *Toolchain) ConcatReencode(ctx context.Context, inputs []string, out string) error {
	if len(inputs) == 0 {
		return services.Wrap(services.ErrValidation, "media", "concat reencode", "no inputs", nil)
	}
	args := make([]string, 0, len(inputs)*2+16)
	for _, in := range inputs {
		args = append(args, "-i", in)
	}
	var graph strings.Builder
	for i := range inputs {
		fmt.Fprintf(&graph, "[%d:v:0][%d:a:0]", i, i)
	}
	fmt.Fprintf(&graph, "concat=n=%d:v=1:a=1[v][a]", len(inputs))
	args = append(args,
		"-filter_complex", graph.String(),
		"-map", "[v]", "-map", "[a]",
	)
	args = append(args, t.encodeArgs()...)
	args = append(args, "-c:a", t.audioCodec, out)
	return t.runFFmpeg(ctx, "concat reencode", args)
}

func writeConcatList(dir string, inputs []string) (string, error) {
	var b strings.Builder
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	list := filepath.Join(dir, fmt.Sprintf(".concat-%d.txt", time.Now().UnixNano()))
	if err := fileutil.WriteFileAtomic(list, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return list, nil
}
