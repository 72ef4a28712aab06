package sources

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"vidkit/internal/cache"
	"vidkit/internal/cachekey"
	"vidkit/internal/logging"
	"vidkit/internal/media"
	"vidkit/internal/services"
)

// GenerateFunc renders an artifact to the output path.
type GenerateFunc func(ctx context.Context, env *RenderEnv, out string) error

// FuncGenerator renders through a Go callback change-tracked by an
// identifier and a parameter map. Callers must bump Name or change Params
// when the callback's behavior changes; the function body itself is not
// part of the key.
type FuncGenerator struct {
	Name   string
	Params map[string]any
	Ext    string
	Fn     GenerateFunc
}

// NewFuncGenerator returns a generator keyed by name and params.
func NewFuncGenerator(name string, params map[string]any, fn GenerateFunc) *FuncGenerator {
	return &FuncGenerator{Name: name, Params: params, Ext: cache.DefaultGeneratedExt, Fn: fn}
}

func (g *FuncGenerator) CacheKey() string {
	return cachekey.Generate(map[string]any{
		"type":   "func_generator",
		"name":   g.Name,
		"params": g.Params,
	})
}

func (g *FuncGenerator) Clip(ctx context.Context, env *RenderEnv) (media.Clip, error) {
	if g.Fn == nil {
		return media.Clip{}, services.Wrap(services.ErrValidation, "sources", "func generator", fmt.Sprintf("generator %q has no callback", g.Name), nil)
	}
	return throughGeneratedCache(ctx, env, g.CacheKey(), g.Ext, func(ctx context.Context, out string) error {
		env.Logger.Info("generating artifact",
			logging.String("generator", g.Name),
			logging.String("key", g.CacheKey()))
		return g.Fn(ctx, env, out)
	})
}

// ScriptGenerator renders by invoking an external command. The command
// template uses {name} placeholders filled from Params, plus the built-ins
// {output} for the destination path and {width}, {height}, {fps} from the
// project configuration. Any change to the template or parameters produces
// a new cache key.
type ScriptGenerator struct {
	Template string
	Params   map[string]string
	Ext      string
	Timeout  time.Duration
	Exec     media.Executor
}

// NewScriptGenerator returns a generator that shells out to render.
func NewScriptGenerator(template string, params map[string]string) *ScriptGenerator {
	return &ScriptGenerator{
		Template: template,
		Params:   params,
		Ext:      cache.DefaultGeneratedExt,
		Timeout:  5 * time.Minute,
		Exec:     media.NewCommandExecutor(),
	}
}

func (g *ScriptGenerator) CacheKey() string {
	return cachekey.Generate(map[string]any{
		"type":     "script_generator",
		"template": g.Template,
		"params":   g.Params,
	})
}

func (g *ScriptGenerator) Clip(ctx context.Context, env *RenderEnv) (media.Clip, error) {
	return throughGeneratedCache(ctx, env, g.CacheKey(), g.Ext, func(ctx context.Context, out string) error {
		binary, args, err := g.expand(env, out)
		if err != nil {
			return err
		}
		if g.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.Timeout)
			defer cancel()
		}
		env.Logger.Info("running script generator",
			logging.String("binary", binary),
			logging.String("key", g.CacheKey()))
		_, stderr, err := g.Exec.Run(ctx, binary, args)
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return services.Wrap(services.ErrTimeout, "sources", "script generator", binary, err)
			}
			return services.Wrap(services.ErrExternalTool, "sources", "script generator", strings.TrimSpace(stderr), err)
		}
		return nil
	})
}

// expand substitutes placeholders and splits the template into binary and
// arguments. Unknown placeholders are an error so a typo cannot silently
// render with a literal brace token.
func (g *ScriptGenerator) expand(env *RenderEnv, output string) (string, []string, error) {
	values := make(map[string]string, len(g.Params)+4)
	for k, v := range g.Params {
		values[k] = v
	}
	values["output"] = output
	values["width"] = strconv.Itoa(env.Config.Width())
	values["height"] = strconv.Itoa(env.Config.Height())
	values["fps"] = strconv.Itoa(env.Config.FPS)

	fields := strings.Fields(g.Template)
	if len(fields) == 0 {
		return "", nil, services.Wrap(services.ErrValidation, "sources", "script generator", "empty command template", nil)
	}
	expanded := make([]string, 0, len(fields))
	for _, field := range fields {
		resolved, err := expandField(field, values)
		if err != nil {
			return "", nil, err
		}
		expanded = append(expanded, resolved)
	}
	return expanded[0], expanded[1:], nil
}

func expandField(field string, values map[string]string) (string, error) {
	var b strings.Builder
	rest := field
	for {
		open := strings.Index(rest, "{")
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.Index(rest[open:], "}")
		if end < 0 {
			return "", services.Wrap(services.ErrValidation, "sources", "script generator", fmt.Sprintf("unterminated placeholder in %q", field), nil)
		}
		name := rest[open+1 : open+end]
		value, ok := values[name]
		if !ok {
			return "", services.Wrap(services.ErrValidation, "sources", "script generator", fmt.Sprintf("unknown placeholder {%s} (have %s)", name, knownPlaceholders(values)), nil)
		}
		b.WriteString(rest[:open])
		b.WriteString(value)
		rest = rest[open+end+1:]
	}
}

func knownPlaceholders(values map[string]string) string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, "{"+name+"}")
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
