// Command framecomp shows a spinning scene split by a draggable bar: the
// shaded color render on the left and its depth as grayscale on the right.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/andewx/framecomp"
)

func init() {
	// glfw and the Vulkan surface must stay on the main thread.
	runtime.LockOSThread()
}

var (
	configPath = flag.String("config", "framecomp.toml", "TOML configuration file; missing means defaults")
	samples    = flag.Int("samples", 0, "scene multisample count, overrides render.samples")
	shaderDir  = flag.String("shaders", "", "directory of compiled shaders, overrides render.shader_dir")
	validation = flag.Bool("validation", false, "enable validation layers and the debug report callback")
	logLevel   = flag.String("log-level", "", "trace, debug, info, warn or error; overrides log.level")
	hotReload  = flag.Bool("hot-reload", false, "rebuild when a compiled shader changes on disk")
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: framecomp [flags]\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "framecomp: %+v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (framecomp.Config, error) {
	cfg, err := framecomp.LoadConfig(*configPath)
	if err != nil {
		return cfg, err
	}
	if *samples != 0 {
		cfg.Render.Samples = *samples
	}
	if *shaderDir != "" {
		cfg.Render.ShaderDir = *shaderDir
	}
	if *validation {
		cfg.Render.Validation = true
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *hotReload {
		cfg.Viewer.HotReload = true
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg framecomp.LogConfig) (*slog.Logger, io.Closer, error) {
	level, err := framecomp.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	var out io.Writer = os.Stderr
	var closer io.Closer = io.NopCloser(nil)
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(os.Stderr, f)
		closer = f
	}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && a.Value.Any() == framecomp.LevelTrace {
				a.Value = slog.StringValue("TRACE")
			}
			return a
		},
	})
	return slog.New(handler), closer, nil
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, closer, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	sampleCount, err := cfg.Render.SampleCount()
	if err != nil {
		return err
	}
	depthFormats, err := cfg.Render.DepthFormatList()
	if err != nil {
		return err
	}

	if err := framecomp.InitWindowSystem(); err != nil {
		return err
	}
	defer framecomp.TerminateWindowSystem()

	bar := framecomp.NewBarState(cfg.Viewer.InitialBar, cfg.Viewer.DragMargin)
	rebuild := &framecomp.RebuildState{}
	display, err := framecomp.NewDisplay(cfg.Window, bar, rebuild)
	if err != nil {
		return err
	}
	defer display.Destroy()

	platform, err := framecomp.NewPlatform(framecomp.PlatformOptions{
		AppName:                    cfg.Window.Title,
		RequiredInstanceExtensions: display.RequiredInstanceExtensions(),
		Validation:                 cfg.Render.Validation,
		DepthFormats:               depthFormats,
		Limiter:                    framecomp.NewMessageLimiter(log, cfg.Debug.MessageLimit),
		CreateSurface:              display.CreateSurface,
		Log:                        log,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := platform.Destroy(); err != nil {
			log.Error("platform teardown", "err", err)
		}
	}()

	shaders := framecomp.ShaderLibrary{Dir: cfg.Render.ShaderDir}
	if cfg.Viewer.HotReload {
		watcher, err := framecomp.WatchShaders(shaders.Dir, rebuild, log)
		if err != nil {
			return err
		}
		defer watcher.Close()
	}

	renderer, err := framecomp.NewRenderer(framecomp.RendererOptions{
		Platform:        platform,
		Shaders:         shaders,
		Samples:         sampleCount,
		SwapchainImages: cfg.Render.SwapchainImages,
		FramebufferSize: display.FramebufferSize,
		Bar:             bar,
		Rebuild:         rebuild,
		Scene:           framecomp.NewScene(time.Now()),
		Log:             log,
	})
	if err != nil {
		return err
	}
	defer renderer.Destroy()

	for !display.ShouldClose() {
		display.PollEvents()
		if display.Minimized() {
			display.WaitEvents()
			continue
		}
		if err := renderer.DrawFrame(time.Now()); err != nil {
			return err
		}
	}
	log.Info("window closed", "rebuilds", rebuild.Generation())
	return nil
}
