package framecomp

import (
	"log/slog"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"
)

// Config is the viewer configuration, read from TOML.
type Config struct {
	Window WindowConfig `toml:"window"`
	Render RenderConfig `toml:"render"`
	Viewer ViewerConfig `toml:"viewer"`
	Debug  DebugConfig  `toml:"debug"`
	Log    LogConfig    `toml:"log"`
}

type WindowConfig struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`
}

type RenderConfig struct {
	// Samples is the multisample count of the scene pass.
	Samples int `toml:"samples"`
	// ShaderDir holds the compiled .spv files.
	ShaderDir string `toml:"shader_dir"`
	// SwapchainImages is the preferred swapchain length, clamped to the
	// surface limits.
	SwapchainImages int  `toml:"swapchain_images"`
	Validation      bool `toml:"validation"`
	// DepthFormats are tried in order, e.g. "D32_SFLOAT".
	DepthFormats []string `toml:"depth_formats"`
}

type ViewerConfig struct {
	InitialBar float32 `toml:"initial_bar"`
	DragMargin float64 `toml:"drag_margin"`
	HotReload  bool    `toml:"hot_reload"`
}

type DebugConfig struct {
	MessageLimit int `toml:"message_limit"`
}

type LogConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `toml:"level"`
	// File additionally receives the log when set.
	File string `toml:"file"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{Width: 1820, Height: 1090, Title: "framecomp"},
		Render: RenderConfig{
			Samples:         4,
			ShaderDir:       "shaders",
			SwapchainImages: 3,
			Validation:      false,
			DepthFormats:    []string{"D32_SFLOAT_S8_UINT", "D32_SFLOAT", "D24_UNORM_S8_UINT"},
		},
		Viewer: ViewerConfig{InitialBar: DefaultBar, DragMargin: DefaultDragMargin},
		Debug:  DebugConfig{MessageLimit: DefaultMessageLimit},
		Log:    LogConfig{Level: "info"},
	}
}

// LoadConfig reads path over DefaultConfig. A missing file yields the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate checks ranges and names.
func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return invalidf("window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if _, err := c.Render.SampleCount(); err != nil {
		return err
	}
	if c.Render.ShaderDir == "" {
		return invalidf("render.shader_dir is empty")
	}
	if c.Render.SwapchainImages < 2 {
		return invalidf("render.swapchain_images %d, need at least 2", c.Render.SwapchainImages)
	}
	if _, err := c.Render.DepthFormatList(); err != nil {
		return err
	}
	if c.Viewer.InitialBar < 0 || c.Viewer.InitialBar > 1 {
		return invalidf("viewer.initial_bar %g outside [0, 1]", c.Viewer.InitialBar)
	}
	if c.Viewer.DragMargin < 0 {
		return invalidf("viewer.drag_margin %g is negative", c.Viewer.DragMargin)
	}
	if c.Debug.MessageLimit < 0 {
		return invalidf("debug.message_limit %d is negative", c.Debug.MessageLimit)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// SampleCount converts Samples to the sample count flag.
func (r RenderConfig) SampleCount() (vk.SampleCountFlagBits, error) {
	switch r.Samples {
	case 1:
		return vk.SampleCount1Bit, nil
	case 2:
		return vk.SampleCount2Bit, nil
	case 4:
		return vk.SampleCount4Bit, nil
	case 8:
		return vk.SampleCount8Bit, nil
	case 16:
		return vk.SampleCount16Bit, nil
	case 32:
		return vk.SampleCount32Bit, nil
	case 64:
		return vk.SampleCount64Bit, nil
	}
	return 0, invalidf("render.samples %d is not a power of two up to 64", r.Samples)
}

var depthFormatNames = map[string]vk.Format{
	"D32_SFLOAT_S8_UINT": vk.FormatD32SfloatS8Uint,
	"D32_SFLOAT":         vk.FormatD32Sfloat,
	"D24_UNORM_S8_UINT":  vk.FormatD24UnormS8Uint,
	"D16_UNORM_S8_UINT":  vk.FormatD16UnormS8Uint,
	"D16_UNORM":          vk.FormatD16Unorm,
}

// DepthFormatList converts DepthFormats to formats, keeping the order.
// An empty list selects DefaultDepthFormats.
func (r RenderConfig) DepthFormatList() ([]vk.Format, error) {
	if len(r.DepthFormats) == 0 {
		return DefaultDepthFormats, nil
	}
	formats := make([]vk.Format, 0, len(r.DepthFormats))
	for _, name := range r.DepthFormats {
		f, ok := depthFormatNames[strings.ToUpper(name)]
		if !ok {
			return nil, invalidf("render.depth_formats: unknown format %q", name)
		}
		formats = append(formats, f)
	}
	return formats, nil
}

// ParseLevel converts a level name to a slog level. The empty name is info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, invalidf("log.level %q", name)
}
