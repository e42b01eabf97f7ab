// Package config holds the game settings and loads them from JSON files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ayusman/handpop/internal/detector"
	"github.com/ayusman/handpop/internal/game"
	"github.com/ayusman/handpop/internal/render"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config is the full set of game settings. Zero values are not meaningful;
// start from Default.
type Config struct {
	CameraID    int `json:"camera_id"`
	FrameWidth  int `json:"frame_width"`
	FrameHeight int `json:"frame_height"`

	Detector  detector.Config `json:"detector"`
	HandIndex int             `json:"hand_index"`

	// ReplayPath plays landmarks from a recording instead of running the model.
	ReplayPath string `json:"replay_path,omitempty"`
	ReplayLoop bool   `json:"replay_loop"`
	// RecordPath appends every detection to a recording.
	RecordPath string `json:"record_path,omitempty"`

	SpritePath string         `json:"sprite_path"`
	SpriteSize int            `json:"sprite_size"`
	Radius     int            `json:"radius"`
	Spawn      game.SpawnArea `json:"spawn"`
	Seed       uint64         `json:"seed"` // 0 picks a random seed

	WindowTitle string `json:"window_title"`
	QuitKey     string `json:"quit_key"`
	KeyDelayMs  int    `json:"key_delay_ms"`

	Sound  bool    `json:"sound"`
	Volume float64 `json:"volume"`

	DBPath string `json:"db_path,omitempty"`
	Listen string `json:"listen,omitempty"`
	Tray   bool   `json:"tray"`

	// Headless runs without a game window, for the dashboard and tray.
	Headless bool `json:"headless"`

	// HooksDir holds executables notified of hits and pauses.
	HooksDir      string `json:"hooks_dir,omitempty"`
	HookTimeoutMs int    `json:"hook_timeout_ms"`
}

// Default returns the settings for a 640x480 webcam game.
func Default() Config {
	return Config{
		CameraID:    0,
		FrameWidth:  640,
		FrameHeight: 480,
		Detector:    detector.DefaultConfig(),
		HandIndex:   0,
		SpritePath:  filepath.Join("assets", "target.png"),
		SpriteSize:  render.SpriteSize,
		Radius:      game.DefaultRadius,
		Spawn:       game.DefaultSpawnArea,
		WindowTitle: render.WindowTitle,
		QuitKey:     "q",
		KeyDelayMs:  1,
		Volume:      0.5,

		HookTimeoutMs: 2000,
	}
}

// Load reads a JSON file and overlays it on Default. Fields missing from the
// file keep their default values.
func Load(path string) (Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return Config{}, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return Config{}, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the settings can run a game. Detector confidence
// thresholds are passed to the landmark service as given.
func (c Config) Validate() error {
	var errs []error

	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		errs = append(errs, fmt.Errorf("frame size must be positive, got %dx%d", c.FrameWidth, c.FrameHeight))
	}
	if c.SpriteSize <= 0 {
		errs = append(errs, fmt.Errorf("sprite_size must be positive, got %d", c.SpriteSize))
	}
	if c.Radius <= 0 {
		errs = append(errs, fmt.Errorf("radius must be positive, got %d", c.Radius))
	}
	if err := c.Spawn.Validate(); err != nil {
		errs = append(errs, err)
	} else if c.FrameWidth > 0 && c.FrameHeight > 0 && c.Radius > 0 {
		if err := c.Spawn.Within(c.FrameWidth, c.FrameHeight, c.Radius); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Detector.MaxHands < 1 {
		errs = append(errs, fmt.Errorf("detector.max_hands must be at least 1, got %d", c.Detector.MaxHands))
	} else if c.HandIndex < 0 || c.HandIndex >= c.Detector.MaxHands {
		errs = append(errs, fmt.Errorf("hand_index must be in [0, %d), got %d", c.Detector.MaxHands, c.HandIndex))
	}
	if len(c.QuitKey) != 1 {
		errs = append(errs, fmt.Errorf("quit_key must be a single character, got %q", c.QuitKey))
	}
	if c.KeyDelayMs < 1 {
		errs = append(errs, fmt.Errorf("key_delay_ms must be at least 1, got %d", c.KeyDelayMs))
	}
	if c.Volume < 0 || c.Volume > 1 {
		errs = append(errs, fmt.Errorf("volume must be between 0 and 1, got %f", c.Volume))
	}
	if c.HooksDir != "" && c.HookTimeoutMs < 1 {
		errs = append(errs, fmt.Errorf("hook_timeout_ms must be at least 1, got %d", c.HookTimeoutMs))
	}
	if c.SpritePath == "" {
		errs = append(errs, errors.New("sprite_path must be set"))
	}

	return errors.Join(errs...)
}

// CheckPlatform rejects settings the target OS cannot run. On macOS both the
// menu bar tray and HighGUI windows need the main thread, so a tray game must
// be headless.
func (c Config) CheckPlatform(goos string) error {
	if goos == "darwin" && c.Tray && !c.Headless {
		return errors.New("tray needs headless mode on macOS: the menu bar and the game window both need the main thread")
	}
	return nil
}

// QuitKeyCode returns the key code PollKey reports for the quit key.
func (c Config) QuitKeyCode() int {
	if c.QuitKey == "" {
		return -1
	}
	return int(c.QuitKey[0])
}
