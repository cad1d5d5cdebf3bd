// Package config loads environment and YAML configuration for go2pad.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	defaultListenAddr     = "0.0.0.0:8000"
	defaultDataDir        = "./data"
	defaultRobotMethod    = "LocalSTA"
	defaultOfferPort      = 8081
	defaultJoystickSize   = 150
	defaultMoveIntervalMs = 50
	defaultMaxForward     = 1.0
	defaultMaxLateral     = 0.6
	defaultMaxYaw         = 1.2
	defaultPreviewWidth   = 640
	defaultPreviewHeight  = 360
	defaultPreviewFPS     = 10
	defaultPreviewQuality = 60
)

// Config holds runtime configuration values.
type Config struct {
	ListenAddr     string
	UIPassword     string
	DataDir        string
	RobotConfig    string
	RobotIP        string
	RobotMethod    string
	OfferPort      int
	JoystickSize   float64
	MoveIntervalMs int
	MaxForward     float64
	MaxLateral     float64
	MaxYaw         float64
	// FFmpegPath enables the JPEG preview (/video.mjpeg, /ws/video) when set.
	FFmpegPath     string
	PreviewWidth   int
	PreviewHeight  int
	PreviewFPS     int
	PreviewQuality int
}

// PrefsPath returns the operator preferences file inside DataDir.
func (c Config) PrefsPath() string {
	return filepath.Join(c.DataDir, "prefs.json")
}

// Load reads configuration from ./data/.env, an optional YAML robot file, and environment variables.
// Environment values win over YAML, and YAML wins over defaults.
func Load() (Config, error) {
	return LoadWithFile("")
}

// LoadWithFile is Load with an explicit YAML path; an empty path uses ROBOT_CONFIG or data/robot.yaml.
func LoadWithFile(yamlPath string) (Config, error) {
	cfg := Config{
		ListenAddr:     defaultListenAddr,
		DataDir:        defaultDataDir,
		RobotMethod:    defaultRobotMethod,
		OfferPort:      defaultOfferPort,
		JoystickSize:   defaultJoystickSize,
		MoveIntervalMs: defaultMoveIntervalMs,
		MaxForward:     defaultMaxForward,
		MaxLateral:     defaultMaxLateral,
		MaxYaw:         defaultMaxYaw,
		PreviewWidth:   defaultPreviewWidth,
		PreviewHeight:  defaultPreviewHeight,
		PreviewFPS:     defaultPreviewFPS,
		PreviewQuality: defaultPreviewQuality,
	}

	if err := loadEnvFile(filepath.Join(envString("DATA_DIR", cfg.DataDir), ".env")); err != nil {
		return Config{}, err
	}

	cfg.DataDir = envString("DATA_DIR", cfg.DataDir)
	if yamlPath == "" {
		yamlPath = envString("ROBOT_CONFIG", filepath.Join(cfg.DataDir, "robot.yaml"))
	}
	cfg.RobotConfig = yamlPath
	if err := applyYAML(&cfg, yamlPath); err != nil {
		return Config{}, err
	}

	cfg.ListenAddr = envString("LISTEN_ADDR", cfg.ListenAddr)
	cfg.UIPassword = strings.TrimSpace(os.Getenv("UI_PASSWORD"))
	cfg.RobotIP = envString("ROBOT_IP", cfg.RobotIP)
	cfg.RobotMethod = envString("ROBOT_CONN_METHOD", cfg.RobotMethod)

	var err error
	if cfg.OfferPort, err = envInt("ROBOT_OFFER_PORT", cfg.OfferPort); err != nil {
		return Config{}, err
	}
	if cfg.JoystickSize, err = envFloat("JOYSTICK_SIZE", cfg.JoystickSize); err != nil {
		return Config{}, err
	}
	if cfg.MoveIntervalMs, err = envInt("MOVE_INTERVAL_MS", cfg.MoveIntervalMs); err != nil {
		return Config{}, err
	}
	if cfg.MaxForward, err = envFloat("MAX_FORWARD", cfg.MaxForward); err != nil {
		return Config{}, err
	}
	if cfg.MaxLateral, err = envFloat("MAX_LATERAL", cfg.MaxLateral); err != nil {
		return Config{}, err
	}
	if cfg.MaxYaw, err = envFloat("MAX_YAW", cfg.MaxYaw); err != nil {
		return Config{}, err
	}
	cfg.FFmpegPath = envString("FFMPEG_PATH", cfg.FFmpegPath)
	if cfg.PreviewWidth, err = envInt("PREVIEW_WIDTH", cfg.PreviewWidth); err != nil {
		return Config{}, err
	}
	if cfg.PreviewHeight, err = envInt("PREVIEW_HEIGHT", cfg.PreviewHeight); err != nil {
		return Config{}, err
	}
	if cfg.PreviewFPS, err = envInt("PREVIEW_FPS", cfg.PreviewFPS); err != nil {
		return Config{}, err
	}
	if cfg.PreviewQuality, err = envInt("PREVIEW_QUALITY", cfg.PreviewQuality); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate checks ranges and required values.
func (c Config) validate() error {
	switch c.RobotMethod {
	case "LocalSTA", "LocalAP":
	default:
		return fmt.Errorf("ROBOT_CONN_METHOD must be LocalSTA or LocalAP, got %q", c.RobotMethod)
	}
	if c.RobotMethod == "LocalSTA" && c.RobotIP == "" {
		return errors.New("ROBOT_IP is required for LocalSTA")
	}
	if c.OfferPort <= 0 || c.OfferPort > 65535 {
		return fmt.Errorf("ROBOT_OFFER_PORT must be 1-65535")
	}
	if c.JoystickSize <= 0 {
		return fmt.Errorf("JOYSTICK_SIZE must be > 0")
	}
	if c.MoveIntervalMs < 0 {
		return fmt.Errorf("MOVE_INTERVAL_MS must be >= 0")
	}
	if c.MaxForward <= 0 || c.MaxLateral <= 0 || c.MaxYaw <= 0 {
		return fmt.Errorf("MAX_FORWARD, MAX_LATERAL and MAX_YAW must be > 0")
	}
	if c.PreviewWidth <= 0 || c.PreviewHeight <= 0 || c.PreviewWidth%2 != 0 || c.PreviewHeight%2 != 0 {
		return fmt.Errorf("PREVIEW_WIDTH and PREVIEW_HEIGHT must be positive even numbers")
	}
	if c.PreviewFPS <= 0 {
		return fmt.Errorf("PREVIEW_FPS must be > 0")
	}
	if c.PreviewQuality < 1 || c.PreviewQuality > 100 {
		return fmt.Errorf("PREVIEW_QUALITY must be 1-100")
	}
	if c.UIPassword == "" {
		return errors.New("UI_PASSWORD is required")
	}
	return nil
}

// envString returns an env override when present, otherwise a default.
func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt returns an int env override when present, otherwise a default.
func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, nil
}

// envFloat returns a float env override when present, otherwise a default.
func envFloat(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return value, nil
}

// loadEnvFile loads KEY=VALUE pairs from a .env file.
func loadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := parseEnvLine(line)
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); !exists {
			if err := os.Setenv(key, value); err != nil {
				return err
			}
		}
	}

	return nil
}

// parseEnvLine parses a single .env line into key/value.
func parseEnvLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false
	}
	return key, strings.Trim(strings.TrimSpace(value), `"'`), true
}
