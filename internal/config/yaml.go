// Package config loads environment and YAML configuration for go2pad.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// robotFile is the optional YAML robot description.
type robotFile struct {
	Robot struct {
		IP        string `yaml:"ip"`
		Method    string `yaml:"webrtc_connection_method"`
		OfferPort int    `yaml:"offer_port"`
	} `yaml:"robot"`
	Joystick struct {
		Size           float64 `yaml:"size"`
		MoveIntervalMs *int    `yaml:"move_interval_ms"`
	} `yaml:"joystick"`
	Limits struct {
		Forward float64 `yaml:"forward"`
		Lateral float64 `yaml:"lateral"`
		Yaw     float64 `yaml:"yaw"`
	} `yaml:"limits"`
	Preview struct {
		FFmpegPath string `yaml:"ffmpeg_path"`
		Width      int    `yaml:"width"`
		Height     int    `yaml:"height"`
		FPS        int    `yaml:"fps"`
		Quality    int    `yaml:"quality"`
	} `yaml:"preview"`
}

// applyYAML overlays non-zero values from the YAML file onto cfg. A missing file is not an error.
func applyYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	var f robotFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if f.Robot.IP != "" {
		cfg.RobotIP = f.Robot.IP
	}
	if f.Robot.Method != "" {
		cfg.RobotMethod = f.Robot.Method
	}
	if f.Robot.OfferPort != 0 {
		cfg.OfferPort = f.Robot.OfferPort
	}
	if f.Joystick.Size != 0 {
		cfg.JoystickSize = f.Joystick.Size
	}
	if f.Joystick.MoveIntervalMs != nil {
		cfg.MoveIntervalMs = *f.Joystick.MoveIntervalMs
	}
	if f.Limits.Forward != 0 {
		cfg.MaxForward = f.Limits.Forward
	}
	if f.Limits.Lateral != 0 {
		cfg.MaxLateral = f.Limits.Lateral
	}
	if f.Limits.Yaw != 0 {
		cfg.MaxYaw = f.Limits.Yaw
	}
	if f.Preview.FFmpegPath != "" {
		cfg.FFmpegPath = f.Preview.FFmpegPath
	}
	if f.Preview.Width != 0 {
		cfg.PreviewWidth = f.Preview.Width
	}
	if f.Preview.Height != 0 {
		cfg.PreviewHeight = f.Preview.Height
	}
	if f.Preview.FPS != 0 {
		cfg.PreviewFPS = f.Preview.FPS
	}
	if f.Preview.Quality != 0 {
		cfg.PreviewQuality = f.Preview.Quality
	}
	return nil
}
