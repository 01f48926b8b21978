package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultSampleRate    = 16000
	defaultChannels      = 1
	defaultChunkSize     = 1024
	defaultStopTimeoutMS = 1000
	defaultStateDirLinux = ".local/state/whisperstt"
	defaultConfigDir     = ".config/whisperstt"
	tempDirName          = "whisper_stt"
	audioFileName        = "recording.wav"
	DefaultModel         = "ggml-base.en.bin"
)

// Config holds user configuration loaded from TOML.
type Config struct {
	Audio struct {
		DeviceName    string `toml:"device_name"`
		SampleRate    int    `toml:"sample_rate"`
		Channels      int    `toml:"channels"`
		ChunkSize     int    `toml:"chunk_size"`
		StopTimeoutMS int    `toml:"stop_timeout_ms"`
	} `toml:"audio"`

	ASR struct {
		Backend    string  `toml:"backend"` // whisper, exec
		ModelPath  string  `toml:"model_path"`
		Language   string  `toml:"language"`
		Threads    int     `toml:"threads"`
		Command    string  `toml:"command"` // exec backend; {audio} is replaced by the wav path
		TimeoutSec float64 `toml:"timeout_sec"`
	} `toml:"asr"`

	VAD struct {
		Enabled        bool `toml:"enabled"`
		Aggressiveness int  `toml:"aggressiveness"`
		FrameMS        int  `toml:"frame_ms"`
		MinSpeechMS    int  `toml:"min_speech_ms"`
	} `toml:"vad"`

	Hook struct {
		Command    string            `toml:"command"`
		Args       []string          `toml:"args"`
		Prefix     string            `toml:"prefix"`
		TimeoutSec float64           `toml:"timeout_sec"`
		Env        map[string]string `toml:"env"`
		RedactPII  bool              `toml:"redact_pii"`
	} `toml:"hook"`

	Logging struct {
		Level  string `toml:"level"`  // debug, info, warn, error
		Format string `toml:"format"` // text, json
		Stdout bool   `toml:"stdout"`
	} `toml:"logging"`

	Paths struct {
		StateDir       string `toml:"state_dir"`
		TempDir        string `toml:"temp_dir"`
		AudioFile      string `toml:"audio_file"`
		LogPath        string `toml:"log_path"`
		TranscriptPath string `toml:"transcript_path"`
		ModelDir       string `toml:"model_dir"`
		ConfigPath     string `toml:"-"`
	} `toml:"paths"`

	Transcripts struct {
		Enabled bool `toml:"enabled"`
	} `toml:"transcripts"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(home, defaultStateDirLinux)
	// macOS keeps state under Application Support.
	if isMac() {
		stateDir = filepath.Join(home, "Library", "Application Support", "whisperstt")
	}
	tempDir := filepath.Join(os.TempDir(), tempDirName)

	cfg := &Config{}

	cfg.Audio.SampleRate = defaultSampleRate
	cfg.Audio.Channels = defaultChannels
	cfg.Audio.ChunkSize = defaultChunkSize
	cfg.Audio.StopTimeoutMS = defaultStopTimeoutMS

	cfg.ASR.Backend = "whisper"
	cfg.ASR.ModelPath = filepath.Join(stateDir, "models", DefaultModel)
	cfg.ASR.Language = "auto"
	cfg.ASR.TimeoutSec = 120

	cfg.VAD.Enabled = true
	cfg.VAD.Aggressiveness = 2
	cfg.VAD.FrameMS = 30
	cfg.VAD.MinSpeechMS = 200

	cfg.Hook.Prefix = ""
	cfg.Hook.TimeoutSec = 5
	cfg.Hook.Env = map[string]string{}

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	cfg.Paths.StateDir = stateDir
	cfg.Paths.TempDir = tempDir
	cfg.Paths.AudioFile = filepath.Join(tempDir, audioFileName)
	cfg.Paths.LogPath = filepath.Join(stateDir, "whisperstt.log")
	cfg.Paths.TranscriptPath = filepath.Join(stateDir, "transcripts.log")
	cfg.Paths.ModelDir = filepath.Join(stateDir, "models")

	cfg.Transcripts.Enabled = true

	return cfg, nil
}

// Load loads config from file, applying defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, defaultConfigDir, "config.toml")
	}

	// Read if exists; otherwise write template.
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err := Save(cfg, path); err != nil {
			return nil, err
		}
		cfg.Paths.ConfigPath = path
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Paths.ConfigPath = path
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

// Validate rejects settings the capture layer cannot honour.
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive (got %d)", c.Audio.SampleRate)
	}
	if c.Audio.Channels <= 0 {
		return fmt.Errorf("audio.channels must be positive (got %d)", c.Audio.Channels)
	}
	if c.Audio.ChunkSize <= 0 {
		return fmt.Errorf("audio.chunk_size must be positive (got %d)", c.Audio.ChunkSize)
	}
	switch strings.ToLower(c.ASR.Backend) {
	case "whisper", "exec":
	default:
		return fmt.Errorf("asr.backend must be whisper or exec (got %q)", c.ASR.Backend)
	}
	if c.Paths.AudioFile == "" {
		return errors.New("paths.audio_file must be set")
	}
	return nil
}

// StopTimeout is the bounded wait for the capture goroutine on stop.
func (c *Config) StopTimeout() time.Duration {
	if c.Audio.StopTimeoutMS <= 0 {
		return defaultStopTimeoutMS * time.Millisecond
	}
	return time.Duration(c.Audio.StopTimeoutMS) * time.Millisecond
}

func isMac() bool {
	return runtime.GOOS == "darwin"
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{
		cfg.Paths.StateDir,
		cfg.Paths.TempDir,
		filepath.Dir(cfg.Paths.AudioFile),
		filepath.Dir(cfg.Paths.LogPath),
		filepath.Dir(cfg.Paths.TranscriptPath),
	} {
		if p == "" || p == "." {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WHISPERSTT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WHISPERSTT_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("WHISPERSTT_MODEL"); v != "" {
		cfg.ASR.ModelPath = v
	}
	if v := os.Getenv("WHISPERSTT_ASR_BACKEND"); v != "" {
		cfg.ASR.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("WHISPERSTT_AUDIO_DEVICE"); v != "" {
		cfg.Audio.DeviceName = v
	}
	if v := os.Getenv("WHISPERSTT_TRANSCRIPTS_ENABLED"); v != "" {
		cfg.Transcripts.Enabled = envBool(v)
	}
	if v := os.Getenv("WHISPERSTT_REDACT_PII"); v != "" {
		cfg.Hook.RedactPII = envBool(v)
	}
}

func envBool(v string) bool {
	return v != "0" && strings.ToLower(v) != "false"
}
