// Package config loads the explicit configuration value threaded into the
// export/import pipeline. Core packages never read process-wide state; they
// receive a Config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	DBPath         string `yaml:"db_path"`
	AttachmentsDir string `yaml:"attachments_dir"`
	// UID and GID own the attachments tree after permission repair.
	// Negative values leave ownership untouched.
	UID int `yaml:"uid"`
	GID int `yaml:"gid"`
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables (GL_*)
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/gl-admin/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := &Config{
		UID: os.Getuid(),
		GID: os.Getgid(),
	}

	// Load .env.local if it exists (walking up parent directories)
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// YAML config is optional
	_ = loadYAMLConfig(cfg)

	// Override with environment variables
	if dbPath := os.Getenv("GL_DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if attachmentsDir := os.Getenv("GL_ATTACHMENTS_DIR"); attachmentsDir != "" {
		cfg.AttachmentsDir = attachmentsDir
	}
	if uid := os.Getenv("GL_UID"); uid != "" {
		v, err := strconv.Atoi(uid)
		if err != nil {
			return nil, fmt.Errorf("invalid GL_UID %q: %w", uid, err)
		}
		cfg.UID = v
	}
	if gid := os.Getenv("GL_GID"); gid != "" {
		v, err := strconv.Atoi(gid)
		if err != nil {
			return nil, fmt.Errorf("invalid GL_GID %q: %w", gid, err)
		}
		cfg.GID = v
	}

	// Set defaults if not configured
	if cfg.DBPath == "" {
		cfg.DBPath = "/var/globaleaks/db/glbackend.db"
	}
	if cfg.AttachmentsDir == "" {
		cfg.AttachmentsDir = filepath.Join(filepath.Dir(filepath.Dir(cfg.DBPath)), "attachments")
	}

	return cfg, nil
}

// loadYAMLConfig loads configuration from ~/.config/gl-admin/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(homeDir, ".config", "gl-admin", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		if dir == homeDir {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
