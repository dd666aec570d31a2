// Package config resolves the credsafe home directory and reads its
// config.yaml.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/forest6511/credsafe/pkg/lockout"
	"github.com/forest6511/credsafe/pkg/passgen"
)

// Environment and file names
const (
	EnvHome        = "CREDSAFE_HOME"
	DefaultDirName = ".credsafe"
	FileName       = "config.yaml"

	DefaultVaultFile  = "vault.json"
	DefaultLogFile    = "credsafe.log"
	DefaultExportFile = "export.json"

	DefaultGenerateLength = 20

	DirMode  = 0700
	FileMode = 0600
)

// ErrInvalidConfig is returned when config.yaml holds unusable values.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the resolved credsafe configuration. File paths are absolute
// after Load.
type Config struct {
	Home       string         `yaml:"-"`
	VaultFile  string         `yaml:"vault_file"`
	LogFile    string         `yaml:"log_file"`
	ExportFile string         `yaml:"export_file"`
	Lockout    lockout.Config `yaml:"lockout"`
	Generate   GenerateConfig `yaml:"generate"`
}

// GenerateConfig holds defaults for the generate command.
type GenerateConfig struct {
	Length  int  `yaml:"length"`
	Symbols bool `yaml:"symbols"`
}

// ResolveHome picks the home directory: an explicit flag value, then
// $CREDSAFE_HOME, then ~/.credsafe.
func ResolveHome(flagValue string) (string, error) {
	home := flagValue
	if home == "" {
		home = os.Getenv(EnvHome)
	}
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("config: failed to get home directory: %w", err)
		}
		return filepath.Join(userHome, DefaultDirName), nil
	}

	home, err := expandUser(home)
	if err != nil {
		return "", err
	}
	return filepath.Abs(home)
}

// Default returns the configuration used when no config.yaml exists.
func Default(home string) *Config {
	return &Config{
		Home:       home,
		VaultFile:  DefaultVaultFile,
		LogFile:    DefaultLogFile,
		ExportFile: DefaultExportFile,
		Lockout:    lockout.DefaultConfig(),
		Generate: GenerateConfig{
			Length: DefaultGenerateLength,
		},
	}
}

// Read decodes YAML from r on top of the defaults for home, then resolves
// paths and validates. Unknown keys are rejected.
func Read(r io.Reader, home string) (*Config, error) {
	cfg := Default(home)

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: failed to decode: %w", err)
	}
	cfg.Home = home

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads home/config.yaml. A missing file yields the defaults.
func Load(home string) (*Config, error) {
	path := filepath.Join(home, FileName)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default(home)
			if err := cfg.resolvePaths(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("config: failed to open %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := Read(f, home)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Write encodes cfg as YAML.
func Write(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("config: failed to encode: %w", err)
	}
	return enc.Close()
}

// Init writes a default config.yaml into home unless one already exists.
// It reports whether a file was written.
func Init(home string) (bool, error) {
	path := filepath.Join(home, FileName)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(home, DirMode); err != nil {
		return false, fmt.Errorf("config: failed to create home directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, FileMode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("config: failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := Write(f, Default(home)); err != nil {
		return false, err
	}
	return true, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.VaultFile == "" {
		return fmt.Errorf("%w: vault_file must not be empty", ErrInvalidConfig)
	}
	if c.LogFile == "" {
		return fmt.Errorf("%w: log_file must not be empty", ErrInvalidConfig)
	}
	if c.VaultFile == c.LogFile {
		return fmt.Errorf("%w: vault_file and log_file must differ", ErrInvalidConfig)
	}
	if err := c.Lockout.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Generate.Length < passgen.MinLength || c.Generate.Length > passgen.MaxLength {
		return fmt.Errorf("%w: generate.length must be between 1 and %d, got %d",
			ErrInvalidConfig, passgen.MaxLength, c.Generate.Length)
	}
	return nil
}

// resolvePaths makes file paths absolute. Relative paths are taken
// relative to Home; a leading "~/" expands to the user's home directory.
func (c *Config) resolvePaths() error {
	for _, p := range []*string{&c.VaultFile, &c.LogFile, &c.ExportFile} {
		if *p == "" {
			continue
		}
		expanded, err := expandUser(*p)
		if err != nil {
			return err
		}
		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(c.Home, expanded)
		}
		*p = filepath.Clean(expanded)
	}
	return nil
}

func expandUser(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: failed to get home directory: %w", err)
	}
	return filepath.Join(userHome, strings.TrimPrefix(p, "~")), nil
}
