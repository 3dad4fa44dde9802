package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Provider names reported as the source of a resolved setting.
const (
	SourcePlatform = "platform"
	SourceDotenv   = "dotenv"
	SourceEnv      = "env"
	SourceDefault  = "default"
)

// Provider supplies setting values from a single source.
type Provider interface {
	Name() string
	Lookup(name string) (string, bool)
}

// mapProvider serves a snapshot taken at construction time. A nil map is an
// unavailable source and never yields a value.
type mapProvider struct {
	name   string
	values map[string]string
}

func (p *mapProvider) Name() string {
	return p.name
}

func (p *mapProvider) Lookup(name string) (string, bool) {
	value, ok := p.values[name]
	return value, ok
}

// Available reports whether the backing store was found and loaded.
func (p *mapProvider) Available() bool {
	return p.values != nil
}

// PlatformSecrets serves secrets mounted by the hosting platform, either as a
// YAML mapping document or as a directory holding one file per key.
type PlatformSecrets struct {
	mapProvider
	path string
}

// NewPlatformSecrets loads the secret store at path. Any failure leaves the
// provider empty; it is logged and never returned.
func NewPlatformSecrets(path string, logger *zap.Logger) *PlatformSecrets {
	logger = orNop(logger).With(zap.String("provider", SourcePlatform), zap.String("path", path))
	p := &PlatformSecrets{
		mapProvider: mapProvider{name: SourcePlatform},
		path:        path,
	}

	if strings.TrimSpace(path) == "" {
		logger.Debug("platform secret store not configured")
		return p
	}

	values, err := loadPlatformSecrets(path, logger)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug("platform secret store not present")
	case err != nil:
		logger.Warn("platform secret store unavailable", zap.Error(err))
	default:
		p.values = values
		logger.Debug("platform secret store loaded", zap.Int("keys", len(values)))
	}
	return p
}

// Path returns the location the store was loaded from.
func (p *PlatformSecrets) Path() string {
	return p.path
}

func loadPlatformSecrets(path string, logger *zap.Logger) (map[string]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return readSecretDir(path, logger)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return parseSecretDocument(data)
}

// readSecretDir reads a key-per-file mount. Hidden entries such as the
// ..data links of Kubernetes volumes and nested directories are skipped.
// An unreadable entry is logged and skipped; only an unreadable directory
// disables the store.
func readSecretDir(dir string, logger *zap.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	values := make(map[string]string, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)
		// Stat follows symlinks, which is how mounted volumes expose keys.
		info, err := os.Stat(path)
		if err != nil {
			logger.Warn("skipping unreadable platform secret", zap.String("key", name), zap.Error(err))
			continue
		}
		if info.IsDir() {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping unreadable platform secret", zap.String("key", name), zap.Error(err))
			continue
		}
		values[name] = strings.TrimRight(string(data), "\r\n")
	}
	return values, nil
}

// parseSecretDocument keeps the top-level scalar entries of a YAML mapping.
// Scalars keep their literal text, so `DEBUG: True` resolves to "True".
func parseSecretDocument(data []byte) (map[string]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	values := make(map[string]string)
	if len(doc.Content) == 0 {
		return values, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse YAML: expected a mapping of secret names, got %s", kindName(root.Kind))
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if value.Kind == yaml.AliasNode && value.Alias != nil {
			value = value.Alias
		}
		if value.Kind != yaml.ScalarNode || value.ShortTag() == "!!null" {
			continue
		}
		values[key.Value] = value.Value
	}
	return values, nil
}

func kindName(kind yaml.Kind) string {
	switch kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}

// DotenvFile serves KEY=VALUE pairs read from a local .env file. The file is
// parsed into memory; the process environment is left untouched.
type DotenvFile struct {
	mapProvider
	path string
}

// NewDotenvFile reads the file at path. A missing or malformed file leaves
// the provider empty.
func NewDotenvFile(path string, logger *zap.Logger) *DotenvFile {
	logger = orNop(logger).With(zap.String("provider", SourceDotenv), zap.String("path", path))
	p := &DotenvFile{
		mapProvider: mapProvider{name: SourceDotenv},
		path:        path,
	}

	if strings.TrimSpace(path) == "" {
		logger.Debug("env file not configured")
		return p
	}

	values, err := godotenv.Read(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug("env file not present")
	case err != nil:
		logger.Warn("env file could not be loaded", zap.Error(err))
	default:
		p.values = values
		logger.Debug("env file loaded", zap.Int("keys", len(values)))
	}
	return p
}

// Path returns the location the file was read from.
func (p *DotenvFile) Path() string {
	return p.path
}

// ProcessEnv reads the process environment.
type ProcessEnv struct {
	lookup func(string) (string, bool)
}

// NewProcessEnv returns a provider backed by os.LookupEnv.
func NewProcessEnv() *ProcessEnv {
	return &ProcessEnv{lookup: os.LookupEnv}
}

func (p *ProcessEnv) Name() string {
	return SourceEnv
}

func (p *ProcessEnv) Lookup(name string) (string, bool) {
	return p.lookup(name)
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
