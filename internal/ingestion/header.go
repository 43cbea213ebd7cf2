package ingestion

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/demoscope-io/demoscope/internal/config"
)

// DefaultHeaderConfigPath is the default location for the demoscope
// configuration file. Hidden-file format following common tool conventions.
const DefaultHeaderConfigPath = ".demoscope.yaml"

// HeaderConfigPathEnvVar is the environment variable name for a custom
// header-alias config path.
const HeaderConfigPathEnvVar = "DEMOSCOPE_CONFIG_PATH"

type (
	// HeaderConfig holds CSV header alias configuration loaded from
	// .demoscope.yaml. Uploads arrive with header variants ("DOB",
	// "Date of Birth"); aliases map them to the canonical field names.
	HeaderConfig struct {
		//nolint:tagliatelle // snake_case is intentional for YAML config files
		HeaderAliases map[string]string `yaml:"header_aliases"`
	}

	// HeaderResolver canonicalizes uploaded CSV header names. Thread-safe for
	// concurrent use (immutable after construction).
	HeaderResolver struct {
		aliases map[string]string
	}
)

// LoadHeaderConfig loads alias configuration from a YAML file at the given path.
//
// Behavior:
//   - Returns empty config (not error) if the file doesn't exist - aliases are optional
//   - Returns empty config + logs warning if the YAML is invalid (graceful degradation)
//   - Returns populated config on success
//
// Graceful degradation ensures the service starts even without aliases
// configured; canonical header names always work.
func LoadHeaderConfig(path string) (*HeaderConfig, error) {
	cfg := &HeaderConfig{
		HeaderAliases: make(map[string]string),
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("Header alias config not found, continuing without aliases",
				slog.String("path", path))

			return cfg, nil
		}

		slog.Warn("Failed to read header alias config, continuing without aliases",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return cfg, nil
	}

	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Warn("Failed to parse header alias config, continuing without aliases",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return &HeaderConfig{HeaderAliases: make(map[string]string)}, nil
	}

	if cfg.HeaderAliases == nil {
		cfg.HeaderAliases = make(map[string]string)
	}

	return cfg, nil
}

// LoadHeaderConfigFromEnv loads config from the path in DEMOSCOPE_CONFIG_PATH,
// falling back to ".demoscope.yaml" in the current directory.
func LoadHeaderConfigFromEnv() (*HeaderConfig, error) {
	path := config.GetEnvStr(HeaderConfigPathEnvVar, DefaultHeaderConfigPath)

	return LoadHeaderConfig(path)
}

// NewHeaderResolver builds a resolver from config. Alias keys are normalized
// the same way incoming header names are, so "Date of Birth" and
// "date of birth" configure the same alias.
func NewHeaderResolver(cfg *HeaderConfig) *HeaderResolver {
	aliases := make(map[string]string, len(cfg.HeaderAliases))
	for alias, canonical := range cfg.HeaderAliases {
		aliases[normalizeHeaderName(alias)] = canonical
	}

	return &HeaderResolver{aliases: aliases}
}

// Resolve canonicalizes one uploaded header field name: trim, lowercase,
// spaces to underscores, then alias lookup. Unknown names pass through
// normalized, so unexpected columns are carried in the row map untouched.
func (r *HeaderResolver) Resolve(name string) string {
	normalized := normalizeHeaderName(name)

	if canonical, ok := r.aliases[normalized]; ok {
		return canonical
	}

	return normalized
}

// ResolveAll canonicalizes a full header row.
func (r *HeaderResolver) ResolveAll(header []string) []string {
	resolved := make([]string, len(header))
	for i, name := range header {
		resolved[i] = r.Resolve(name)
	}

	return resolved
}

func normalizeHeaderName(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))

	return strings.ReplaceAll(normalized, " ", "_")
}
