package settings

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Setting is the outcome of resolving one name. Value is meaningful only when
// Resolved is true.
type Setting struct {
	Name     string
	Value    string
	Resolved bool
	Source   string
}

// ResultSet holds settings in catalog order.
type ResultSet []Setting

// Lookup returns the value of name if it was resolved.
func (r ResultSet) Lookup(name string) (string, bool) {
	for _, s := range r {
		if s.Name == name {
			return s.Value, s.Resolved
		}
	}
	return "", false
}

// Map returns the resolved entries keyed by name.
func (r ResultSet) Map() map[string]string {
	out := make(map[string]string, len(r))
	for _, s := range r {
		if s.Resolved {
			out[s.Name] = s.Value
		}
	}
	return out
}

// Report is the outcome of checking the required settings.
type Report struct {
	Missing []string
}

// OK reports whether every required setting was resolvable.
func (r Report) OK() bool {
	return len(r.Missing) == 0
}

// ProviderOptions selects where the standard providers read from.
type ProviderOptions struct {
	SecretsPath string
	EnvFile     string
	// OverrideEnv lets values in EnvFile take precedence over the process environment.
	OverrideEnv bool
}

// DefaultProviders builds the standard chain. The platform store always comes
// first; by default the process environment wins over the .env file.
func DefaultProviders(opts ProviderOptions, logger *zap.Logger) []Provider {
	platform := NewPlatformSecrets(opts.SecretsPath, logger)
	dotenv := NewDotenvFile(opts.EnvFile, logger)
	env := NewProcessEnv()

	if opts.OverrideEnv {
		return []Provider{platform, dotenv, env}
	}
	return []Provider{platform, env, dotenv}
}

// Resolver looks settings up across providers in order; the first provider
// holding a value wins.
type Resolver struct {
	providers []Provider
	logger    *zap.Logger
}

// NewResolver composes providers in the order given.
func NewResolver(logger *zap.Logger, providers ...Provider) *Resolver {
	out := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			out = append(out, p)
		}
	}
	return &Resolver{
		providers: out,
		logger:    orNop(logger),
	}
}

// Providers returns the provider names in resolution order.
func (r *Resolver) Providers() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// Lookup resolves name without failing; an unresolved setting is reported as such.
func (r *Resolver) Lookup(name string) Setting {
	for _, p := range r.providers {
		if value, ok := p.Lookup(name); ok {
			r.logger.Debug("setting resolved", zap.String("name", name), zap.String("source", p.Name()))
			return Setting{Name: name, Value: value, Resolved: true, Source: p.Name()}
		}
	}
	r.logger.Debug("setting not found", zap.String("name", name))
	return Setting{Name: name}
}

// Resolve returns the value of name or an error wrapping ErrMissingConfiguration.
func (r *Resolver) Resolve(name string) (string, error) {
	if name == "" {
		return "", ErrInvalidName
	}
	s := r.Lookup(name)
	if !s.Resolved {
		return "", missing(name)
	}
	return s.Value, nil
}

// ResolveDefault returns the value of name, falling back to def when no
// provider holds one. It never fails: an empty name holds no value, so it
// yields def, whereas Resolve rejects it with ErrInvalidName.
func (r *Resolver) ResolveDefault(name, def string) string {
	return r.lookupDefault(name, def).Value
}

func (r *Resolver) lookupDefault(name, def string) Setting {
	if name == "" {
		return Setting{Name: name, Value: def, Resolved: true, Source: SourceDefault}
	}
	s := r.Lookup(name)
	if !s.Resolved {
		return Setting{Name: name, Value: def, Resolved: true, Source: SourceDefault}
	}
	return s
}

// Check resolves every required setting and collects the missing ones.
func (r *Resolver) Check() Report {
	var report Report
	for _, name := range RequiredNames {
		if _, err := r.Resolve(name); err != nil {
			if !errors.Is(err, ErrMissingConfiguration) {
				r.logger.Error("unexpected resolution error", zap.String("name", name), zap.Error(err))
			}
			report.Missing = append(report.Missing, name)
		}
	}
	return report
}

// CheckRequired runs Check, writes a human-readable report to w and returns
// whether every required setting is present.
func (r *Resolver) CheckRequired(w io.Writer) bool {
	report := r.Check()
	if !report.OK() {
		r.logger.Warn("required settings missing", zap.Strings("missing", report.Missing))
		fmt.Fprintf(w, "Missing required environment variables: %s\n", strings.Join(report.Missing, ", "))
		fmt.Fprintln(w, "Please check your .env file or platform secrets configuration")
		return false
	}
	fmt.Fprintln(w, "All required environment variables are present")
	return true
}

// GetAll resolves the full catalog. A missing required setting aborts with
// ErrMissingConfiguration; optional settings that are absent stay unresolved.
func (r *Resolver) GetAll() (ResultSet, error) {
	out := make(ResultSet, 0, len(RequiredNames)+len(OptionalNames)+len(DefaultedSettings))

	for _, name := range RequiredNames {
		s := r.Lookup(name)
		if !s.Resolved {
			return nil, missing(name)
		}
		out = append(out, s)
	}
	for _, name := range OptionalNames {
		out = append(out, r.Lookup(name))
	}
	for _, d := range DefaultedSettings {
		out = append(out, r.lookupDefault(d.Name, d.Value))
	}
	return out, nil
}

func missing(name string) error {
	return fmt.Errorf("%w: setting %q not found; check your .env file or platform secrets", ErrMissingConfiguration, name)
}
