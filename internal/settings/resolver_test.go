package settings

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type staticProvider struct {
	name   string
	values map[string]string
	calls  int
}

func (s *staticProvider) Name() string {
	return s.name
}

func (s *staticProvider) Lookup(name string) (string, bool) {
	s.calls++
	v, ok := s.values[name]
	return v, ok
}

func newStatic(name string, values map[string]string) *staticProvider {
	return &staticProvider{name: name, values: values}
}

func TestResolveFromProcessEnv(t *testing.T) {
	t.Setenv("ENVCHECK_TEST_ONLY_ENV", "from-env")

	r := NewResolver(zaptest.NewLogger(t),
		newStatic(SourcePlatform, nil),
		newStatic(SourceDotenv, nil),
		NewProcessEnv(),
	)

	got, err := r.Resolve("ENVCHECK_TEST_ONLY_ENV")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-env" {
		t.Fatalf("expected env value, got %q", got)
	}
}

func TestResolveMissing(t *testing.T) {
	r := NewResolver(zaptest.NewLogger(t), newStatic(SourcePlatform, nil), NewProcessEnv())

	_, err := r.Resolve("ENVCHECK_TEST_DEFINITELY_UNSET")
	if !errors.Is(err, ErrMissingConfiguration) {
		t.Fatalf("expected ErrMissingConfiguration, got %v", err)
	}
	if !strings.Contains(err.Error(), "ENVCHECK_TEST_DEFINITELY_UNSET") {
		t.Fatalf("expected error to name the setting, got %q", err.Error())
	}

	if got := r.ResolveDefault("ENVCHECK_TEST_DEFINITELY_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("expected default, got %q", got)
	}
}

func TestResolveEmptyName(t *testing.T) {
	empty := newStatic(SourceEnv, map[string]string{"": "odd"})
	r := NewResolver(nil, empty)
	if _, err := r.Resolve(""); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if got := r.ResolveDefault("", "d"); got != "d" {
		t.Fatalf("expected default for empty name, got %q", got)
	}
	if empty.calls != 0 {
		t.Fatalf("expected providers not to be consulted for an empty name, got %d calls", empty.calls)
	}
}

func TestResolveDefaultPrefersProviders(t *testing.T) {
	r := NewResolver(nil, newStatic(SourceEnv, map[string]string{"DEBUG": "True"}))
	if got := r.ResolveDefault("DEBUG", "False"); got != "True" {
		t.Fatalf("expected provider value over default, got %q", got)
	}
}

func TestResolveEmptyValueCountsAsSet(t *testing.T) {
	t.Setenv("ENVCHECK_TEST_EMPTY", "")

	r := NewResolver(nil, NewProcessEnv())
	got, err := r.Resolve("ENVCHECK_TEST_EMPTY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty value, got %q", got)
	}
}

func TestResolvePlatformTakesPrecedence(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-value")

	platform := newStatic(SourcePlatform, map[string]string{"OPENAI_API_KEY": "platform-value"})
	dotenv := newStatic(SourceDotenv, map[string]string{"OPENAI_API_KEY": "dotenv-value"})
	r := NewResolver(nil, platform, NewProcessEnv(), dotenv)

	got, err := r.Resolve("OPENAI_API_KEY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "platform-value" {
		t.Fatalf("expected platform value, got %q", got)
	}
	if dotenv.calls != 0 {
		t.Fatalf("expected later providers to be skipped, dotenv consulted %d times", dotenv.calls)
	}
}

func TestLookupReportsSource(t *testing.T) {
	r := NewResolver(nil,
		newStatic(SourcePlatform, nil),
		newStatic(SourceEnv, map[string]string{"SUPABASE_URL": "https://example.supabase.co"}),
	)

	s := r.Lookup("SUPABASE_URL")
	if !s.Resolved || s.Source != SourceEnv {
		t.Fatalf("expected setting resolved from env, got %+v", s)
	}

	s = r.Lookup("SUPABASE_ANON_KEY")
	if s.Resolved || s.Source != "" {
		t.Fatalf("expected unresolved setting without source, got %+v", s)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	t.Setenv("ENVCHECK_TEST_STABLE", "same")
	r := NewResolver(nil, NewProcessEnv())

	first, err1 := r.Resolve("ENVCHECK_TEST_STABLE")
	second, err2 := r.Resolve("ENVCHECK_TEST_STABLE")
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if first != second {
		t.Fatalf("expected identical results, got %q and %q", first, second)
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name        string
		values      map[string]string
		wantOK      bool
		wantMissing []string
	}{
		{
			name: "AllPresent",
			values: map[string]string{
				"OPENAI_API_KEY":    "sk-test",
				"SUPABASE_URL":      "https://example.supabase.co",
				"SUPABASE_ANON_KEY": "anon",
			},
			wantOK: true,
		},
		{
			name:        "OnlyURL",
			values:      map[string]string{"SUPABASE_URL": "https://example.supabase.co"},
			wantMissing: []string{"OPENAI_API_KEY", "SUPABASE_ANON_KEY"},
		},
		{
			name:        "NothingSet",
			values:      nil,
			wantMissing: []string{"OPENAI_API_KEY", "SUPABASE_URL", "SUPABASE_ANON_KEY"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(zaptest.NewLogger(t), newStatic(SourceEnv, tt.values))

			report := r.Check()
			if report.OK() != tt.wantOK {
				t.Fatalf("expected OK=%v, got %v", tt.wantOK, report.OK())
			}
			if !slices.Equal(report.Missing, tt.wantMissing) {
				t.Fatalf("expected missing %v, got %v", tt.wantMissing, report.Missing)
			}
		})
	}
}

func TestCheckRequiredWritesReport(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		r := NewResolver(nil, newStatic(SourceEnv, map[string]string{"SUPABASE_URL": "u"}))
		var buf bytes.Buffer

		if r.CheckRequired(&buf) {
			t.Fatalf("expected check to fail")
		}
		if !strings.Contains(buf.String(), "Missing required environment variables: OPENAI_API_KEY, SUPABASE_ANON_KEY") {
			t.Fatalf("unexpected report: %q", buf.String())
		}
	})

	t.Run("complete", func(t *testing.T) {
		r := NewResolver(nil, newStatic(SourceEnv, completeRequired()))
		var buf bytes.Buffer

		if !r.CheckRequired(&buf) {
			t.Fatalf("expected check to pass")
		}
		if !strings.Contains(buf.String(), "All required environment variables are present") {
			t.Fatalf("unexpected report: %q", buf.String())
		}
	})
}

func TestGetAll(t *testing.T) {
	values := completeRequired()
	values["AIRTABLE_BASE_ID"] = "app123"
	values["APP_VERSION"] = "v9"
	r := NewResolver(nil, newStatic(SourceEnv, values))

	all, err := r.GetAll()
	if err != nil {
		t.Fatalf("GetAll returned error: %v", err)
	}

	if want := len(RequiredNames) + len(OptionalNames) + len(DefaultedSettings); len(all) != want {
		t.Fatalf("expected %d settings, got %d", want, len(all))
	}
	if v, ok := all.Lookup("AIRTABLE_BASE_ID"); !ok || v != "app123" {
		t.Fatalf("expected optional value, got %q (%v)", v, ok)
	}
	if _, ok := all.Lookup("SHORT_IO_API_KEY"); ok {
		t.Fatalf("expected absent optional setting to stay unresolved")
	}
	if v, _ := all.Lookup("DEBUG"); v != "False" {
		t.Fatalf("expected DEBUG default, got %q", v)
	}
	if v, _ := all.Lookup("APP_VERSION"); v != "v9" {
		t.Fatalf("expected APP_VERSION from provider, got %q", v)
	}
	if v, _ := all.Lookup("PIPELINE_VERSION"); v != "v3" {
		t.Fatalf("expected PIPELINE_VERSION default, got %q", v)
	}

	m := all.Map()
	if _, ok := m["AIRTABLE_API_KEY"]; ok {
		t.Fatalf("expected unresolved settings to be left out of Map")
	}
	if m["OPENAI_API_KEY"] != values["OPENAI_API_KEY"] {
		t.Fatalf("expected required setting in Map")
	}
}

func TestGetAllMissingRequired(t *testing.T) {
	r := NewResolver(nil, newStatic(SourceEnv, map[string]string{"OPENAI_API_KEY": "sk"}))

	_, err := r.GetAll()
	if !errors.Is(err, ErrMissingConfiguration) {
		t.Fatalf("expected ErrMissingConfiguration, got %v", err)
	}
	if !strings.Contains(err.Error(), "SUPABASE_URL") {
		t.Fatalf("expected first missing setting in error, got %q", err.Error())
	}
}

func TestResolverNeverLogsValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewResolver(zap.New(core), newStatic(SourcePlatform, map[string]string{"OPENAI_API_KEY": "sk-very-secret"}))

	if _, err := r.Resolve("OPENAI_API_KEY"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := logs.FilterMessage("setting resolved").All()
	if len(entries) != 1 {
		t.Fatalf("expected one resolution log entry, got %d", len(entries))
	}
	for key, value := range entries[0].ContextMap() {
		if s, ok := value.(string); ok && strings.Contains(s, "sk-very-secret") {
			t.Fatalf("secret value leaked into log field %q", key)
		}
	}
	if got := entries[0].ContextMap()["source"]; got != SourcePlatform {
		t.Fatalf("expected source field %q, got %v", SourcePlatform, got)
	}
}

func TestNewResolverSkipsNilProviders(t *testing.T) {
	r := NewResolver(nil, nil, newStatic(SourceEnv, nil), nil)
	if got := r.Providers(); !slices.Equal(got, []string{SourceEnv}) {
		t.Fatalf("unexpected providers: %v", got)
	}
}

func TestDefaultProvidersOrder(t *testing.T) {
	dir := t.TempDir()

	got := NewResolver(nil, DefaultProviders(ProviderOptions{EnvFile: dir + "/.env"}, nil)...).Providers()
	if want := []string{SourcePlatform, SourceEnv, SourceDotenv}; !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	got = NewResolver(nil, DefaultProviders(ProviderOptions{OverrideEnv: true}, nil)...).Providers()
	if want := []string{SourcePlatform, SourceDotenv, SourceEnv}; !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func completeRequired() map[string]string {
	return map[string]string{
		"OPENAI_API_KEY":    "sk-ABCDEFGHIJKLMN",
		"SUPABASE_URL":      "https://example.supabase.co",
		"SUPABASE_ANON_KEY": "anon-key-value-0123",
	}
}
