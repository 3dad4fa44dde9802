package settings

// RequiredNames lists the settings whose absence blocks startup.
var RequiredNames = []string{
	"OPENAI_API_KEY",
	"SUPABASE_URL",
	"SUPABASE_ANON_KEY",
}

// OptionalNames lists settings that may be absent; they resolve to an unresolved entry.
var OptionalNames = []string{
	"AIRTABLE_API_KEY",
	"AIRTABLE_BASE_ID",
	"AIRTABLE_TABLE_ID",
	"OUTSCRAPER_API_KEY",
	"SHORT_IO_API_KEY",
}

// Default is a setting with a hardcoded fallback value.
type Default struct {
	Name  string
	Value string
}

// DefaultedSettings lists the development settings and their fallbacks.
var DefaultedSettings = []Default{
	{Name: "DEBUG", Value: "False"},
	{Name: "APP_VERSION", Value: "v2.3"},
	{Name: "PIPELINE_VERSION", Value: "v3"},
}
