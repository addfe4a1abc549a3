package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"phronesis/models"
)

// ErrStartupConfigurationMissing is returned when the process cannot start:
// the system prompt document or the model credential is absent
var ErrStartupConfigurationMissing = errors.New("startup configuration missing")

// Results backends
const (
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
	BackendNone   = "none"
)

// GetGeminiModel returns the Gemini model to use from environment variable
// Defaults to "gemini-2.5-flash" if not set
func GetGeminiModel() string {
	return getEnv("GEMINI_MODEL", "gemini-2.5-flash")
}

// GetGeminiAPIKey returns the Gemini API key from environment variable
func GetGeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

// GetMongoDBURI returns the MongoDB connection URI from environment variable
func GetMongoDBURI() string {
	return os.Getenv("MONGODB_URI")
}

// GetMongoDBDatabase returns the database results are written to
func GetMongoDBDatabase() string {
	return getEnv("MONGODB_DATABASE", "phronesis")
}

// GetAllowedOrigins returns the allowed CORS origins from environment variable
func GetAllowedOrigins() string {
	return os.Getenv("ALLOWED_ORIGINS")
}

// GetSystemPromptPath returns the path of the system instruction document
func GetSystemPromptPath() string {
	return getEnv("SYSTEM_PROMPT_PATH", "system_prompt.md")
}

// GetClosingThreshold returns the user turn count that triggers the closing
// directive. Invalid values fall back to 5.
func GetClosingThreshold() int {
	n, err := strconv.Atoi(os.Getenv("CLOSING_THRESHOLD"))
	if err != nil || n <= 0 {
		return 5
	}
	return n
}

// UseMockLLM reports whether the offline mock replaces Gemini
func UseMockLLM() bool {
	v, _ := strconv.ParseBool(os.Getenv("USE_MOCK_LLM"))
	return v
}

// GetResultsBackend returns mongo, sqlite or none
func GetResultsBackend() string {
	return strings.ToLower(getEnv("RESULTS_BACKEND", BackendMongo))
}

// GetSQLitePath returns the SQLite database file for the sqlite backend
func GetSQLitePath() string {
	return getEnv("SQLITE_PATH", "data/results.db")
}

// GetArchetypesFile returns the optional YAML catalog override
func GetArchetypesFile() string {
	return os.Getenv("ARCHETYPES_FILE")
}

// GetPort returns the HTTP listen port
func GetPort() string {
	return getEnv("PORT", "8080")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Config is the resolved process configuration
type Config struct {
	GeminiAPIKey      string
	GeminiModel       string
	SystemInstruction string
	ClosingThreshold  int
	UseMockLLM        bool
	ResultsBackend    string
	MongoURI          string
	MongoDatabase     string
	SQLitePath        string
	AllowedOrigins    []string
	Port              string
	Catalog           models.Catalog
}

// Load reads the environment and the system prompt document. It must run
// after godotenv has populated the environment.
func Load() (*Config, error) {
	cfg := &Config{
		GeminiAPIKey:     GetGeminiAPIKey(),
		GeminiModel:      GetGeminiModel(),
		ClosingThreshold: GetClosingThreshold(),
		UseMockLLM:       UseMockLLM(),
		ResultsBackend:   GetResultsBackend(),
		MongoURI:         GetMongoDBURI(),
		MongoDatabase:    GetMongoDBDatabase(),
		SQLitePath:       GetSQLitePath(),
		AllowedOrigins:   splitOrigins(GetAllowedOrigins()),
		Port:             GetPort(),
	}

	switch cfg.ResultsBackend {
	case BackendMongo, BackendSQLite, BackendNone:
	default:
		return nil, fmt.Errorf("unknown RESULTS_BACKEND %q (want mongo, sqlite or none)", cfg.ResultsBackend)
	}

	path := GetSystemPromptPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: system prompt %s: %v", ErrStartupConfigurationMissing, path, err)
	}
	cfg.SystemInstruction = strings.TrimSpace(string(data))
	if cfg.SystemInstruction == "" {
		return nil, fmt.Errorf("%w: system prompt %s is empty", ErrStartupConfigurationMissing, path)
	}

	if cfg.GeminiAPIKey == "" && !cfg.UseMockLLM {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrStartupConfigurationMissing)
	}

	catalog, err := LoadCatalog(GetArchetypesFile())
	if err != nil {
		return nil, err
	}
	cfg.Catalog = catalog

	return cfg, nil
}

// LoadCatalog returns the built-in catalog overlaid with the YAML file at
// path. An empty path yields the built-in catalog.
func LoadCatalog(path string) (models.Catalog, error) {
	base := models.DefaultCatalog()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.Catalog{}, fmt.Errorf("reading archetypes file: %w", err)
	}

	var overlay models.Catalog
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return models.Catalog{}, fmt.Errorf("parsing archetypes file %s: %w", path, err)
	}
	return base.Merge(overlay), nil
}

func splitOrigins(v string) []string {
	var out []string
	for _, o := range strings.Split(v, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
