package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol).
	// The same service backs both choice classification and narrative
	// generation; all providers use the same config.
	LLMProvider string // Provider identifier: openai, deepseek, openrouter, ollama
	LLMAPIKey   string
	LLMBaseURL  string // optional, has default per provider
	LLMModel    string
	LLMTimeout  int // LLM request timeout in seconds (default: 90)

	// External metric providers.
	CityAPIBaseURL    string // urban livability scores API
	GeoAPIBaseURL     string // geocoding API
	ClimateAPIBaseURL string // climate normals API
	ImageAPIBaseURL   string // cover image search API
	ImageAPIKey       string

	// Defaults used when neither the choice, the parent node, nor the
	// session base context specifies a value.
	DefaultCity       string
	DefaultCountry    string
	DefaultOccupation string

	Mode    string // prod, dev, demo
	Addr    string
	Port    int
	Data    string // data directory
	Driver  string // sqlite, postgres
	DSN     string
	Version string
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an LLM API key is configured. Without one the
// pipeline still completes every node via deterministic fallbacks.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv overlays environment variables onto the profile. An env value
// only fills a field when it is set, so flags keep their values otherwise.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("PL_LLM_PROVIDER", p.LLMProvider)
	p.LLMAPIKey = getEnvOrDefault("PL_LLM_API_KEY", p.LLMAPIKey)
	p.LLMBaseURL = getEnvOrDefault("PL_LLM_BASE_URL", p.LLMBaseURL)
	p.LLMModel = getEnvOrDefault("PL_LLM_MODEL", p.LLMModel)
	p.LLMTimeout = getEnvOrDefaultInt("PL_LLM_TIMEOUT", p.LLMTimeout)

	p.CityAPIBaseURL = getEnvOrDefault("PL_CITY_API_URL", p.CityAPIBaseURL)
	p.GeoAPIBaseURL = getEnvOrDefault("PL_GEO_API_URL", p.GeoAPIBaseURL)
	p.ClimateAPIBaseURL = getEnvOrDefault("PL_CLIMATE_API_URL", p.ClimateAPIBaseURL)
	p.ImageAPIBaseURL = getEnvOrDefault("PL_IMAGE_API_URL", p.ImageAPIBaseURL)
	p.ImageAPIKey = getEnvOrDefault("PL_IMAGE_API_KEY", p.ImageAPIKey)

	p.DefaultCity = getEnvOrDefault("PL_DEFAULT_CITY", p.DefaultCity)
	p.DefaultCountry = getEnvOrDefault("PL_DEFAULT_COUNTRY", p.DefaultCountry)
	p.DefaultOccupation = getEnvOrDefault("PL_DEFAULT_OCCUPATION", p.DefaultOccupation)
}

// Validate normalizes and checks the profile, filling documented defaults.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/parallellives"
	}
	if p.Data == "" {
		wd, err := os.Getwd()
		if err != nil {
			return errors.Wrap(err, "failed to get working directory")
		}
		p.Data = wd
	}
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return errors.Wrapf(err, "failed to check data directory: %s", p.Data)
	}
	p.Data = dataDir

	switch p.Driver {
	case "sqlite":
		if p.DSN == "" {
			dbFile := fmt.Sprintf("parallellives_%s.db", p.Mode)
			p.DSN = filepath.Join(dataDir, dbFile)
		}
	case "postgres":
		if p.DSN == "" {
			return errors.New("dsn is required for postgres driver")
		}
	default:
		return errors.Errorf("unsupported driver %q (sqlite, postgres)", p.Driver)
	}

	if p.LLMTimeout <= 0 {
		p.LLMTimeout = 90
	}

	// Documented pipeline defaults: used only when the choice, the parent
	// node, and the session base context are all silent.
	if p.DefaultCity == "" {
		p.DefaultCity = "New York"
	}
	if p.DefaultCountry == "" {
		p.DefaultCountry = "United States"
	}
	if p.DefaultOccupation == "" {
		p.DefaultOccupation = "Software Engineer"
	}

	return nil
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}
	// Trim trailing slash.
	dataDir = strings.TrimRight(dataDir, "/")

	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}
