package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables recognized by LoadSettings. Anything else present in
// the environment is ignored.
const (
	EnvModelID      = "MODEL_ID"
	EnvTemperature  = "TEMPERATURE"
	EnvAPIKey       = "ANTHROPIC_API_KEY"
	EnvNewsAPIKey   = "NEWSAPI_KEY"
	EnvMarketauxKey = "MARKETAUX_API_KEY"
)

// DefaultEnvFile is the conventional dotenv location, relative to the working
// directory.
const DefaultEnvFile = ".env"

// Settings holds the credentials and model parameters read from the
// environment at startup. It is constructed exactly once by LoadSettings and
// passed by value to the components that need it; nothing mutates it
// afterwards.
type Settings struct {
	// ModelID is the Claude model identifier, e.g. "claude-3-5-sonnet-20241022".
	ModelID string

	// Temperature controls response randomness. Valid range is [0.0, 1.0].
	Temperature float64

	// APIKey authenticates against the Anthropic API.
	APIKey string

	// NewsAPIKey and MarketauxAPIKey authenticate the news providers. Either
	// may be empty, which disables the corresponding source.
	NewsAPIKey      string
	MarketauxAPIKey string
}

// LoadSettings reads Settings from the process environment, optionally
// pre-populated from a dotenv file at envFile (DefaultEnvFile when empty).
// File entries only fill in variables that are not already set; the
// surrounding environment always wins.
//
// Any missing required key, unparseable temperature, or out-of-range
// temperature aborts the load with a typed error naming the offending key.
// No partially-filled Settings is ever returned.
func LoadSettings(envFile string) (Settings, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}

	if _, err := os.Stat(envFile); err == nil {
		// godotenv.Load never overrides variables already present in the
		// environment, which is exactly the precedence we need.
		if err := godotenv.Load(envFile); err != nil {
			return Settings{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	modelID := strings.TrimSpace(os.Getenv(EnvModelID))
	if modelID == "" {
		return Settings{}, &MissingKeyError{Key: EnvModelID}
	}

	rawTemp := strings.TrimSpace(os.Getenv(EnvTemperature))
	if rawTemp == "" {
		return Settings{}, &MissingKeyError{Key: EnvTemperature}
	}
	temperature, err := strconv.ParseFloat(rawTemp, 64)
	// "NaN" and "Inf" survive ParseFloat but are not usable sampling
	// values; they are classified as non-coercible, not out of range.
	if err != nil || math.IsNaN(temperature) || math.IsInf(temperature, 0) {
		return Settings{}, &ParseError{Key: EnvTemperature, Value: rawTemp}
	}
	if temperature < 0.0 || temperature > 1.0 {
		return Settings{}, &RangeError{Key: EnvTemperature, Value: temperature, Min: 0.0, Max: 1.0}
	}

	apiKey := strings.TrimSpace(os.Getenv(EnvAPIKey))
	if apiKey == "" {
		return Settings{}, &MissingKeyError{Key: EnvAPIKey}
	}

	return Settings{
		ModelID:         modelID,
		Temperature:     temperature,
		APIKey:          apiKey,
		NewsAPIKey:      strings.TrimSpace(os.Getenv(EnvNewsAPIKey)),
		MarketauxAPIKey: strings.TrimSpace(os.Getenv(EnvMarketauxKey)),
	}, nil
}

// Redacted returns a copy with secrets masked, suitable for display.
func (s Settings) Redacted() Settings {
	s.APIKey = redactSecret(s.APIKey)
	s.NewsAPIKey = redactSecret(s.NewsAPIKey)
	s.MarketauxAPIKey = redactSecret(s.MarketauxAPIKey)
	return s
}

func redactSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return "********"
	}
	return v[:4] + "…" + v[len(v)-4:]
}
