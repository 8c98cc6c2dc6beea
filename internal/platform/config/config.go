package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr string

	// Storage selects the persistence backend: "memory" or "postgres".
	Storage     string
	PostgresURL string

	Redis RedisConfig

	// DeviceID and DeviceRole identify this installation when requests do
	// not carry their own device headers (offline batch tooling).
	DeviceID   string
	DeviceRole string

	Survey SurveyConfig
}

// RedisConfig holds connection settings for the identifier allocator.
type RedisConfig struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SurveyConfig carries the study-site registry the plot core validates
// against. Never read from globals inside domain logic; it is passed into
// the lifecycle service at construction.
type SurveyConfig struct {
	// MapAreas maps a community name to its identifier map code.
	MapAreas map[string]string
	// AddPlotMapAreas lists communities where field devices may add plots
	// manually.
	AddPlotMapAreas []string
	// SpecialLocations are reserved location names (e.g. clinic) blocked
	// from user edits.
	SpecialLocations []string
	MaxHouseholds    int
	// TargetRadius is the default confirmation tolerance in meters.
	TargetRadius float64
}

// DefaultSurvey returns the survey registry used when env does not override.
func DefaultSurvey() SurveyConfig {
	return SurveyConfig{
		MapAreas:         map[string]string{"test_community": "10"},
		AddPlotMapAreas:  []string{"test_community"},
		SpecialLocations: []string{"clinic", "mobile"},
		MaxHouseholds:    9,
		TargetRadius:     25.0,
	}
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:        envOr("FIELDPLOT_ADDR", ":8080"),
		Storage:     envOr("FIELDPLOT_STORAGE", "memory"),
		PostgresURL: os.Getenv("FIELDPLOT_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("FIELDPLOT_REDIS_URL"),
			PoolSize:     envInt("FIELDPLOT_REDIS_POOL_SIZE", 10),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		DeviceID:   envOr("FIELDPLOT_DEVICE_ID", "99"),
		DeviceRole: envOr("FIELDPLOT_DEVICE_ROLE", "central_server"),
		Survey:     DefaultSurvey(),
	}
	if areas := os.Getenv("FIELDPLOT_MAP_AREAS"); areas != "" {
		cfg.Survey.MapAreas = parseMapAreas(areas)
	}
	if allow := os.Getenv("FIELDPLOT_ADD_PLOT_MAP_AREAS"); allow != "" {
		cfg.Survey.AddPlotMapAreas = strings.Split(allow, ",")
	}
	if max := envInt("FIELDPLOT_MAX_HOUSEHOLDS", 0); max > 0 {
		cfg.Survey.MaxHouseholds = max
	}
	return cfg
}

// parseMapAreas parses "community:mapcode,community:mapcode" pairs.
func parseMapAreas(value string) map[string]string {
	areas := make(map[string]string)
	for pair := range strings.SplitSeq(value, ",") {
		name, code, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || name == "" {
			continue
		}
		areas[name] = code
	}
	return areas
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
