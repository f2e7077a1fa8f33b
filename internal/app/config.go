package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/habitlink/habitlink-backend/internal/logger"
	"github.com/habitlink/habitlink-backend/internal/services"
	"github.com/habitlink/habitlink-backend/internal/utils"
)

type Config struct {
	ServiceName  string
	Environment  string
	Version      string
	JWTSecretKey string
	Port         string
	Matching     services.MatchingConfig
}

func LoadConfig(log *logger.Logger) (Config, error) {
	matching, err := loadMatchingConfig(log)
	if err != nil {
		return Config{}, err
	}
	return Config{
		ServiceName:  utils.GetEnv("SERVICE_NAME", "habitlink-backend", log),
		Environment:  utils.GetEnv("ENVIRONMENT", "development", log),
		Version:      utils.GetEnv("SERVICE_VERSION", "dev", log),
		JWTSecretKey: utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		Port:         utils.GetEnv("PORT", "8080", log),
		Matching:     matching,
	}, nil
}

// matchingFileConfig is the optional YAML override for matching parameters.
// Absent fields keep their defaults.
type matchingFileConfig struct {
	Weights *struct {
		PlanSim *float64 `yaml:"plan_sim"`
		GeoSim  *float64 `yaml:"geo_sim"`
		AgeSim  *float64 `yaml:"age_sim"`
	} `yaml:"weights"`
	MinScore              *float64 `yaml:"min_score"`
	MaxSimilarPlans       *int     `yaml:"max_similar_plans"`
	TopN                  *int     `yaml:"top_n"`
	StalenessTTLHours     *int     `yaml:"staleness_ttl_hours"`
	OnboardingWindowDays  *int     `yaml:"onboarding_window_days"`
	EngagementWindowDays  *int     `yaml:"engagement_window_days"`
	ActivityWindowDays    *int     `yaml:"activity_window_days"`
	InternalEmailPrefixes []string `yaml:"internal_email_prefixes"`
}

func loadMatchingConfig(log *logger.Logger) (services.MatchingConfig, error) {
	cfg := services.DefaultMatchingConfig()

	if raw := strings.TrimSpace(utils.GetEnv("INTERNAL_EMAIL_PREFIXES", "", log)); raw != "" {
		cfg.InternalEmailPrefixes = splitAndTrim(raw)
	}

	path := strings.TrimSpace(os.Getenv("MATCHING_CONFIG_PATH"))
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read matching config: %w", err)
	}
	cfg, err = applyMatchingOverrides(cfg, raw)
	if err != nil {
		return cfg, fmt.Errorf("parse matching config %s: %w", path, err)
	}
	if log != nil {
		log.Info("matching config loaded from file", "path", path)
	}
	return cfg, nil
}

func applyMatchingOverrides(cfg services.MatchingConfig, raw []byte) (services.MatchingConfig, error) {
	var file matchingFileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return cfg, err
	}

	if file.Weights != nil {
		if file.Weights.PlanSim != nil {
			cfg.Weights.PlanSim = *file.Weights.PlanSim
		}
		if file.Weights.GeoSim != nil {
			cfg.Weights.GeoSim = *file.Weights.GeoSim
		}
		if file.Weights.AgeSim != nil {
			cfg.Weights.AgeSim = *file.Weights.AgeSim
		}
	}
	if file.MinScore != nil {
		cfg.MinScore = *file.MinScore
	}
	if file.MaxSimilarPlans != nil {
		cfg.MaxSimilarPlans = *file.MaxSimilarPlans
	}
	if file.TopN != nil {
		cfg.TopN = *file.TopN
	}
	if file.StalenessTTLHours != nil {
		cfg.StalenessTTL = time.Duration(*file.StalenessTTLHours) * time.Hour
	}
	if file.OnboardingWindowDays != nil {
		cfg.OnboardingWindow = time.Duration(*file.OnboardingWindowDays) * 24 * time.Hour
	}
	if file.EngagementWindowDays != nil {
		cfg.EngagementWindow = time.Duration(*file.EngagementWindowDays) * 24 * time.Hour
	}
	if file.ActivityWindowDays != nil {
		cfg.ActivityWindow = time.Duration(*file.ActivityWindowDays) * 24 * time.Hour
	}
	if len(file.InternalEmailPrefixes) > 0 {
		cfg.InternalEmailPrefixes = file.InternalEmailPrefixes
	}
	return cfg, nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
