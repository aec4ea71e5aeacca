package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/Veraticus/heartline/internal/common"
	"github.com/Veraticus/heartline/internal/inference"
	"github.com/Veraticus/heartline/internal/model"
)

// Configuration keys.
const (
	KeyAbnormalThreshold = "thresholds.abnormal"
	KeyUncertainMargin   = "thresholds.uncertain_margin"
	KeyArtifactsDir      = "artifacts.dir"
	KeyModelPath         = "artifacts.model"
	KeyScalerPath        = "artifacts.scaler"
	KeyFeatureCount      = "dataset.features"
	KeyDatabasePath      = "database.path"
	KeyWorkers           = "analysis.workers"
	KeyServerAddr        = "server.addr"
	KeyServerTLS         = "server.tls"
	KeyCertDir           = "server.cert_dir"
	KeyCORSOrigins       = "server.cors_origins"
	KeyLogLevel          = "logging.level"
	KeyLogFormat         = "logging.format"
)

// Default locations.
const (
	DefaultDatabasePath = "$HOME/.local/share/heartline/heartline.db"
	DefaultArtifactsDir = "$HOME/.local/share/heartline/model"
	DefaultServerAddr   = ":8080"
	DefaultCertDir      = "$HOME/.local/share/heartline/certs"
)

// Settings is the validated application configuration.
type Settings struct {
	ModelPath         string   `validate:"required"`
	ScalerPath        string   `validate:"required"`
	DatabasePath      string   `validate:"required"`
	ServerAddr        string   `validate:"required,hostname_port"`
	CertDir           string   `validate:"required_if=ServerTLS true"`
	LogLevel          string   `validate:"oneof=debug info warn error"`
	CORSOrigins       []string `validate:"dive,required"`
	LogFormat         string   `validate:"oneof=console json"`
	AbnormalThreshold float64
	UncertainMargin   float64
	FeatureCount      int `validate:"gt=0"`
	Workers           int `validate:"gte=1,lte=256"`
	ServerTLS         bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAbnormalThreshold, model.DefaultAbnormalThreshold)
	v.SetDefault(KeyUncertainMargin, model.DefaultUncertainMargin)
	v.SetDefault(KeyArtifactsDir, DefaultArtifactsDir)
	v.SetDefault(KeyFeatureCount, model.FeatureCount)
	v.SetDefault(KeyDatabasePath, DefaultDatabasePath)
	v.SetDefault(KeyWorkers, 4)
	v.SetDefault(KeyServerAddr, DefaultServerAddr)
	v.SetDefault(KeyServerTLS, false)
	v.SetDefault(KeyCertDir, DefaultCertDir)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}

// Load reads Settings from v, expands paths and validates the result.
// Out of range thresholds return a *model.ConfigurationError.
// Model and scaler paths default to files inside artifacts.dir.
func Load(v *viper.Viper) (Settings, error) {
	artifactsDir := ExpandPath(v.GetString(KeyArtifactsDir))

	s := Settings{
		ModelPath:         ExpandPath(v.GetString(KeyModelPath)),
		ScalerPath:        ExpandPath(v.GetString(KeyScalerPath)),
		DatabasePath:      ExpandPath(v.GetString(KeyDatabasePath)),
		ServerAddr:        v.GetString(KeyServerAddr),
		ServerTLS:         v.GetBool(KeyServerTLS),
		CertDir:           ExpandPath(v.GetString(KeyCertDir)),
		CORSOrigins:       v.GetStringSlice(KeyCORSOrigins),
		LogLevel:          strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:         strings.ToLower(v.GetString(KeyLogFormat)),
		AbnormalThreshold: v.GetFloat64(KeyAbnormalThreshold),
		UncertainMargin:   v.GetFloat64(KeyUncertainMargin),
		FeatureCount:      v.GetInt(KeyFeatureCount),
		Workers:           v.GetInt(KeyWorkers),
	}
	if s.ModelPath == "" && artifactsDir != "" {
		s.ModelPath = filepath.Join(artifactsDir, inference.ModelFileName)
	}
	if s.ScalerPath == "" && artifactsDir != "" {
		s.ScalerPath = filepath.Join(artifactsDir, inference.ScalerFileName)
	}

	if err := validate.Struct(s); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}
	// Threshold ranges are owned by model.NewClinicalThresholds.
	if _, err := s.Thresholds(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Thresholds builds the clinical thresholds from the settings.
func (s Settings) Thresholds() (model.ClinicalThresholds, error) {
	return model.NewClinicalThresholds(s.AbnormalThreshold, s.UncertainMargin)
}
