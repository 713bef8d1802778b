package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// IngestConfig is the runtime ingestion policy. It can change without a restart.
type IngestConfig struct {
	AcceptProducerVersion       bool              `mapstructure:"acceptProducerVersion"`
	VersionLockTimeout          time.Duration     `mapstructure:"versionLockTimeout"`
	DeadLetterCompressThreshold int               `mapstructure:"deadLetterCompressThreshold"`
	DefaultEmitters             map[string]string `mapstructure:"defaultEmitters"`
}

func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		AcceptProducerVersion:       true,
		VersionLockTimeout:          5 * time.Second,
		DeadLetterCompressThreshold: 4096,
		DefaultEmitters: map[string]string{
			"pricing":         "pricing-service",
			"refund_issued":   "refund-service",
			"payment":         "payment-core",
			"supplier":        "supplier-service",
			"refund_timeline": "refund-service",
		},
	}
}

// EmitterFor returns the provenance tag used when a producer omits emitter_service.
func (c IngestConfig) EmitterFor(family string) string {
	if v := strings.TrimSpace(c.DefaultEmitters[family]); v != "" {
		return v
	}
	return "unknown"
}

type IngestConfigHolder struct {
	current atomic.Value // holds IngestConfig
}

// NewStaticIngestConfigHolder returns a holder that never reloads.
func NewStaticIngestConfigHolder(cfg IngestConfig) *IngestConfigHolder {
	holder := &IngestConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewIngestConfigHolder() (*IngestConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("ingest")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/pricingread")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PRICINGREAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultIngestConfig()
	v.SetDefault("ingest.acceptProducerVersion", defaults.AcceptProducerVersion)
	v.SetDefault("ingest.versionLockTimeout", defaults.VersionLockTimeout)
	v.SetDefault("ingest.deadLetterCompressThreshold", defaults.DeadLetterCompressThreshold)
	v.SetDefault("ingest.defaultEmitters", defaults.DefaultEmitters)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg IngestConfig
	if err := v.UnmarshalKey("ingest", &cfg); err != nil {
		return nil, err
	}
	if err := validateIngestConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticIngestConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated IngestConfig
		if err := v.UnmarshalKey("ingest", &updated); err != nil {
			log.Printf("[ingest-config] reload failed: %v", err)
			return
		}
		if err := validateIngestConfig(updated); err != nil {
			log.Printf("[ingest-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[ingest-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *IngestConfigHolder) Get() IngestConfig {
	if h == nil {
		return DefaultIngestConfig()
	}
	return h.current.Load().(IngestConfig)
}

func validateIngestConfig(cfg IngestConfig) error {
	if cfg.VersionLockTimeout <= 0 {
		return errors.New("ingest.versionLockTimeout must be positive")
	}
	if cfg.DeadLetterCompressThreshold < 0 {
		return errors.New("ingest.deadLetterCompressThreshold cannot be negative")
	}
	return nil
}
