package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Swarm struct {
		Dimensions           int     `env:"SWARM_DIMENSIONS" envDefault:"2"`
		LowerBound           float64 `env:"SWARM_LOWER_BOUND" envDefault:"-10"`
		UpperBound           float64 `env:"SWARM_UPPER_BOUND" envDefault:"10"`
		ParticleCount        int     `env:"SWARM_PARTICLE_COUNT" envDefault:"30"`
		InertiaWeight        float64 `env:"SWARM_INERTIA_WEIGHT" envDefault:"0.5"`
		CognitiveCoefficient float64 `env:"SWARM_COGNITIVE_COEFFICIENT" envDefault:"1.0"`
		SocialCoefficient    float64 `env:"SWARM_SOCIAL_COEFFICIENT" envDefault:"3.0"`
		Iterations           int     `env:"SWARM_ITERATIONS" envDefault:"500"`
		NotificationInterval int     `env:"SWARM_NOTIFICATION_INTERVAL" envDefault:"10"`
		WorkerCount          int     `env:"SWARM_WORKER_COUNT" envDefault:"1"`
		StreamBuffer         int     `env:"SWARM_STREAM_BUFFER" envDefault:"64"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}
