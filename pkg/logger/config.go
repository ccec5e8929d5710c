package logger

import (
	"log/slog"
	"os"
	"strings"
)

type Env string

const (
	EnvDev   Env = "dev"
	EnvStage Env = "stage"
	EnvProd  Env = "prod"
)

type Backend string

const (
	BackendStd Backend = "std" // text handler, читаемый в dev
	BackendZap Backend = "zap" // JSON через slog-zap, с сэмплингом
)

type Config struct {
	// Метаданные, попадающие в каждую запись
	Service    string
	Version    string
	InstanceID string

	Level   slog.Level
	Env     Env
	Backend Backend // default: std в dev, zap в stage/prod
	Debug   bool

	// Zap sampling: первые N записей в секунду целиком, дальше каждая M-я
	SampleInitial    int
	SampleThereafter int

	AddSource bool
}

// resolve заполняет незаданные поля дефолтами.
func (c *Config) resolve() {
	if c.Env == "" {
		c.Env = DetectEnv()
	}
	if c.Service == "" {
		c.Service = "presence-service"
	}
	if c.InstanceID == "" {
		c.InstanceID = newInstanceID()
	}
	if c.Backend == "" {
		if c.Env == EnvDev {
			c.Backend = BackendStd
		} else {
			c.Backend = BackendZap
		}
	}
	if c.Debug && c.Level == 0 {
		c.Level = slog.LevelDebug
	}
	if c.SampleInitial <= 0 {
		c.SampleInitial = 100
	}
	if c.SampleThereafter <= 0 {
		c.SampleThereafter = 10
	}
}

func DetectEnv() Env {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV"))) {
	case "prod", "production":
		return EnvProd
	case "stage", "staging", "preprod", "pre-production":
		return EnvStage
	default:
		return EnvDev
	}
}
