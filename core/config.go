package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env          string
		Build        string
		Debug        bool
		TestMode     bool
		AppName      string
		RollbarToken string
		WorkDir      string

		Server struct {
			Host            string
			Address         string
			DebugHost       string
			ShutdownTimeout time.Duration
			DisableReqLogs  bool
		}

		// API is the external Masomo REST backend.
		API struct {
			BaseURL string
			Timeout time.Duration
		}

		Session struct {
			Ceiling            time.Duration
			RevalidateOnExpiry bool
			ClientCookie       string
			IdleTimeout        time.Duration
			Storage            string // memory | redis | database
		}

		Redis struct {
			Addr     string
			Password string
			DB       int
			Prefix   string
			TTL      time.Duration
		}

		Database struct {
			Engine     string // postgres | sqlite
			Name       string
			Host       string
			Port       int
			User       string
			Password   string
			DisableTLS bool
			Path       string // sqlite only
		}
	}
)

// Storage engines
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StorageDatabase = "database"
)

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Masomo")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("api.baseURL", "http://localhost:8000/v1")
	v.SetDefault("api.timeout", 15*time.Second)

	v.SetDefault("session.ceiling", time.Hour)
	v.SetDefault("session.revalidateOnExpiry", true)
	v.SetDefault("session.clientCookie", "masomo_client")
	v.SetDefault("session.idleTimeout", 2*time.Hour)
	v.SetDefault("session.storage", StorageMemory)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "masomo:web")
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("database.engine", "sqlite")
	v.SetDefault("database.name", "masomoweb")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.path", "masomoweb.db")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		RollbarToken: v.GetString("rollbarToken"),
		WorkDir:      wd,
	}

	conf.Server.Host = v.GetString("server.host")
	conf.Server.Address = v.GetString("server.address")
	conf.Server.DebugHost = v.GetString("server.debugHost")
	conf.Server.ShutdownTimeout = v.GetDuration("server.shutdownTimeout")
	conf.Server.DisableReqLogs = v.GetBool("server.disableReqLogs")

	conf.API.BaseURL = v.GetString("api.baseURL")
	conf.API.Timeout = v.GetDuration("api.timeout")

	conf.Session.Ceiling = v.GetDuration("session.ceiling")
	conf.Session.RevalidateOnExpiry = v.GetBool("session.revalidateOnExpiry")
	conf.Session.ClientCookie = v.GetString("session.clientCookie")
	conf.Session.IdleTimeout = v.GetDuration("session.idleTimeout")
	conf.Session.Storage = CleanString(v.GetString("session.storage"), true /* lower */)

	conf.Redis.Addr = v.GetString("redis.addr")
	conf.Redis.Password = v.GetString("redis.password")
	conf.Redis.DB = v.GetInt("redis.db")
	conf.Redis.Prefix = v.GetString("redis.prefix")
	conf.Redis.TTL = v.GetDuration("redis.ttl")

	conf.Database.Engine = CleanString(v.GetString("database.engine"), true /* lower */)
	conf.Database.Name = v.GetString("database.name")
	conf.Database.Host = v.GetString("database.host")
	conf.Database.Port = v.GetInt("database.port")
	conf.Database.User = v.GetString("database.user")
	conf.Database.Password = v.GetString("database.password")
	conf.Database.DisableTLS = v.GetBool("database.disableTLS")
	conf.Database.Path = v.GetString("database.path")

	return conf
}
