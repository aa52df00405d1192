package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	DatabaseConfig struct {
		Engine        string // postgres | sqlite
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		RateLimit                 float64 // requests per second per client on sensitive public endpoints
		RateBurst                 int
		DisableReqLogs            bool
	}

	RedisConfig struct {
		Address  string
		Password string
		DB       int
	}

	StorageConfig struct {
		Driver   string // local | gcs
		LocalDir string
		Bucket   string
	}

	Config struct {
		Build            string
		Env              string
		Debug            bool
		TestMode         bool
		AppName          string
		ChurchName       string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		OfficeEmail      mail.Address
		Location         *time.Location
		WorkDir          string

		PasswordResetTimeoutDelta time.Duration
		AttendanceSlots           string // name@HH:MM-HH:MM,...
		PINLength                 int
		Tracing                   bool

		RollbarToken   string
		SendgridAPIKey string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Storage  StorageConfig
	}
)

// Address returns the host:port of the database server.
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("appName", "CLC")
	v.SetDefault("churchName", "Christian Life Center")
	v.SetDefault("secretKey", "h@9w1-k2)q$x=v7l&zq3m(8!p#c5^d0fs4u_re6tb+ynz_gjo")
	v.SetDefault("frontendBaseURL", "http://localhost:8000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("officeEmail", "office@localhost")
	v.SetDefault("timezone", "Asia/Manila")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("attendanceSlots", "first-service@06:00-09:30,second-service@09:30-12:00,evening-service@16:00-20:00")
	v.SetDefault("pinLength", 6)
	v.SetDefault("tracing", false)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("serverRateLimit", 0.5)
	v.SetDefault("serverRateBurst", 10)
	v.SetDefault("serverDisableReqLogs", false)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)
	v.SetDefault("dbName", "clc")
	v.SetDefault("dbUser", "clc")
	v.SetDefault("dbPassword", "clc")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "postgres")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("redisAddress", "")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)

	v.SetDefault("storageDriver", "local")
	v.SetDefault("storageLocalDir", "media")
	v.SetDefault("storageBucket", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	case "QA", "PROD":
		v.SetDefault("debug", false)
	}
	v.SetEnvPrefix(env)

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		log.Fatalf("config.time.LoadLocation(%s): %v", v.GetString("timezone"), err)
	}

	return &Config{
		Build:            v.GetString("build"),
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		ChurchName:       v.GetString("churchName"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		OfficeEmail:      mail.Address{Name: v.GetString("churchName"), Address: v.GetString("officeEmail")},
		Location:         loc,
		WorkDir:          workDir,

		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		AttendanceSlots:           v.GetString("attendanceSlots"),
		PINLength:                 v.GetInt("pinLength"),
		Tracing:                   v.GetBool("tracing"),

		RollbarToken:   v.GetString("rollbarToken"),
		SendgridAPIKey: v.GetString("sendgridApiKey"),

		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Address:                   v.GetString("serverAddress"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			RateLimit:                 v.GetFloat64("serverRateLimit"),
			RateBurst:                 v.GetInt("serverRateBurst"),
			DisableReqLogs:            v.GetBool("serverDisableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetInt("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redisAddress"),
			Password: v.GetString("redisPassword"),
			DB:       v.GetInt("redisDB"),
		},
		Storage: StorageConfig{
			Driver:   v.GetString("storageDriver"),
			LocalDir: v.GetString("storageLocalDir"),
			Bucket:   v.GetString("storageBucket"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: no env lookups, UTC clock, sqlite.
func NewTestConfig() *Config {
	return &Config{
		Build:                     "test",
		Env:                       "TEST",
		TestMode:                  true,
		AppName:                   "CLC",
		ChurchName:                "Christian Life Center",
		SecretKey:                 "secret",
		FrontendBaseURL:           "http://localhost:8000",
		DefaultFromEmail:          mail.Address{Name: "CLC", Address: "noreply@localhost"},
		OfficeEmail:               mail.Address{Name: "Christian Life Center", Address: "office@localhost"},
		Location:                  time.UTC,
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		AttendanceSlots:           "first-service@06:00-09:30,second-service@09:30-12:00,evening-service@16:00-20:00",
		PINLength:                 6,
		Server: ServerConfig{
			Host:                      "localhost",
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			RateLimit:                 1000,
			RateBurst:                 1000,
			DisableReqLogs:            true,
		},
		Database: DatabaseConfig{Engine: "sqlite", Name: ":memory:"},
		Storage:  StorageConfig{Driver: "local"},
	}
}
