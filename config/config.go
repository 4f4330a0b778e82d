package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL    string
	Port           string
	LogLevel       string
	JWTSecret      []byte
	AccessTokenTTL time.Duration

	// Minimum password entropy accepted at registration, in bits.
	MinPasswordEntropy float64

	// Out-of-band alert delivery. Either channel may be left unconfigured.
	FCMServerKey   string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	AlertEmailFrom string
}

func LoadConfig() (*Config, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}

	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		JWTSecret:          []byte(secret),
		AccessTokenTTL:     time.Hour,
		MinPasswordEntropy: 60,
		FCMServerKey:       os.Getenv("FCM_SERVER_KEY"),
		SMTPHost:           os.Getenv("SMTP_HOST"),
		SMTPPort:           587,
		SMTPUsername:       os.Getenv("SMTP_USERNAME"),
		SMTPPassword:       os.Getenv("SMTP_PASSWORD"),
		AlertEmailFrom:     getEnv("ALERT_EMAIL_FROM", "Hearth Alerts <alerts@hearth.app>"),
	}

	if v := os.Getenv("ACCESS_TOKEN_TTL_SECONDS"); v != "" {
		seconds, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.New("ACCESS_TOKEN_TTL_SECONDS must be an integer")
		}
		cfg.AccessTokenTTL = time.Duration(seconds) * time.Second
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.New("SMTP_PORT must be an integer")
		}
		cfg.SMTPPort = port
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
