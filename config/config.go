package config

import (
	"os"
	"strconv"
)

type Config struct {
	// Server
	Port string

	// Database
	DatabaseDSN string

	// SMTP notification dispatcher
	SMTPHost      string
	SMTPPort      string
	SMTPFrom      string
	SMTPPassword  string
	MailQueueSize int
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8000"),

		// parseTime is required: event dates scan as time.Time.
		DatabaseDSN: getEnv("DATABASE_DSN", "root:password@tcp(127.0.0.1:3306)/event_manager?parseTime=true&multiStatements=true"),

		SMTPHost:      getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPFrom:      getEnv("SMTP_FROM", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		MailQueueSize: getEnvAsInt("MAIL_QUEUE_SIZE", 64),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
