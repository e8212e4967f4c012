package config

import (
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	AppEnv   string
	AppPort  string
	LogLevel string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string

	JWTSecret   string
	CORSOrigin  string
	InternalKey string

	// Checkout pricing
	DeliveryFee    decimal.Decimal
	TaxRatePercent decimal.Decimal

	// OTP
	OTPTTL           time.Duration
	OTPFixedCode     string
	OTPDebug         bool
	OTPRatePerMinute int

	CartTTL time.Duration

	// Mobile client
	APIBaseURL         string
	APIBaseURLEmulator string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := FromEnv()
	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	return cfg
}

// FromEnv reads the configuration without loading .env or validating it.
func FromEnv() *Config {
	cfg := &Config{
		AppEnv:     getEnv("APP_ENV", "development"),
		AppPort:    getEnv("APP_PORT", "8080"),
		LogLevel:   os.Getenv("LOG_LEVEL"),
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		CORSOrigin:  getEnv("CORS_ORIGIN", "http://localhost:3000"),
		InternalKey: os.Getenv("INTERNAL_SECRET_KEY"),

		DeliveryFee:    getDecimal("DELIVERY_FEE", decimal.NewFromInt(5)),
		TaxRatePercent: getDecimal("TAX_RATE_PERCENT", decimal.Zero),

		OTPTTL:           getDuration("OTP_TTL", 5*time.Minute),
		OTPFixedCode:     os.Getenv("OTP_FIXED_CODE"),
		OTPDebug:         getBool("OTP_DEBUG", false),
		OTPRatePerMinute: getInt("OTP_RATE_PER_MINUTE", 3),

		CartTTL: getDuration("CART_TTL", 24*time.Hour),

		APIBaseURL:         getEnv("API_BASE_URL", "http://localhost:8080"),
		APIBaseURLEmulator: os.Getenv("API_BASE_URL_EMULATOR"),
	}

	// Echoing codes is a development convenience only.
	if cfg.IsProduction() {
		cfg.OTPDebug = false
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// ClientBaseURL returns the API base URL a mobile client should use. Android
// emulators reach the host machine through 10.0.2.2 instead of localhost.
func (c *Config) ClientBaseURL(emulator bool) string {
	if !emulator || c.IsProduction() {
		return c.APIBaseURL
	}
	if c.APIBaseURLEmulator != "" {
		return c.APIBaseURLEmulator
	}

	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return c.APIBaseURL
	}
	host := u.Hostname()
	if host == "localhost" || host == "127.0.0.1" {
		if port := u.Port(); port != "" {
			u.Host = "10.0.2.2:" + port
		} else {
			u.Host = "10.0.2.2"
		}
	}
	return u.String()
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getDecimal(key string, def decimal.Decimal) decimal.Decimal {
	v, err := decimal.NewFromString(os.Getenv(key))
	if err != nil || v.IsNegative() {
		return def
	}
	return v
}
