package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port         string
	DatabasePath string
	LogLevel     string

	// Auth for the admin/bot surface.
	JWTSecret    string
	UpdateAPIKey string

	// Secondary snapshot store for static-file consumers.
	SnapshotDir string
	RedisAddr   string

	// Observation sources.
	DefaultSource   string
	FivePaisaBase   string
	MCXSpotURL      string
	APINinjasKey    string
	APINinjasBase   string
	USDToINRRate    float64
	ScraperTimeoutS int

	// Automatic sync schedule (cron spec, Asia/Kolkata).
	SyncSchedule string

	// Alerting on fully-failed syncs.
	AlertRecipient       string
	EmailServiceProvider string
	SMTPServer           string
	SMTPPort             int
	SMTPUser             string
	SMTPPassword         string
	MailgunDomain        string
	MailgunPrivateAPIKey string
	SenderEmail          string
	SenderName           string
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	jwtSecret := getEnv("JWT_SECRET", "metals-admin-jwt-secret-change-me-minimum-32-bytes!")
	if jwtSecret == "metals-admin-jwt-secret-change-me-minimum-32-bytes!" {
		log.Println("WARNING: Using default insecure JWT_SECRET. Set JWT_SECRET environment variable for production.")
	}

	updateAPIKey := getEnv("UPDATE_API_KEY", "metals-api-key-2025")
	if updateAPIKey == "metals-api-key-2025" {
		log.Println("WARNING: Using default UPDATE_API_KEY. Set UPDATE_API_KEY environment variable for production.")
	}

	usdToInr, err := strconv.ParseFloat(getEnv("USD_TO_INR_RATE", "83.5"), 64)
	if err != nil || usdToInr <= 0 {
		log.Printf("WARNING: Invalid USD_TO_INR_RATE. Using default 83.5. Error: %v", err)
		usdToInr = 83.5
	}

	scraperTimeout, err := strconv.Atoi(getEnv("SCRAPER_TIMEOUT_SECONDS", "20"))
	if err != nil || scraperTimeout <= 0 {
		scraperTimeout = 20
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		log.Printf("WARNING: Invalid SMTP_PORT. Using default 587. Error: %v", err)
		smtpPort = 587
	}

	Cfg = &AppConfig{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./metals.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		JWTSecret:    jwtSecret,
		UpdateAPIKey: updateAPIKey,

		SnapshotDir: getEnv("SNAPSHOT_DIR", "./live-data"),
		RedisAddr:   getEnv("REDIS_ADDR", ""), // empty disables the redis snapshot publisher

		DefaultSource:   getEnv("DEFAULT_PRICE_SOURCE", "fivepaisa"),
		FivePaisaBase:   getEnv("FIVEPAISA_BASE_URL", "https://www.5paisa.com"),
		MCXSpotURL:      getEnv("MCX_SPOT_URL", "https://www.mcxindia.com/market-data/spot-market-price"),
		APINinjasKey:    getEnv("API_NINJAS_KEY", ""),
		APINinjasBase:   getEnv("API_NINJAS_BASE_URL", "https://api.api-ninjas.com/v1/commodityprice"),
		USDToINRRate:    usdToInr,
		ScraperTimeoutS: scraperTimeout,

		SyncSchedule: getEnv("SYNC_SCHEDULE", "0,30 9 * * *"),

		AlertRecipient:       getEnv("ALERT_RECIPIENT", ""),
		EmailServiceProvider: getEnv("EMAIL_SERVICE_PROVIDER", "mock"),
		SMTPServer:           getEnv("SMTP_SERVER", ""),
		SMTPPort:             smtpPort,
		SMTPUser:             getEnv("SMTP_USER", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		MailgunDomain:        getEnv("MAILGUN_DOMAIN", ""),
		MailgunPrivateAPIKey: getEnv("MAILGUN_PRIVATE_API_KEY", ""),
		SenderEmail:          getEnv("SENDER_EMAIL", ""),
		SenderName:           getEnv("SENDER_NAME", "Metals Price Service"),
	}

	log.Println("Application configuration loaded.")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
