package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/kp-alert-service/internal/domain"
)

// Alert policies selectable via ALERT_POLICY.
const (
	PolicyCooldown = "cooldown"
	PolicyDigest   = "digest"
)

// Mailbox backends selectable via MAILBOX_BACKEND (digest policy only).
const (
	MailboxFirestore = "firestore"
	MailboxKafka     = "kafka"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	LogFile         string
	ShutdownTimeout time.Duration

	// NOAA SWPC endpoints.
	KpIndexURL    string
	KpForecastURL string
	AlertsURL     string
	FetchTimeout  time.Duration

	// Scheduling and policy.
	Schedule            string
	RunOnStart          bool
	Policy              string
	Cooldown            time.Duration
	DefaultThreshold    float64
	DispatchConcurrency int
	DispatchTimeout     time.Duration
	WriteTimeout        time.Duration
	DashboardURL        string

	// Firestore subscriber directory.
	FirestoreProjectID   string
	FirestoreCredentials string
	UsersCollection      string
	MailCollection       string

	// SMTP dispatcher.
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPass       string
	SMTPFrom       string
	SMTPRatePerSec float64

	// Digest mailbox.
	MailboxBackend string
	KafkaBrokers   []string
	KafkaMailTopic string
}

// LoadDotEnv loads .env.development and then .env into the process
// environment. Variables already set are never overridden, and missing files
// are ignored.
func LoadDotEnv() {
	for _, f := range []string{".env.development", ".env"} {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cooldown, err := parseDuration("ALERT_COOLDOWN", "1h")
	if err != nil {
		return nil, err
	}
	dispatchTimeout, err := parseDuration("DISPATCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	writeTimeout, err := parseDuration("WRITE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	threshold, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("DEFAULT_KP_THRESHOLD", "5"), 64)
	if err != nil || threshold <= 0 || threshold > domain.MaxKp {
		return nil, errors.New("invalid DEFAULT_KP_THRESHOLD: must be in (0, 9]")
	}

	concurrency, err := strconv.Atoi(sharedcfg.EnvOrDefault("DISPATCH_CONCURRENCY", "8"))
	if err != nil || concurrency < 1 {
		return nil, errors.New("invalid DISPATCH_CONCURRENCY: must be a positive integer")
	}

	smtpPort, err := strconv.Atoi(sharedcfg.EnvOrDefault("SMTP_PORT", "587"))
	if err != nil || smtpPort <= 0 || smtpPort > 65535 {
		return nil, errors.New("invalid SMTP_PORT")
	}

	rate, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("SMTP_RATE_PER_SEC", "5"), 64)
	if err != nil || rate <= 0 {
		return nil, errors.New("invalid SMTP_RATE_PER_SEC: must be positive")
	}

	smtpUser := os.Getenv("SMTP_USER")

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		LogFile:         os.Getenv("LOG_FILE"),
		ShutdownTimeout: shutdownTimeout,

		KpIndexURL:    sharedcfg.EnvOrDefault("KP_INDEX_URL", "https://services.swpc.noaa.gov/products/noaa-planetary-k-index.json"),
		KpForecastURL: sharedcfg.EnvOrDefault("KP_FORECAST_URL", "https://services.swpc.noaa.gov/products/noaa-planetary-k-index-forecast.json"),
		AlertsURL:     sharedcfg.EnvOrDefault("ALERTS_URL", "https://services.swpc.noaa.gov/products/alerts.json"),
		FetchTimeout:  fetchTimeout,

		Schedule:            sharedcfg.EnvOrDefault("ALERT_SCHEDULE", "*/15 * * * *"),
		RunOnStart:          sharedcfg.EnvOrDefault("RUN_ON_START", "true") == "true",
		Policy:              strings.ToLower(sharedcfg.EnvOrDefault("ALERT_POLICY", PolicyCooldown)),
		Cooldown:            cooldown,
		DefaultThreshold:    threshold,
		DispatchConcurrency: concurrency,
		DispatchTimeout:     dispatchTimeout,
		WriteTimeout:        writeTimeout,
		DashboardURL:        sharedcfg.EnvOrDefault("DASHBOARD_URL", "https://sdodash.webgrove.pl/"),

		FirestoreProjectID:   firstNonEmpty(os.Getenv("FIRESTORE_PROJECT_ID"), os.Getenv("GOOGLE_CLOUD_PROJECT")),
		FirestoreCredentials: os.Getenv("FIREBASE_SERVICE_ACCOUNT"),
		UsersCollection:      sharedcfg.EnvOrDefault("FIRESTORE_USERS_COLLECTION", "users"),
		MailCollection:       sharedcfg.EnvOrDefault("FIRESTORE_MAIL_COLLECTION", "mail"),

		SMTPHost:       os.Getenv("SMTP_HOST"),
		SMTPPort:       smtpPort,
		SMTPUser:       smtpUser,
		SMTPPass:       os.Getenv("SMTP_PASS"),
		SMTPFrom:       sharedcfg.EnvOrDefault("SMTP_FROM", smtpUser),
		SMTPRatePerSec: rate,

		MailboxBackend: strings.ToLower(sharedcfg.EnvOrDefault("MAILBOX_BACKEND", MailboxFirestore)),
		KafkaBrokers:   parseList(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaMailTopic: sharedcfg.EnvOrDefault("KAFKA_MAIL_TOPIC", "kp-alert-mail"),
	}

	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid ALERT_SCHEDULE %q: %w", cfg.Schedule, err)
	}
	switch cfg.Policy {
	case PolicyCooldown, PolicyDigest:
	default:
		return nil, fmt.Errorf("invalid ALERT_POLICY %q: must be %q or %q", cfg.Policy, PolicyCooldown, PolicyDigest)
	}
	switch cfg.MailboxBackend {
	case MailboxFirestore, MailboxKafka:
	default:
		return nil, fmt.Errorf("invalid MAILBOX_BACKEND %q: must be %q or %q", cfg.MailboxBackend, MailboxFirestore, MailboxKafka)
	}

	return cfg, nil
}

// ValidateWorker checks the settings a notifying process cannot run without.
// Missing credentials are fatal so a broken dispatcher never runs silently.
func (c *Config) ValidateWorker() error {
	if c.FirestoreProjectID == "" {
		return fmt.Errorf("%w: FIRESTORE_PROJECT_ID or GOOGLE_CLOUD_PROJECT is required", domain.ErrConfiguration)
	}
	switch c.Policy {
	case PolicyCooldown:
		if c.SMTPHost == "" {
			return fmt.Errorf("%w: SMTP_HOST is required for the %s policy", domain.ErrConfiguration, c.Policy)
		}
		if c.SMTPUser == "" || c.SMTPPass == "" {
			return fmt.Errorf("%w: SMTP_USER and SMTP_PASS are required for the %s policy", domain.ErrConfiguration, c.Policy)
		}
		if c.SMTPFrom == "" {
			return fmt.Errorf("%w: SMTP_FROM is required", domain.ErrConfiguration)
		}
	case PolicyDigest:
		if c.MailboxBackend == MailboxKafka && (len(c.KafkaBrokers) == 0 || c.KafkaMailTopic == "") {
			return fmt.Errorf("%w: KAFKA_BROKERS and KAFKA_MAIL_TOPIC are required for the kafka mailbox", domain.ErrConfiguration)
		}
	}
	return nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
