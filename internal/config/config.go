package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	DatabaseURL    string
	CatalogFile    string
	BusinessName   string
	BusinessType   string
	AdminJWTSecret string

	// Auto-response policy
	AutoRespondEnabled   bool
	ConfidenceThreshold  float64
	MaxResponseLength    int
	BusinessHoursOnly    bool
	BusinessHoursStart   string
	BusinessHoursEnd     string
	BusinessHoursTZ      string
	ExcludedKeywords     []string
	ExcludedDomains      []string
	AutoRespondAddresses []string

	// Booking dialogue state
	BookingStateBackend string
	BookingStateTTL     time.Duration
	RedisAddr           string
	RedisPassword       string
	RedisTLS            bool

	// Inbound processing
	InboundWorkers       int
	InboundQueueSize     int
	InboundJobTimeout    time.Duration
	DedupeBackend        string
	DedupeTTL            time.Duration
	WebhookRatePerSecond float64
	WebhookBurst         int
	EmailWebhookToken    string
	BookingNotifyEmail   string

	// SMS (Twilio)
	TwilioAccountSID    string
	TwilioAuthToken     string
	TwilioWebhookSecret string
	TwilioFromNumber    string
	PublicBaseURL       string

	// Email
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string

	// AI providers
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	BedrockModelID string
	GeminiAPIKey   string
	GeminiModelID  string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeout     time.Duration

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	KnowledgeBucket     string
	KnowledgeKey        string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		CatalogFile:    getEnv("CATALOG_FILE", ""),
		BusinessName:   getEnv("BUSINESS_NAME", ""),
		BusinessType:   getEnv("BUSINESS_TYPE", ""),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		AutoRespondEnabled:   getEnvAsBool("AUTORESPOND_ENABLED", true),
		ConfidenceThreshold:  getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.7),
		MaxResponseLength:    getEnvAsInt("MAX_RESPONSE_LENGTH", 320),
		BusinessHoursOnly:    getEnvAsBool("BUSINESS_HOURS_ONLY", false),
		BusinessHoursStart:   getEnv("BUSINESS_HOURS_START", "09:00"),
		BusinessHoursEnd:     getEnv("BUSINESS_HOURS_END", "19:00"),
		BusinessHoursTZ:      getEnv("BUSINESS_HOURS_TZ", "America/Chicago"),
		ExcludedKeywords:     getEnvAsList("EXCLUDED_KEYWORDS", DefaultExcludedKeywords),
		ExcludedDomains:      getEnvAsList("EXCLUDED_DOMAINS", DefaultExcludedDomains),
		AutoRespondAddresses: getEnvAsList("AUTORESPOND_ADDRESSES", nil),

		BookingStateBackend: strings.ToLower(strings.TrimSpace(getEnv("BOOKING_STATE_BACKEND", "memory"))),
		BookingStateTTL:     getEnvAsDuration("BOOKING_STATE_TTL", 7*24*time.Hour),
		RedisAddr:           getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisTLS:            getEnvAsBool("REDIS_TLS", false),

		InboundWorkers:       getEnvAsInt("INBOUND_WORKERS", 0),
		InboundQueueSize:     getEnvAsInt("INBOUND_QUEUE_SIZE", 128),
		InboundJobTimeout:    getEnvAsDuration("INBOUND_JOB_TIMEOUT", time.Minute),
		DedupeBackend:        strings.ToLower(strings.TrimSpace(getEnv("DEDUPE_BACKEND", "auto"))),
		DedupeTTL:            getEnvAsDuration("DEDUPE_TTL", 72*time.Hour),
		WebhookRatePerSecond: getEnvAsFloat("WEBHOOK_RATE_PER_SECOND", 5),
		WebhookBurst:         getEnvAsInt("WEBHOOK_BURST", 20),
		EmailWebhookToken:    getEnv("EMAIL_WEBHOOK_TOKEN", ""),
		BookingNotifyEmail:   getEnv("BOOKING_NOTIFY_EMAIL", ""),

		TwilioAccountSID:    getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:     getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioWebhookSecret: getEnv("TWILIO_WEBHOOK_SECRET", ""),
		TwilioFromNumber:    getEnv("TWILIO_FROM_NUMBER", ""),
		PublicBaseURL:       getEnv("PUBLIC_BASE_URL", ""),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", ""),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:  getEnv("GEMINI_MODEL_ID", "gemini-1.5-flash"),
		LLMMaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 500),
		LLMTemperature: getEnvAsFloat("LLM_TEMPERATURE", 0.7),
		LLMTimeout:     getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		KnowledgeBucket:     getEnv("KNOWLEDGE_BUCKET", ""),
		KnowledgeKey:        getEnv("KNOWLEDGE_KEY", "knowledge.md"),
	}
}

// DefaultExcludedKeywords are topics a human should answer.
var DefaultExcludedKeywords = []string{
	"urgent", "emergency", "complaint", "refund", "cancel",
	"reschedule", "manager", "lawyer", "angry", "upset",
}

// DefaultExcludedDomains skip automated senders.
var DefaultExcludedDomains = []string{
	"noreply", "no-reply", "donotreply", "do-not-reply", "mailer-daemon", "postmaster",
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks. An unset
// variable yields a copy of defaultValue; "none" yields an empty list.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return append([]string(nil), defaultValue...)
	}
	if strings.EqualFold(valueStr, "none") {
		return []string{}
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
