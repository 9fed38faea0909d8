package constants

// Default server configuration values
const (
	DefaultServerPort            = 8084
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	ServerErrorChannelSize       = 1
)

// Default timeout values for outbound network calls
const (
	DefaultProviderTimeoutSec   = 10
	DefaultGenerationTimeoutSec = 30
)

// Identity resolution defaults
const (
	DefaultCountryCode = "55"
	MinPhoneDigits     = 10
	MaxPhoneDigits     = 13
	// Local numbers (area code + subscriber) that still need the country prefix
	MaxLocalPhoneDigits = 11
)

// AI orchestration defaults
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
	MaxListingResults  = 5
)

// Realtime hub defaults
const (
	ClientEventBufferSize = 32
	SSEKeepAliveSec       = 25
)

// Retention defaults
const (
	DefaultRetentionDays = 90
)

// Global setting keys resolved through the settings store
const (
	SettingOpenAIAPIKey    = "openai_api_key"
	SettingGroqAPIKey      = "groq_api_key"
	SettingGeminiAPIKey    = "gemini_api_key"
	SettingCallbackBaseURL = "callback_base_url"
)

// Encryption parameters for at-rest credential storage
const (
	EncryptionSalt       = "omnichat-credentials-v1"
	EncryptionIterations = 100000
	EncryptionKeySize    = 32
	EncryptionNonceSize  = 12
)
