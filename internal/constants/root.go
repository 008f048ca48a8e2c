package constants

import "time"

const (
	AppName            = "rehab"
	DefaultKeyringUser = "database-connection"
	OpenAIKeyringUser  = "openai-api-key"
	JWTKeyringUser     = "jwt-secret"
	DefaultConfigPath  = "~/.config/rehab/rehab.db"
	Version            = "v0.3.0"

	// DefaultUserID is the identity used by local CLI commands when --user is not given
	DefaultUserID = "local"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "rehab-"
	BackupFileSuffix = ".db"

	// Notify constants
	NotifyMaxRetries = 3
	NotifyRetryDelay = 100 * time.Millisecond
	NotifyTimeout    = 5 * time.Second
	WebhookSecretHdr = "X-Rehab-Secret"

	// HTTP server constants
	DefaultAddr         = ":8080"
	ShutdownTimeout     = 10 * time.Second
	DefaultTokenTTL     = 30 * 24 * time.Hour
	GenerationRateLimit = 6 // generations per minute per identity
	GenerationBurst     = 3
)
