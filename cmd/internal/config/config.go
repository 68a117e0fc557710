package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys read from the environment.
const (
	KeyAPIPort  = "API_PORT"
	KeyLogLevel = "LOG_LEVEL"
	KeyGoEnv    = "GO_ENV"
	KeySeedDemo = "SEED_DEMO_DATA"

	KeyDBDriver   = "DB_DRIVER"
	KeyDBPath     = "DB_PATH"
	KeyDBHost     = "DB_HOST"
	KeyDBPort     = "DB_PORT"
	KeyDBName     = "DB_NAME"
	KeyDBUser     = "DB_USER"
	KeyDBPassword = "DB_PASSWORD"
	KeyDBSSLMode  = "DB_SSLMODE"

	KeyStorageType      = "FILE_STORAGE_TYPE"
	KeyStorageLocalPath = "FILE_STORAGE_LOCAL_PATH"
	KeyStorageRetries   = "FILE_STORAGE_RETRIES"
	KeyS3Endpoint       = "S3_ENDPOINT"
	KeyS3Region         = "S3_REGION"
	KeyS3AccessKeyID    = "S3_ACCESS_KEY_ID"
	KeyS3SecretKey      = "S3_SECRET_ACCESS_KEY"
	KeyS3Bucket         = "S3_BUCKET"

	KeyTranscriptionProvider = "AI_TRANSCRIPTION_PROVIDER"
	KeyWhisperAPIURL         = "AI_TRANSCRIPTION_WHISPER_API_URL"
	KeyTranscriptionTimeout  = "AI_TRANSCRIPTION_TIMEOUT"
	KeyOpenAIAPIKey          = "OPENAI_API_KEY"
	KeyOpenAIBaseURL         = "OPENAI_BASE_URL"
	KeyOpenAIModel           = "AI_TRANSCRIPTION_OPENAI_MODEL"

	KeyDispatchMode = "TRANSCRIPTION_DISPATCH"
	KeyWorkers      = "TRANSCRIPTION_WORKERS"
	KeyQueueSize    = "TRANSCRIPTION_QUEUE_SIZE"
	KeySQSQueueURL  = "SQS_QUEUE_URL"
	KeySQSRegion    = "SQS_REGION"
)

// Transcription dispatch modes.
const (
	DispatchMemory = "memory"
	DispatchSQS    = "sqs"
)

type Config struct {
	Port       int
	LogLevel   string
	Production bool
	SeedDemo   bool

	Database      DatabaseConfig
	Storage       StorageConfig
	Transcription TranscriptionConfig
	Dispatch      DispatchConfig
}

type DatabaseConfig struct {
	Driver   string
	Path     string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

type StorageConfig struct {
	Type      string
	LocalPath string
	Retries   int
	S3        S3Config
}

type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

type TranscriptionConfig struct {
	WhisperAPIURL string
	Timeout       time.Duration
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
}

type DispatchConfig struct {
	Mode        string
	Workers     int
	QueueSize   int
	SQSQueueURL string
	SQSRegion   string
}

// New returns a viper instance bound to the process environment with every
// default the service relies on.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyAPIPort, 7070)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeySeedDemo, false)

	v.SetDefault(KeyDBDriver, "sqlite")
	v.SetDefault(KeyDBPath, "database.db")
	v.SetDefault(KeyDBPort, 5432)
	v.SetDefault(KeyDBSSLMode, "disable")

	v.SetDefault(KeyStorageType, "local")
	v.SetDefault(KeyStorageLocalPath, "config/data/uploads")
	v.SetDefault(KeyStorageRetries, 0)
	v.SetDefault(KeyS3Region, "us-east-1")

	v.SetDefault(KeyTranscriptionProvider, "whisperApi")
	v.SetDefault(KeyWhisperAPIURL, "http://localhost:9000")
	v.SetDefault(KeyTranscriptionTimeout, 5*time.Minute)
	v.SetDefault(KeyOpenAIBaseURL, "https://api.openai.com")
	v.SetDefault(KeyOpenAIModel, "whisper-1")

	v.SetDefault(KeyDispatchMode, DispatchMemory)
	v.SetDefault(KeyWorkers, 4)
	v.SetDefault(KeyQueueSize, 64)
	v.SetDefault(KeySQSRegion, "us-east-1")
	return v
}

// Load snapshots the settings that are fixed for the lifetime of the process.
// The transcription provider key is deliberately absent, it is read per call.
func Load(v *viper.Viper) *Config {
	return &Config{
		Port:       v.GetInt(KeyAPIPort),
		LogLevel:   v.GetString(KeyLogLevel),
		Production: v.GetString(KeyGoEnv) == "production",
		SeedDemo:   v.GetBool(KeySeedDemo),
		Database: DatabaseConfig{
			Driver:   v.GetString(KeyDBDriver),
			Path:     v.GetString(KeyDBPath),
			Host:     v.GetString(KeyDBHost),
			Port:     v.GetInt(KeyDBPort),
			Name:     v.GetString(KeyDBName),
			User:     v.GetString(KeyDBUser),
			Password: v.GetString(KeyDBPassword),
			SSLMode:  v.GetString(KeyDBSSLMode),
		},
		Storage: StorageConfig{
			Type:      v.GetString(KeyStorageType),
			LocalPath: v.GetString(KeyStorageLocalPath),
			Retries:   v.GetInt(KeyStorageRetries),
			S3: S3Config{
				Endpoint:        v.GetString(KeyS3Endpoint),
				Region:          v.GetString(KeyS3Region),
				AccessKeyID:     v.GetString(KeyS3AccessKeyID),
				SecretAccessKey: v.GetString(KeyS3SecretKey),
				Bucket:          v.GetString(KeyS3Bucket),
			},
		},
		Transcription: TranscriptionConfig{
			WhisperAPIURL: v.GetString(KeyWhisperAPIURL),
			Timeout:       v.GetDuration(KeyTranscriptionTimeout),
			OpenAIAPIKey:  v.GetString(KeyOpenAIAPIKey),
			OpenAIBaseURL: v.GetString(KeyOpenAIBaseURL),
			OpenAIModel:   v.GetString(KeyOpenAIModel),
		},
		Dispatch: DispatchConfig{
			Mode:        v.GetString(KeyDispatchMode),
			Workers:     v.GetInt(KeyWorkers),
			QueueSize:   v.GetInt(KeyQueueSize),
			SQSQueueURL: v.GetString(KeySQSQueueURL),
			SQSRegion:   v.GetString(KeySQSRegion),
		},
	}
}
