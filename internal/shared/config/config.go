package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration.
type Config struct {
	Port                string
	CORSAllowOrigin     []string
	ObjectStoreType     string
	LocalStoreDir       string
	AWSRegion           string
	S3Bucket            string
	S3Prefix            string
	WorkspaceRoot       string
	DownloadConcurrency int
	LLMProvider         string
	LLMModel            string
	GeminiAPIKey        string
	FaceAPIURL          string
	FaceAPIKey          string
	SpeechAPIURL        string
	SpeechAPIKey        string
	OCRAPIURL           string
	OCRAPIKey           string
	WebhookBaseURL      string
	IdentityProfile     string
	BatchAudioSeconds   float64
	FFmpegPath          string
	FFprobePath         string
	Env                 string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))

	return Config{
		Port:                getEnv("PORT", "8080"),
		CORSAllowOrigin:     splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType:     normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:       getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:           getEnv("AWS_REGION", ""),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		S3Prefix:            getEnv("S3_PREFIX", ""),
		WorkspaceRoot:       getEnv("WORKSPACE_ROOT", ""),
		DownloadConcurrency: getEnvInt("DOWNLOAD_CONCURRENCY", 5),
		LLMProvider:         getEnv("LLM_PROVIDER", "gemini"),
		LLMModel:            getEnv("LLM_MODEL", "gemini-2.5-flash"),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		FaceAPIURL:          getEnv("FACE_API_URL", ""),
		FaceAPIKey:          getEnv("FACE_API_KEY", ""),
		SpeechAPIURL:        getEnv("SPEECH_API_URL", ""),
		SpeechAPIKey:        getEnv("SPEECH_API_KEY", ""),
		OCRAPIURL:           getEnv("OCR_API_URL", ""),
		OCRAPIKey:           getEnv("OCR_API_KEY", ""),
		WebhookBaseURL:      getEnv("WEBHOOK_BASE_URL", ""),
		IdentityProfile:     normalizeIdentityProfile(getEnv("IDENTITY_PROFILE", "face")),
		BatchAudioSeconds:   getEnvFloat("BATCH_AUDIO_SECONDS", 60),
		FFmpegPath:          getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:         getEnv("FFPROBE_PATH", "ffprobe"),
		Env:                 env,
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeIdentityProfile(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "face+name", "face_name", "dual":
		return "face+name"
	default:
		return "face"
	}
}
