package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type RemoteKind string

const (
	RemoteNone      RemoteKind = "none"
	RemoteMemory    RemoteKind = "memory"
	RemoteFirestore RemoteKind = "firestore"
)

func (r RemoteKind) IsValid() bool {
	switch r {
	case RemoteNone, RemoteMemory, RemoteFirestore:
		return true
	default:
		return false
	}
}

type RuntimeConfig struct {
	DBPath string

	LogLevel  string
	LogFormat string
	LogOutput string
	LogFile   string

	FocusMinutes        int
	SnoozePollInterval  time.Duration
	SyncInterval        time.Duration
	SchedulerBuffer     int
	DesktopNotification bool

	Remote              RemoteKind
	FirebaseProjectID   string
	FirebaseCredentials string
	FirebaseAPIKey      string
	FCMTokens           []string
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		DBPath:             "zenith.db",
		LogLevel:           "info",
		LogFormat:          "text",
		LogOutput:          "file",
		LogFile:            "logs/zenith.log",
		FocusMinutes:       25,
		SnoozePollInterval: time.Minute,
		SyncInterval:       15 * time.Minute,
		SchedulerBuffer:    64,
		Remote:             RemoteNone,
	}
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not an
// error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func RuntimeConfigFromEnv(base RuntimeConfig) RuntimeConfig {
	cfg := base
	if v, ok := getEnvString("ZENITH_DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := getEnvString("ZENITH_LOG_LEVEL"); ok {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := getEnvString("ZENITH_LOG_FORMAT"); ok {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v, ok := getEnvString("ZENITH_LOG_OUTPUT"); ok {
		cfg.LogOutput = strings.ToLower(v)
	}
	if v, ok := getEnvString("ZENITH_LOG_FILE"); ok {
		cfg.LogFile = v
	}
	if v, ok := getEnvInt("ZENITH_FOCUS_MINUTES"); ok && v > 0 {
		cfg.FocusMinutes = v
	}
	if v, ok := getEnvDuration("ZENITH_SNOOZE_POLL_INTERVAL"); ok && v > 0 {
		cfg.SnoozePollInterval = v
	}
	// Zero disables periodic sync.
	if v, ok := getEnvDuration("ZENITH_SYNC_INTERVAL"); ok && v >= 0 {
		cfg.SyncInterval = v
	}
	if v, ok := getEnvInt("ZENITH_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	if v, ok := getEnvBool("ZENITH_DESKTOP_NOTIFICATIONS"); ok {
		cfg.DesktopNotification = v
	}
	if v, ok := getEnvString("ZENITH_REMOTE"); ok {
		if kind := RemoteKind(strings.ToLower(v)); kind.IsValid() {
			cfg.Remote = kind
		}
	}
	if v, ok := getEnvString("ZENITH_FIREBASE_PROJECT_ID"); ok {
		cfg.FirebaseProjectID = v
	}
	if v, ok := getEnvString("ZENITH_FIREBASE_CREDENTIALS"); ok {
		cfg.FirebaseCredentials = v
	}
	if v, ok := getEnvString("ZENITH_FIREBASE_API_KEY"); ok {
		cfg.FirebaseAPIKey = v
	}
	if v, ok := getEnvList("ZENITH_FCM_TOKENS"); ok {
		cfg.FCMTokens = v
	}
	return cfg
}

// Validate reports settings the composition root cannot start with.
func (c RuntimeConfig) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("config: db path is required")
	}
	if !c.Remote.IsValid() {
		return fmt.Errorf("config: unknown remote %q", c.Remote)
	}
	if c.Remote == RemoteFirestore && c.FirebaseProjectID == "" {
		return errors.New("config: firestore remote requires ZENITH_FIREBASE_PROJECT_ID")
	}
	return nil
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return "", false
	}
	return raw, true
}

func getEnvInt(name string) (int, bool) {
	raw, ok := getEnvString(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw, ok := getEnvString(name)
	if !ok {
		return false, false
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}

// getEnvDuration accepts Go durations ("90s", "15m") or a bare number of seconds.
func getEnvDuration(name string) (time.Duration, bool) {
	raw, ok := getEnvString(name)
	if !ok {
		return 0, false
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, true
	}
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func getEnvList(name string) ([]string, bool) {
	raw, ok := getEnvString(name)
	if !ok {
		return nil, false
	}
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, len(out) > 0
}
