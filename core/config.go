package core

import (
	"os"
	"runtime"
	"strings"
	"time"
)

// Thread sources
const (
	SourceProc = "proc"
	SourceSim  = "sim"
)

// Config holds all configuration values
type Config struct {
	// Sampler
	SampleInterval    time.Duration
	SampleCount       int
	InitialCapacity   int
	MaxTrackedTasks   int
	EvictionThreshold int
	NameLength        int
	WordSize          int
	MonitorCore       int // -1 leaves the producer unpinned
	NumCores          int

	// Thread source
	Source    string // proc or sim
	TargetPID int    // 0 samples the agent itself

	// Journal and export (empty paths disable them)
	JournalPath          string
	JournalRetentionDays int
	JournalMinFree       uint64
	TextfilePath         string
	TextfileInterval     time.Duration
	SummaryEvery         int

	// Logging
	LogFile  string
	LogLevel string
	DevMode  bool
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		SampleInterval:    time.Second,
		SampleCount:       60,
		InitialCapacity:   32,
		MaxTrackedTasks:   256,
		EvictionThreshold: 3,
		NameLength:        24,
		WordSize:          4,
		MonitorCore:       0,
		NumCores:          runtime.NumCPU(),

		Source: SourceProc,

		JournalRetentionDays: 7,
		JournalMinFree:       64 * BytesPerMB,
		TextfileInterval:     15 * time.Second,
		SummaryEvery:         10,

		LogFile:  "sysmon.log",
		LogLevel: "info",
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// named by SYSMON_CONFIG_FILE, and the environment, in that order. The
// result is not validated; call Validate.
func LoadConfig() (*Config, error) {
	config := DefaultConfig()
	if path := GetEnvOrDefault("SYSMON_CONFIG_FILE", ""); path != "" {
		fromFile, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		config = fromFile
	}
	config.applyEnv()
	return config, nil
}

// applyEnv overrides fields with any SYSMON_* variables that are set.
func (c *Config) applyEnv() {
	c.SampleInterval = ParseDurationMsEnv("SYSMON_SAMPLE_INTERVAL_MS", c.SampleInterval)
	c.SampleCount = ParseIntEnv("SYSMON_SAMPLE_COUNT", c.SampleCount)
	c.InitialCapacity = ParseIntEnv("SYSMON_INITIAL_CAPACITY", c.InitialCapacity)
	c.MaxTrackedTasks = ParseIntEnv("SYSMON_MAX_TRACKED_TASKS", c.MaxTrackedTasks)
	c.EvictionThreshold = ParseIntEnv("SYSMON_EVICTION_THRESHOLD", c.EvictionThreshold)
	c.NameLength = ParseIntEnv("SYSMON_NAME_LENGTH", c.NameLength)
	c.WordSize = ParseIntEnv("SYSMON_WORD_SIZE", c.WordSize)
	c.MonitorCore = ParseIntEnv("SYSMON_MONITOR_CORE", c.MonitorCore)
	c.NumCores = ParseIntEnv("SYSMON_NUM_CORES", c.NumCores)

	c.Source = strings.ToLower(GetEnvOrDefault("SYSMON_SOURCE", c.Source))
	c.TargetPID = ParseIntEnv("SYSMON_TARGET_PID", c.TargetPID)

	c.JournalPath = GetEnvOrDefault("SYSMON_JOURNAL_PATH", c.JournalPath)
	c.JournalRetentionDays = ParseIntEnv("SYSMON_JOURNAL_RETENTION_DAYS", c.JournalRetentionDays)
	c.JournalMinFree = ParseBytesEnv("SYSMON_JOURNAL_MIN_FREE", c.JournalMinFree)
	c.TextfilePath = GetEnvOrDefault("SYSMON_TEXTFILE_PATH", c.TextfilePath)
	c.TextfileInterval = ParseDurationMsEnv("SYSMON_TEXTFILE_INTERVAL_MS", c.TextfileInterval)
	c.SummaryEvery = ParseIntEnv("SYSMON_SUMMARY_EVERY", c.SummaryEvery)

	c.LogFile = GetEnvOrDefault("SYSMON_LOG_FILE", c.LogFile)
	c.LogLevel = GetEnvOrDefault("SYSMON_LOG_LEVEL", c.LogLevel)
	c.DevMode = ParseBoolEnv("DEV_MODE", c.DevMode)
}

// ResolvedPID returns the pid to sample, substituting the agent's own pid for 0.
func (c *Config) ResolvedPID() int {
	if c.TargetPID == 0 {
		return os.Getpid()
	}
	return c.TargetPID
}

// Validate checks every setting and returns the first problem as a *ConfigError.
func (c *Config) Validate() error {
	switch {
	case c.SampleInterval < 10*time.Millisecond:
		return ErrInvalidValue("SYSMON_SAMPLE_INTERVAL_MS", c.SampleInterval.Milliseconds(), "must be at least 10")
	case c.SampleCount < 1:
		return ErrInvalidValue("SYSMON_SAMPLE_COUNT", c.SampleCount, "must be at least 1")
	case c.InitialCapacity < 1:
		return ErrInvalidValue("SYSMON_INITIAL_CAPACITY", c.InitialCapacity, "must be at least 1")
	case c.MaxTrackedTasks < c.InitialCapacity:
		return ErrInvalidValue("SYSMON_MAX_TRACKED_TASKS", c.MaxTrackedTasks, "must not be below SYSMON_INITIAL_CAPACITY")
	case c.EvictionThreshold < 0:
		return ErrInvalidValue("SYSMON_EVICTION_THRESHOLD", c.EvictionThreshold, "must not be negative")
	case c.NameLength < 1:
		return ErrInvalidValue("SYSMON_NAME_LENGTH", c.NameLength, "must be at least 1")
	case c.WordSize != 1 && c.WordSize != 2 && c.WordSize != 4 && c.WordSize != 8:
		return ErrInvalidValue("SYSMON_WORD_SIZE", c.WordSize, "must be 1, 2, 4 or 8")
	case c.NumCores < 1:
		return ErrInvalidValue("SYSMON_NUM_CORES", c.NumCores, "must be at least 1")
	case c.MonitorCore < -1 || c.MonitorCore >= c.NumCores:
		return ErrInvalidValue("SYSMON_MONITOR_CORE", c.MonitorCore, "must be -1 or a core below SYSMON_NUM_CORES")
	case c.Source != SourceProc && c.Source != SourceSim:
		return ErrInvalidValue("SYSMON_SOURCE", c.Source, "must be proc or sim")
	case c.TargetPID < 0:
		return ErrInvalidValue("SYSMON_TARGET_PID", c.TargetPID, "must not be negative")
	case c.JournalRetentionDays < 0:
		return ErrInvalidValue("SYSMON_JOURNAL_RETENTION_DAYS", c.JournalRetentionDays, "must not be negative")
	case c.TextfilePath != "" && c.TextfileInterval < 100*time.Millisecond:
		return ErrInvalidValue("SYSMON_TEXTFILE_INTERVAL_MS", c.TextfileInterval.Milliseconds(), "must be at least 100")
	case c.SummaryEvery < 0:
		return ErrInvalidValue("SYSMON_SUMMARY_EVERY", c.SummaryEvery, "must not be negative")
	}
	return nil
}
