package core

import (
	"errors"
	"fmt"
)

// ConfigError represents a configuration-related error with actionable instructions.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeEnvFileMissing = "ENV_FILE_MISSING"
	ErrCodeConfigFile     = "CONFIG_FILE_INVALID"
	ErrCodeInvalidValue   = "INVALID_VALUE"
	ErrCodeSourceFailed   = "SOURCE_UNAVAILABLE"
)

// ErrEnvFileMissing returns an error for a missing .env file
func ErrEnvFileMissing(path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeEnvFileMissing,
		Message: fmt.Sprintf("Configuration file not found: %s", path),
		Action:  "Create it or unset the path to run on environment variables and defaults",
	}
}

// ErrConfigFile returns an error for a YAML config file that cannot be used
func ErrConfigFile(path string, err error) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeConfigFile,
		Message: fmt.Sprintf("Cannot load config file %s: %v", path, err),
		Action:  "Fix the file or unset SYSMON_CONFIG_FILE",
	}
}

// ErrInvalidValue returns an error for a setting outside its allowed range
func ErrInvalidValue(key string, value any, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("Invalid %s=%v: %s", key, value, reason),
		Action:  fmt.Sprintf("Set %s to a valid value", key),
	}
}

// ErrSourceUnavailable returns an error when the thread source cannot be opened
func ErrSourceUnavailable(source string, err error) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeSourceFailed,
		Message: fmt.Sprintf("Thread source %q unavailable: %v", source, err),
		Action:  "Check SYSMON_SOURCE and SYSMON_TARGET_PID, or use SYSMON_SOURCE=sim",
	}
}

// IsConfigError checks if an error is, or wraps, a ConfigError and returns it
func IsConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}
