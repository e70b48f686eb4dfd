package validation

import (
	"context"
	"fmt"
	"time"

	"sysmon/core"
)

// ValidationResult represents the result of a single check.
type ValidationResult struct {
	Valid   bool
	Warning bool // passed with a caveat
	Message string
	Error   error
}

// SourceProbe reads the thread source once to prove it works.
type SourceProbe func(ctx context.Context) error

// ConfigValidator checks the loaded configuration and the resources it names.
type ConfigValidator struct {
	config       *core.Config
	envPath      string
	probe        SourceProbe
	probeTimeout time.Duration
}

// NewConfigValidator creates a validator for config.
func NewConfigValidator(config *core.Config) *ConfigValidator {
	return &ConfigValidator{
		config:       config,
		envPath:      ".env",
		probeTimeout: 5 * time.Second,
	}
}

// WithEnvPath sets a custom path for the .env file.
func (v *ConfigValidator) WithEnvPath(path string) *ConfigValidator {
	v.envPath = path
	return v
}

// WithSourceProbe sets the probe used by CheckSource.
func (v *ConfigValidator) WithSourceProbe(probe SourceProbe) *ConfigValidator {
	v.probe = probe
	return v
}

// CheckEnvFile reports whether the .env file exists. A missing file is a
// warning since every setting has a default.
func (v *ConfigValidator) CheckEnvFile() ValidationResult {
	if err := CheckFileExists(v.envPath); err != nil {
		return ValidationResult{
			Valid:   true,
			Warning: true,
			Message: "No .env file, using environment and defaults",
		}
	}
	return ValidationResult{Valid: true, Message: "Environment file found"}
}

// CheckRanges validates every configured value.
func (v *ConfigValidator) CheckRanges() ValidationResult {
	if err := v.config.Validate(); err != nil {
		return ValidationResult{Valid: false, Message: "Configuration out of range", Error: err}
	}
	c := v.config
	return ValidationResult{
		Valid: true,
		Message: fmt.Sprintf("interval %v, %d samples, %d-%d slots",
			c.SampleInterval, c.SampleCount, c.InitialCapacity, c.MaxTrackedTasks),
	}
}

// CheckSource reads the thread source once.
func (v *ConfigValidator) CheckSource() ValidationResult {
	if v.probe == nil {
		return ValidationResult{Valid: true, Warning: true, Message: "No probe configured"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), v.probeTimeout)
	defer cancel()
	if err := v.probe(ctx); err != nil {
		return ValidationResult{
			Valid:   false,
			Message: "Thread source unreadable",
			Error:   core.ErrSourceUnavailable(v.config.Source, err),
		}
	}
	return ValidationResult{Valid: true, Message: fmt.Sprintf("%s source readable", v.config.Source)}
}

// CheckJournal verifies the journal directory is writable and has at least
// JournalMinFree bytes available.
func (v *ConfigValidator) CheckJournal() ValidationResult {
	path := v.config.JournalPath
	if err := CheckDirWritable(path); err != nil {
		return ValidationResult{Valid: false, Message: "Journal directory unusable", Error: err}
	}

	info, err := GetDiskSpace(path)
	if err != nil {
		return ValidationResult{Valid: true, Warning: true, Message: fmt.Sprintf("Disk space unknown: %v", err)}
	}
	if info.Free < v.config.JournalMinFree {
		return ValidationResult{
			Valid:   false,
			Message: "Not enough free space for the journal",
			Error: &DiskSpaceError{
				Path:      info.Path,
				Required:  v.config.JournalMinFree,
				Available: info.Free,
				Message: fmt.Sprintf("insufficient disk space at %s: need %s, have %s free",
					info.Path, core.FormatBytes(v.config.JournalMinFree), info.FreeFormatted),
			},
		}
	}
	return ValidationResult{Valid: true, Message: fmt.Sprintf("%s free", info.FreeFormatted)}
}

// CheckTextfile verifies the textfile export directory is writable.
func (v *ConfigValidator) CheckTextfile() ValidationResult {
	if err := CheckDirWritable(v.config.TextfilePath); err != nil {
		return ValidationResult{Valid: false, Message: "Textfile directory unusable", Error: err}
	}
	return ValidationResult{Valid: true, Message: "Textfile directory writable"}
}
