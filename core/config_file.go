package core

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config in YAML. Pointer fields distinguish an absent key
// from a zero value, so only keys present in the file replace defaults.
type fileConfig struct {
	Sampler struct {
		Interval          string `yaml:"interval"`
		SampleCount       *int   `yaml:"sample_count"`
		InitialCapacity   *int   `yaml:"initial_capacity"`
		MaxTrackedTasks   *int   `yaml:"max_tracked_tasks"`
		EvictionThreshold *int   `yaml:"eviction_threshold"`
		NameLength        *int   `yaml:"name_length"`
		WordSize          *int   `yaml:"word_size"`
		MonitorCore       *int   `yaml:"monitor_core"`
		NumCores          *int   `yaml:"num_cores"`
	} `yaml:"sampler"`

	Source struct {
		Kind      string `yaml:"kind"`
		TargetPID *int   `yaml:"target_pid"`
	} `yaml:"source"`

	Journal struct {
		Path          string `yaml:"path"`
		RetentionDays *int   `yaml:"retention_days"`
		MinFree       string `yaml:"min_free"`
	} `yaml:"journal"`

	Export struct {
		TextfilePath     string `yaml:"textfile_path"`
		TextfileInterval string `yaml:"textfile_interval"`
		SummaryEvery     *int   `yaml:"summary_every"`
	} `yaml:"export"`

	Logging struct {
		File  string `yaml:"file"`
		Level string `yaml:"level"`
		Dev   *bool  `yaml:"dev"`
	} `yaml:"logging"`
}

// LoadConfigFile reads a YAML config file on top of DefaultConfig.
//
// Example:
//
//	sampler:
//	  interval: 500ms
//	  sample_count: 120
//	source:
//	  kind: sim
//	journal:
//	  path: /var/lib/sysmon/journal.db
//	  min_free: 128MB
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrConfigFile(path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, ErrConfigFile(path, err)
	}

	config := DefaultConfig()
	if err := fc.apply(config); err != nil {
		return nil, ErrConfigFile(path, err)
	}
	return config, nil
}

func (fc *fileConfig) apply(c *Config) error {
	var err error
	if c.SampleInterval, err = parseDuration("sampler.interval", fc.Sampler.Interval, c.SampleInterval); err != nil {
		return err
	}
	setInt(&c.SampleCount, fc.Sampler.SampleCount)
	setInt(&c.InitialCapacity, fc.Sampler.InitialCapacity)
	setInt(&c.MaxTrackedTasks, fc.Sampler.MaxTrackedTasks)
	setInt(&c.EvictionThreshold, fc.Sampler.EvictionThreshold)
	setInt(&c.NameLength, fc.Sampler.NameLength)
	setInt(&c.WordSize, fc.Sampler.WordSize)
	setInt(&c.MonitorCore, fc.Sampler.MonitorCore)
	setInt(&c.NumCores, fc.Sampler.NumCores)

	setString(&c.Source, fc.Source.Kind)
	setInt(&c.TargetPID, fc.Source.TargetPID)

	setString(&c.JournalPath, fc.Journal.Path)
	setInt(&c.JournalRetentionDays, fc.Journal.RetentionDays)
	if fc.Journal.MinFree != "" {
		n, err := ParseBytes(fc.Journal.MinFree)
		if err != nil {
			return fmt.Errorf("journal.min_free: %w", err)
		}
		c.JournalMinFree = n
	}

	setString(&c.TextfilePath, fc.Export.TextfilePath)
	if c.TextfileInterval, err = parseDuration("export.textfile_interval", fc.Export.TextfileInterval, c.TextfileInterval); err != nil {
		return err
	}
	setInt(&c.SummaryEvery, fc.Export.SummaryEvery)

	setString(&c.LogFile, fc.Logging.File)
	setString(&c.LogLevel, fc.Logging.Level)
	if fc.Logging.Dev != nil {
		c.DevMode = *fc.Logging.Dev
	}
	return nil
}

func parseDuration(key, value string, current time.Duration) (time.Duration, error) {
	if value == "" {
		return current, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return current, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
