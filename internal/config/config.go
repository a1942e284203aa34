package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the full snapwheel configuration file.
type Config struct {
	Proxmox  ProxmoxConfig  `yaml:"proxmox"`
	Targets  TargetConfig   `yaml:"targets"`
	Policy   PolicyConfig   `yaml:"policy"`
	Rotation RotationConfig `yaml:"rotation"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ProxmoxConfig struct {
	Address            string        `yaml:"address"`
	TokenID            string        `yaml:"tokenID"`
	TokenSecret        string        `yaml:"tokenSecret"`
	InsecureSkipVerify bool          `yaml:"insecureSkipVerify"`
	TaskTimeout        time.Duration `yaml:"taskTimeout"`  // e.g. 3m
	PollInterval       time.Duration `yaml:"pollInterval"` // e.g. 2s
}

type TargetConfig struct {
	All         bool     `yaml:"all"`
	VMIDs       []int    `yaml:"vmids"`
	Tags        []string `yaml:"tags"`
	ExcludeTags []string `yaml:"excludeTags"`
}

type PolicyConfig struct {
	Keep      map[string]int `yaml:"keep"`      // bucket name -> count
	WeekStart string         `yaml:"weekStart"` // e.g. "monday"
}

type RotationConfig struct {
	Parallel int `yaml:"parallel"`
}

type ScheduleConfig struct {
	Cron string `yaml:"cron"` // daemon mode only
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "cli", "json"
}

const (
	DefaultTaskTimeout = 3 * time.Minute
	DefaultCron        = "@hourly"
)

var knownBuckets = map[string]bool{
	"hourly": true, "daily": true, "weekly": true, "monthly": true,
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.Proxmox.Address == "" {
		return fmt.Errorf("proxmox.address is required")
	}
	if c.Proxmox.TokenID == "" || c.Proxmox.TokenSecret == "" {
		return fmt.Errorf("proxmox.tokenID and proxmox.tokenSecret are required")
	}
	if c.Proxmox.TaskTimeout <= 0 {
		c.Proxmox.TaskTimeout = DefaultTaskTimeout
	}

	modes := 0
	if c.Targets.All {
		modes++
	}
	if len(c.Targets.VMIDs) > 0 {
		modes++
	}
	if len(c.Targets.Tags) > 0 {
		modes++
	}
	if modes == 0 {
		return fmt.Errorf("targets: one of all, vmids or tags must be set")
	}
	if modes > 1 {
		return fmt.Errorf("targets: all, vmids and tags are mutually exclusive")
	}

	if len(c.Policy.Keep) == 0 {
		return fmt.Errorf("policy.keep must name at least one bucket")
	}
	for bucket, count := range c.Policy.Keep {
		if !knownBuckets[bucket] {
			return fmt.Errorf("policy.keep: unknown bucket %q", bucket)
		}
		if count < 0 {
			return fmt.Errorf("policy.keep.%s: count must be >= 0", bucket)
		}
	}

	if c.Policy.WeekStart == "" {
		c.Policy.WeekStart = "monday"
	}
	if _, err := c.WeekStart(); err != nil {
		return err
	}

	if c.Rotation.Parallel < 1 {
		c.Rotation.Parallel = 1
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = DefaultCron
	}
	return nil
}

// WeekStart parses the configured week-start day.
func (c *Config) WeekStart() (time.Weekday, error) {
	day, ok := weekdays[strings.ToLower(strings.TrimSpace(c.Policy.WeekStart))]
	if !ok {
		return 0, fmt.Errorf("policy.weekStart: unknown weekday %q", c.Policy.WeekStart)
	}
	return day, nil
}
