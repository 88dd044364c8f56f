// Package config provides hierarchical configuration loading for taskmate.
// Precedence: defaults < YAML file < environment variables.
package config

import (
	"strings"
	"time"
)

// Config holds all runtime configuration for the taskmate service.
type Config struct {
	Server   Server   `yaml:"server"`
	Gemini   Gemini   `yaml:"gemini"`
	Redmine  Redmine  `yaml:"redmine"`
	Line     Line     `yaml:"line"`
	Notify   Notify   `yaml:"notify"`
	Dispatch Dispatch `yaml:"dispatch"`
	Logging  Logging  `yaml:"logging"`
	Breaker  Breaker  `yaml:"breaker"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port string `yaml:"port"`
}

// Gemini holds the LLM capability configuration.
type Gemini struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
}

// Redmine holds the issue tracker configuration.
type Redmine struct {
	URL           string `yaml:"url"`
	PublicURL     string `yaml:"public_url"`      // user-visible ticket links; defaults to URL
	APIKey        string `yaml:"api_key"`
	ProjectID     int    `yaml:"project_id"`      // tickets are created in this project
	OpenStatusIDs string `yaml:"open_status_ids"` // pipe-delimited, e.g. "1|2|3"; optional
}

// Line holds the messaging channel configuration.
type Line struct {
	ChannelAccessToken string `yaml:"channel_access_token"`
	ChannelSecret      string `yaml:"channel_secret"`
}

// Notify holds the overdue-ticket notification job configuration.
type Notify struct {
	UserID string `yaml:"user_id"` // push recipient; job is skipped when empty
}

// Dispatch holds inbound message dispatch configuration.
type Dispatch struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	DedupTTL      time.Duration `yaml:"dedup_ttl"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// Breaker holds circuit breaker configuration for tracker calls.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Server: Server{
			Port: "8000",
		},
		Gemini: Gemini{
			BaseURL:     "https://generativelanguage.googleapis.com/v1beta",
			Model:       "gemini-2.5-flash",
			Temperature: 0.7,
		},
		Redmine: Redmine{
			ProjectID: 1,
		},
		Dispatch: Dispatch{
			MaxConcurrent: 8,
			DedupTTL:      10 * time.Minute,
		},
		Logging: Logging{
			Level:   "info",
			Service: "taskmate",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
	}
}

// OpenStatusIDSet parses the pipe-delimited open-status list into its
// individual ids, skipping empty segments. Returns nil when unset.
func (r Redmine) OpenStatusIDSet() []string {
	if r.OpenStatusIDs == "" {
		return nil
	}
	parts := strings.Split(r.OpenStatusIDs, "|")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}
