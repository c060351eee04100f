package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RosterEntry describes one agent in a deployment roster.
type RosterEntry struct {
	Endpoint  string `yaml:"endpoint"`
	Role      string `yaml:"role"`
	Character string `yaml:"character"`
}

// Roster is a YAML deployment description mapping aliases to agents.
//
//	agents:
//	  provider:
//	    endpoint: "127.0.0.1:8101"
//	    role: provider
//	    character: "bakery clerk"
type Roster struct {
	Agents map[string]RosterEntry `yaml:"agents"`
}

// LoadRoster reads a roster file. ${VAR} references in the file are
// expanded from the environment before parsing.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	var r Roster
	if err := yaml.Unmarshal([]byte(expanded), &r); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	if len(r.Agents) == 0 {
		return nil, fmt.Errorf("roster %s defines no agents", path)
	}
	return &r, nil
}
