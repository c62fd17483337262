package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgnsrekt/navshell/internal/host"
	"github.com/dgnsrekt/navshell/internal/navigation"
	"gopkg.in/yaml.v3"
)

// VendorEntry extends the built-in vendor keyword rules.
type VendorEntry struct {
	Name     string   `yaml:"name"`
	Package  string   `yaml:"package"`
	StoreURL string   `yaml:"store_url,omitempty"`
	Keywords []string `yaml:"keywords"`
}

// TabEntry is a pooled instance opened at startup.
type TabEntry struct {
	Tag string `yaml:"tag"`
	URL string `yaml:"url"`
}

// Shell is the YAML shell file.
type Shell struct {
	Vendors   []VendorEntry     `yaml:"vendors,omitempty"`
	Canonical map[string]string `yaml:"canonical,omitempty"`
	Apps      []host.App        `yaml:"apps,omitempty"`
	Tabs      []TabEntry        `yaml:"tabs,omitempty"`
}

// LoadShell reads and validates a shell YAML file. A missing file yields an
// empty Shell, which leaves only the built-in rules in effect.
func LoadShell(path string) (*Shell, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Shell{}, nil
		}
		return nil, fmt.Errorf("shell config: %w", err)
	}
	var cfg Shell
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("shell config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Shell) validate() error {
	for i, v := range s.Vendors {
		if v.Name == "" {
			return fmt.Errorf("shell config: vendors[%d] missing name", i)
		}
		if v.Package == "" {
			return fmt.Errorf("shell config: vendors[%d] (%s) missing package", i, v.Name)
		}
		if len(v.Keywords) == 0 {
			return fmt.Errorf("shell config: vendors[%d] (%s) needs at least one keyword", i, v.Name)
		}
	}
	for i, a := range s.Apps {
		if a.Package == "" || len(a.Command) == 0 {
			return fmt.Errorf("shell config: apps[%d] needs package and command", i)
		}
	}
	seen := make(map[string]bool, len(s.Tabs))
	for i, t := range s.Tabs {
		tag := strings.TrimSpace(t.Tag)
		if tag == "" {
			return fmt.Errorf("shell config: tabs[%d] missing tag", i)
		}
		if t.URL == "" {
			return fmt.Errorf("shell config: tabs[%d] (%s) missing url", i, tag)
		}
		if seen[tag] {
			return fmt.Errorf("shell config: duplicate tab tag %q", tag)
		}
		seen[tag] = true
	}
	return nil
}

// VendorRules converts the vendor entries into rule-table rules.
func (s *Shell) VendorRules() []navigation.VendorRule {
	rules := make([]navigation.VendorRule, 0, len(s.Vendors))
	for _, v := range s.Vendors {
		rules = append(rules, navigation.KeywordRule(v.Name, v.Package, v.StoreURL, v.Keywords...))
	}
	return rules
}
