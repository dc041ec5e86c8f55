package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models petiqa.yml.
type Config struct {
	Game struct {
		Name string `yaml:"name"`
	} `yaml:"game"`
	Tick struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxMinutes      int `yaml:"max_minutes"`
		EnergyGainCap   int `yaml:"energy_gain_cap"`
	} `yaml:"tick"`
	Items struct {
		Catalog    map[string]ItemSpec `yaml:"catalog"`
		UseEffects StatusEffect        `yaml:"use_effects"`
	} `yaml:"items"`
	Tasks struct {
		Daily []DailyTask `yaml:"daily"`
	} `yaml:"tasks"`
	Achievements struct {
		Catalog map[string]AchievementSpec `yaml:"catalog"`
	} `yaml:"achievements"`
}

type ItemSpec struct {
	Kind        string `yaml:"kind"`
	Description string `yaml:"description"`
}

// StatusEffect is a partial metric increment applied as a side effect.
type StatusEffect struct {
	Energy    int `yaml:"energy"`
	Mood      int `yaml:"mood"`
	Satiation int `yaml:"satiation"`
	Vitality  int `yaml:"vitality"`
}

// DailyTask describes one task seeded into each new daily cycle.
type DailyTask struct {
	ID             string `yaml:"id"`
	Description    string `yaml:"description"`
	RewardCurrency string `yaml:"reward_currency"`
	RewardAmount   int    `yaml:"reward_amount"`
}

type AchievementSpec struct {
	Description string `yaml:"description"`
}

// Load reads and validates config from the workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run pq config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Tick.IntervalMinutes <= 0 {
		return fmt.Errorf("config.tick.interval_minutes must be positive")
	}
	if c.Tick.MaxMinutes < c.Tick.IntervalMinutes {
		return fmt.Errorf("config.tick.max_minutes must be >= interval_minutes")
	}
	if c.Tick.EnergyGainCap < 0 {
		return fmt.Errorf("config.tick.energy_gain_cap must not be negative")
	}
	validKinds := map[string]bool{
		"food": true, "toy": true, "cosmetic": true,
		"insurance": true, "material": true, "misc": true,
	}
	for name, item := range c.Items.Catalog {
		if name == "" {
			return fmt.Errorf("config.items.catalog contains empty item name")
		}
		if !validKinds[item.Kind] {
			return fmt.Errorf("item %s has unknown kind %s", name, item.Kind)
		}
	}
	seen := map[string]bool{}
	for _, task := range c.Tasks.Daily {
		if task.ID == "" {
			return fmt.Errorf("config.tasks.daily contains empty task id")
		}
		if seen[task.ID] {
			return fmt.Errorf("duplicate daily task id %s", task.ID)
		}
		seen[task.ID] = true
		if task.RewardCurrency != "coin" && task.RewardCurrency != "point" {
			return fmt.Errorf("task %s has unknown reward currency %s", task.ID, task.RewardCurrency)
		}
		if task.RewardAmount < 0 {
			return fmt.Errorf("task %s has negative reward amount", task.ID)
		}
	}
	for id := range c.Achievements.Catalog {
		if id == "" {
			return fmt.Errorf("config.achievements.catalog contains empty achievement id")
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "petiqa.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}


const defaultTemplate = `game:
  name: petiqa

tick:
  interval_minutes: 5
  max_minutes: 360
  energy_gain_cap: 5

items:
  catalog:
    Apple:
      kind: food
      description: "Restores a little satiation"
    Potion:
      kind: food
      description: "A pick-me-up brew"
    Ball:
      kind: toy
      description: "Chase it around the yard"
    Sunglasses:
      kind: cosmetic
      description: "Pure style, no effect"
    Insurance Card:
      kind: insurance
      description: "Covers one clinic visit"
    Driftwood:
      kind: material
      description: "Crafting material from the beach"
  use_effects:
    energy: 5
    mood: 2

tasks:
  daily:
    - id: feed-pet
      description: "Feed your pet a meal"
      reward_currency: coin
      reward_amount: 10
    - id: play-fetch
      description: "Play a round of fetch"
      reward_currency: coin
      reward_amount: 5
    - id: daily-walk
      description: "Take a walk together"
      reward_currency: point
      reward_amount: 3
    - id: grooming
      description: "Brush and groom"
      reward_currency: coin
      reward_amount: 8

achievements:
  catalog:
    first-steps:
      description: "Create your first pet"
    full-belly:
      description: "Reach 100 satiation"
    big-spender:
      description: "Spend 100 coins in the store"
    marathon:
      description: "Complete 10 running sessions"
    collector:
      description: "Hold 10 different items at once"
`
