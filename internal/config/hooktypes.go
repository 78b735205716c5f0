package config

// HookConfig defines a local command fired after a command result.
type HookConfig struct {
	Match       []string          `toml:"match"` // tokens matched against the command text (case-insensitive)
	Command     string            `toml:"command"`
	Args        []string          `toml:"args"`
	ArgsLine    string            `toml:"args_line"` // alternative to args, split shell-style
	Prefix      string            `toml:"prefix"`
	CooldownSec float64           `toml:"cooldown_sec"`
	QueueSize   int               `toml:"queue_size"`
	TimeoutSec  float64           `toml:"timeout_sec"`
	Env         map[string]string `toml:"env"`
	RedactPII   bool              `toml:"redact_pii"`
}
