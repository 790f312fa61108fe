// Package config holds the process-wide flags described in the language
// spec's external interfaces. Lifecycle is the process lifetime: a Config
// is built once (or defaulted) and passed explicitly rather than read
// from a mutable global. The tolerant parser takes the Config itself;
// the evaluator and VM see only EnableDebugLogs, copied by the host into
// value.CallCtx.Debug.
package config

// SyntaxStyle records which of the two surface styles is selected. No
// parser reads it: the production parser rejects colon blocks under
// either setting, and the tolerant parser accepts both styles.
type SyntaxStyle string

const (
	StyleUniversal SyntaxStyle = "universal"
	StyleTolerable SyntaxStyle = "tolerable"
)

// Config is the runtime configuration shared across the toolchain.
type Config struct {
	SyntaxStyle           SyntaxStyle
	EnableAdvancedParsing bool
	EnableDebugLogs       bool
}

// Default returns the documented defaults: universal syntax, advanced
// (multi-strategy) tolerant parsing on, debug logging off.
func Default() *Config {
	return &Config{
		SyntaxStyle:           StyleUniversal,
		EnableAdvancedParsing: true,
		EnableDebugLogs:       false,
	}
}

// Option mutates a Config; used for readable construction at call sites,
// e.g. config.New(config.WithTolerableSyntax(), config.WithDebugLogs()).
type Option func(*Config)

func New(opts ...Option) *Config {
	c := Default()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithTolerableSyntax() Option { return func(c *Config) { c.SyntaxStyle = StyleTolerable } }
func WithAdvancedParsing(on bool) Option {
	return func(c *Config) { c.EnableAdvancedParsing = on }
}
func WithDebugLogs() Option { return func(c *Config) { c.EnableDebugLogs = true } }
