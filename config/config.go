// Package config is for app wide settings that are unmarshalled
// from Viper (see: /cmd)
package config

import (
	"log"

	"github.com/spf13/viper"

	"github.com/jjtimmons/cloneops/internal/candidate"
	"github.com/jjtimmons/cloneops/internal/transform"
)

// DigestConfig is settings for restriction digests
type DigestConfig struct {
	// the maximum number of fragments one digest may emit
	MaxFragments int `mapstructure:"max-fragments"`
}

// PCRConfig is settings for PCR
type PCRConfig struct {
	// the maximum number of expanded primer variants
	MaxVariants int `mapstructure:"max-variants"`

	// the seed for sampled primer libraries
	SampleSeed int64 `mapstructure:"sample-seed"`
}

// CandidateConfig is settings for candidate generation
type CandidateConfig struct {
	// the maximum number of windows one generation may emit
	MaxCount int `mapstructure:"max-count"`
}

// Config is the root-level settings struct and is a mix
// of settings available in settings.yaml and those
// available from the command line
type Config struct {
	// path to the project JSON file
	Project string `mapstructure:"project"`

	// path to the sqlite sidecar index
	Sidecar string `mapstructure:"sidecar"`

	// path to a tab separated enzyme db overriding the builtins
	Enzymes string `mapstructure:"enzymes"`

	// digest settings
	Digest DigestConfig

	// PCR settings
	PCR PCRConfig

	// candidate generation settings
	Candidates CandidateConfig
}

// New returns a Config populated by Viper settings (either from the
// local settings.yaml) and/or command line arguments
func New() Config {
	var c Config

	if err := viper.Unmarshal(&c); err != nil {
		log.Fatalf("unable to decode settings into struct, %v", err)
	}
	return c
}

// FragmentCap is the digest fragment limit, falling back to the
// transform default when unset
func (c Config) FragmentCap() int {
	if c.Digest.MaxFragments > 0 {
		return c.Digest.MaxFragments
	}
	return transform.DefaultMaxFragments
}

// VariantCap is the primer variant limit, falling back to the
// transform default when unset
func (c Config) VariantCap() int {
	if c.PCR.MaxVariants > 0 {
		return c.PCR.MaxVariants
	}
	return transform.DefaultMaxVariants
}

// CandidateCap is the generation window limit, falling back to the
// candidate default when unset
func (c Config) CandidateCap() int {
	if c.Candidates.MaxCount > 0 {
		return c.Candidates.MaxCount
	}
	return candidate.DefaultMaxCandidates
}
