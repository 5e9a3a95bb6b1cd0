package config

import "time"

// Mode caps how actively the client looks for its backend
type Mode string

const (
	ModePassive Mode = "passive" // override, cache and default only, no probing
	ModeProbe   Mode = "probe"   // + HTTP health probes of candidates
	ModeSweep   Mode = "sweep"   // + nmap ping sweep of the device subnet
)

// ParseMode converts a string to Mode, defaulting to ModeProbe
func ParseMode(s string) Mode {
	switch s {
	case "passive":
		return ModePassive
	case "probe":
		return ModeProbe
	case "sweep":
		return ModeSweep
	default:
		return ModeProbe
	}
}

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	switch m {
	case ModePassive, ModeProbe, ModeSweep:
		return true
	}
	return false
}

// Level returns numeric level for comparison (higher = more capabilities)
func (m Mode) Level() int {
	switch m {
	case ModePassive:
		return 0
	case ModeProbe:
		return 1
	case ModeSweep:
		return 2
	default:
		return 1
	}
}

// Allows returns true if this mode allows the given mode's capabilities
func (m Mode) Allows(required Mode) bool {
	return m.Level() >= required.Level()
}

// Posture defines behavioral aggressiveness
type Posture string

const (
	PostureStealth    Posture = "stealth"    // Few probes, long timeouts
	PostureCautious   Posture = "cautious"   // Conservative
	PostureBalanced   Posture = "balanced"   // Default
	PostureAggressive Posture = "aggressive" // Wide scan, short timeouts
)

// ParsePosture converts a string to Posture, defaulting to PostureBalanced
func ParsePosture(s string) Posture {
	switch s {
	case "stealth":
		return PostureStealth
	case "cautious":
		return PostureCautious
	case "balanced":
		return PostureBalanced
	case "aggressive":
		return PostureAggressive
	default:
		return PostureBalanced
	}
}

// BehaviorProfile defines timing and concurrency settings
type BehaviorProfile struct {
	ProbeTimeout        time.Duration `yaml:"probe_timeout"`
	MaxConcurrentProbes int           `yaml:"max_concurrent_probes"`
	SequentialScan      int           `yaml:"sequential_scan"` // hosts tried from .2 upward
	SweepTimeout        time.Duration `yaml:"sweep_timeout"`
}

// PostureProfiles maps postures to their default behavior profiles
var PostureProfiles = map[Posture]BehaviorProfile{
	PostureStealth: {
		ProbeTimeout:        5 * time.Second,
		MaxConcurrentProbes: 1,
		SequentialScan:      0,
		SweepTimeout:        2 * time.Minute,
	},
	PostureCautious: {
		ProbeTimeout:        3 * time.Second,
		MaxConcurrentProbes: 3,
		SequentialScan:      4,
		SweepTimeout:        60 * time.Second,
	},
	PostureBalanced: {
		ProbeTimeout:        2 * time.Second,
		MaxConcurrentProbes: 6,
		SequentialScan:      8,
		SweepTimeout:        30 * time.Second,
	},
	PostureAggressive: {
		ProbeTimeout:        1 * time.Second,
		MaxConcurrentProbes: 16,
		SequentialScan:      32,
		SweepTimeout:        15 * time.Second,
	},
}

// GetProfile returns the behavior profile for a posture
func (p Posture) GetProfile() BehaviorProfile {
	if profile, ok := PostureProfiles[p]; ok {
		return profile
	}
	return PostureProfiles[PostureBalanced]
}
