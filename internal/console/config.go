package console

import "time"

// Config tunes reconciliation timing.
type Config struct {
	AfterCommand   time.Duration
	PollEvery      time.Duration
	BurstThreshold int
	BurstWindow    time.Duration
}

func DefaultConfig() Config {
	return Config{
		AfterCommand:   time.Second,
		PollEvery:      10 * time.Second,
		BurstThreshold: 20,
		BurstWindow:    2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AfterCommand <= 0 {
		c.AfterCommand = d.AfterCommand
	}
	if c.PollEvery <= 0 {
		c.PollEvery = d.PollEvery
	}
	if c.BurstThreshold <= 0 {
		c.BurstThreshold = d.BurstThreshold
	}
	if c.BurstWindow <= 0 {
		c.BurstWindow = d.BurstWindow
	}
	return c
}
