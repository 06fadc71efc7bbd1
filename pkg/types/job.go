package types

// Job represents a predefined occurrence seeded into the job store at startup
type Job struct {
	Hook        string `json:"hook"`
	Schedule    string `json:"schedule"`
	Args        Args   `json:"args"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
	Delay       string `json:"delay"`
}

// JobConfig represents the host runner configuration
type JobConfig struct {
	MaxConcurrent int    `json:"max_concurrent"`
	Tick          string `json:"tick"`
	Predefined    []Job  `json:"predefined"`
}
