package config

import "time"

// SchedulerConfig holds cron specs (seconds field first) for background jobs.
// An empty spec disables the job.
type SchedulerConfig struct {
	Enabled       bool
	ImportSpec    string
	HireSweepSpec string
	IntegritySpec string
	RetentionSpec string
	LockTTL       time.Duration
	JobTimeout    time.Duration
}

func loadSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:       getEnvBool("SCHEDULER_ENABLED", true),
		ImportSpec:    getEnv("SCHEDULE_IMPORT", "0 0 2 * * *"),
		HireSweepSpec: getEnv("SCHEDULE_HIRE_SWEEP", "0 30 2 * * *"),
		IntegritySpec: getEnv("SCHEDULE_INTEGRITY", "0 0 3 * * *"),
		RetentionSpec: getEnv("SCHEDULE_RETENTION", "0 0 4 * * 0"),
		LockTTL:       getEnvDuration("SCHEDULER_LOCK_TTL", 30*time.Minute),
		JobTimeout:    getEnvDuration("SCHEDULER_JOB_TIMEOUT", 20*time.Minute),
	}
}
