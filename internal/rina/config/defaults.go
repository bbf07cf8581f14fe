package config

import "time"

// GetDefaultConfig returns a Config populated entirely with defaults, the
// configuration used when no config file is found.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields of cfg with sensible defaults. Zero
// values (0, "", false) are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyIPCPDefaults(&cfg.IPCP)
	applyAddressPoolDefaults(&cfg.AddressPool)
	applyEnrolmentDefaults(&cfg.Enrolment)
	applyShimDefaults(&cfg.Shim)
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyAdminAPIDefaults(&cfg.AdminAPI)
	applySnapshotDefaults(&cfg.Snapshot)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
}

func applyIPCPDefaults(cfg *IPCPConfig) {
	if cfg.DIFName == "" {
		cfg.DIFName = "default.dif"
	}
}

func applyAddressPoolDefaults(cfg *AddressPoolConfig) {
	if cfg.End == 0 {
		cfg.Start = 1000
		cfg.End = 9999
	}
}

func applyEnrolmentDefaults(cfg *EnrolmentConfig) {
	if cfg.TimeoutSecs == 0 {
		cfg.TimeoutSecs = 5
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	if cfg.InitialBackoffMs == 0 {
		cfg.InitialBackoffMs = 500
	}
	if cfg.HeartbeatIntervalSecs == 0 {
		cfg.HeartbeatIntervalSecs = 10
	}
	if cfg.ConnectionTimeoutSecs == 0 {
		cfg.ConnectionTimeoutSecs = 30
	}
	if cfg.RibSyncIntervalSecs == 0 {
		cfg.RibSyncIntervalSecs = 30
	}
}

func applyShimDefaults(cfg *ShimConfig) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "0.0.0.0:7632"
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"}
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyAdminAPIDefaults(cfg *AdminAPIConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
}

func applySnapshotDefaults(cfg *SnapshotConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "file"
	}
	if cfg.Backend == "file" && cfg.Path == "" {
		cfg.Path = "rib.snapshot"
	}
}
