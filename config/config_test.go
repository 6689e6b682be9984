package config

import "testing"

func TestDefaultValidates(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("Default() config failed Validate: %v", err)
	}
}

func TestValidateRejectsBadFields(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"negative worker count", Config{WorkerCount: -1, QueueSize: 1, JobTimeout: 1, LogLevel: "info"}},
		{"zero queue size", Config{QueueSize: 0, JobTimeout: 1, LogLevel: "info"}},
		{"zero job timeout", Config{QueueSize: 1, JobTimeout: 0, LogLevel: "info"}},
		{"negative max retries", Config{QueueSize: 1, JobTimeout: 1, MaxRetries: -1, LogLevel: "info"}},
		{"bad log level", Config{QueueSize: 1, JobTimeout: 1, LogLevel: "verbose"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := Validate(tc.cfg); err == nil {
				t.Error("expected Validate to reject this config")
			}
		})
	}
}
