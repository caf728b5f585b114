package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// All known keys, cleared per test so ambient environment never leaks in.
var configKeys = []string{
	"PORT", "ENV", "MONGO_URI", "MONGO_DATABASE",
	"FIREBASE_CREDENTIALS_PATH", "CRON_SECRET", "APP_BASE_URL",
	"EMAIL_HOST", "EMAIL_PORT", "EMAIL_HOST_USER",
	"EMAIL_HOST_PASSWORD", "EMAIL_FROM", "EMAIL_USE_TLS",
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want *Config
	}{
		{
			name: "defaults",
			env:  map[string]string{},
			want: &Config{
				Port:                    "8080",
				Env:                     "development",
				MongoDatabase:           "tracey",
				FirebaseCredentialsPath: "./firebase_credentials.json",
				AppBaseURL:              "http://localhost:3000",
				EmailPort:               587,
				EmailUseTLS:             true,
			},
		},
		{
			name: "all values set",
			env: map[string]string{
				"PORT":                      "9000",
				"ENV":                       "production",
				"MONGO_URI":                 "mongodb://db:27017",
				"MONGO_DATABASE":            "tracey_prod",
				"FIREBASE_CREDENTIALS_PATH": "/etc/tracey/firebase.json",
				"CRON_SECRET":               "s3cret",
				"APP_BASE_URL":              "https://tracey.example.com",
				"EMAIL_HOST":                "smtp.example.com",
				"EMAIL_PORT":                "465",
				"EMAIL_HOST_USER":           "notify",
				"EMAIL_HOST_PASSWORD":       "hunter2",
				"EMAIL_FROM":                "notify@example.com",
				"EMAIL_USE_TLS":             "false",
			},
			want: &Config{
				Port:                    "9000",
				Env:                     "production",
				MongoURI:                "mongodb://db:27017",
				MongoDatabase:           "tracey_prod",
				FirebaseCredentialsPath: "/etc/tracey/firebase.json",
				CronSecret:              "s3cret",
				AppBaseURL:              "https://tracey.example.com",
				EmailHost:               "smtp.example.com",
				EmailPort:               465,
				EmailUser:               "notify",
				EmailPassword:           "hunter2",
				EmailFrom:               "notify@example.com",
				EmailUseTLS:             false,
			},
		},
		{
			name: "malformed numerics fall back",
			env: map[string]string{
				"EMAIL_PORT":    "not-a-port",
				"EMAIL_USE_TLS": "maybe",
			},
			want: &Config{
				Port:                    "8080",
				Env:                     "development",
				MongoDatabase:           "tracey",
				FirebaseCredentialsPath: "./firebase_credentials.json",
				AppBaseURL:              "http://localhost:3000",
				EmailPort:               587,
				EmailUseTLS:             true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range configKeys {
				t.Setenv(key, "")
			}
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			got := Load()
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
