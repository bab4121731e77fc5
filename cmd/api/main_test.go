package main

import (
	"testing"

	"Cyclepulse/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestRun_ReturnsSetupErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			name: "invalid trusted proxy after database opened",
			cfg: config.Config{
				Database: config.DatabaseConfig{
					Host: "127.0.0.1", Port: "5432", Name: "cycles",
					Username: "u", Password: "p", Schema: "public",
				},
				TrustedProxies: []string{"not-a-cidr"},
			},
			want: "could not configure http server",
		},
		{
			name: "malformed database port",
			cfg: config.Config{
				Database: config.DatabaseConfig{Host: "127.0.0.1", Port: "port"},
			},
			want: "could not initialize database",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(tt.cfg)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
