package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginPolicy(t *testing.T) {
	log := quietLogger().WithField("component", "origin")

	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"exact match", []string{"http://localhost:8080"}, "http://localhost:8080", true},
		{"case insensitive", []string{"HTTP://LocalHost:8080"}, "http://localhost:8080", true},
		{"path ignored", []string{"https://chat.example/app"}, "https://chat.example", true},
		{"different port", []string{"http://localhost:8080"}, "http://localhost:9090", false},
		{"different scheme", []string{"http://chat.example"}, "https://chat.example", false},
		{"missing origin", []string{"http://localhost:8080"}, "", false},
		{"malformed origin", []string{"http://localhost:8080"}, "localhost", false},
		{"wildcard", []string{"*"}, "https://anything.example", true},
		{"invalid entry ignored", []string{"not a url", "http://ok.example"}, "http://ok.example", true},
		{"empty list", nil, "http://localhost:8080", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newOriginPolicy(tt.allowed, log)
			r := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, p.checkOrigin(r))
		})
	}
}
