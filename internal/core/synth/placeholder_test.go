package synth

import (
	"testing"

	"github.com/melih/lighthouse-deploy/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	subs := Substitutions{ContainerIP: "10.0.0.5"}

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"proxy pass", "proxy_pass http://{CONTAINER_IP}:8080", "proxy_pass http://10.0.0.5:8080"},
		{"no placeholder", "80", "80"},
		{"repeated", "{CONTAINER_IP} {CONTAINER_IP}", "10.0.0.5 10.0.0.5"},
		{"escaped braces", "{{CONTAINER_IP}}", "{CONTAINER_IP}"},
		{"regex quantifier", `~ ^/v[0-9]{2}/`, `~ ^/v[0-9]{2}/`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.value, subs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Unresolved(t *testing.T) {
	tests := []struct {
		name  string
		value string
		subs  Substitutions
	}{
		{"unknown name", "http://{CONTAINER_HOST}", Substitutions{ContainerIP: "10.0.0.5"}},
		{"missing address", "http://{CONTAINER_IP}", Substitutions{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.value, tt.subs)
			assert.ErrorIs(t, err, domain.ErrUnresolvedPlaceholder)
		})
	}
}
