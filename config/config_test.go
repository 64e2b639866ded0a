package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyPath(t *testing.T) {
	t.Setenv("PORTMIRROR_POLICY", "")
	assert.Equal(t, "policy.yml", PolicyPath("policy.yml"))

	t.Setenv("PORTMIRROR_POLICY", "/etc/portmirror/policy.yml")
	assert.Equal(t, "/etc/portmirror/policy.yml", PolicyPath("policy.yml"))
}

func TestMetricsAddr(t *testing.T) {
	assert.Equal(t, ":9100", MetricsAddr(":9100"))

	t.Setenv("PORTMIRROR_METRICS_ADDR", "")
	assert.Equal(t, "", MetricsAddr(":9100"))
}

func TestIsDebug(t *testing.T) {
	t.Setenv("ENV", "debug")
	assert.True(t, IsDebug())
	assert.False(t, IsTest())
}
