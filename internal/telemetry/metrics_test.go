package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetricsLabels(t *testing.T) {
	labels, err := ParseMetricsLabels("")
	require.NoError(t, err)
	assert.Nil(t, labels)

	labels, err = ParseMetricsLabels("service=journal-service,env=prod")
	require.NoError(t, err)
	assert.Equal(t, prometheus.Labels{"service": "journal-service", "env": "prod"}, labels)

	t.Setenv("DEPLOY_ENV", "staging")
	labels, err = ParseMetricsLabels("env=${DEPLOY_ENV}")
	require.NoError(t, err)
	assert.Equal(t, prometheus.Labels{"env": "staging"}, labels)

	_, err = ParseMetricsLabels("no-equals-sign")
	assert.Error(t, err)

	_, err = ParseMetricsLabels("9bad=key")
	assert.Error(t, err)
}
