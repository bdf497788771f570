package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"empirepilot/internal/delivery"
	"empirepilot/internal/delivery/webhook"
)

func TestBuildKinds(t *testing.T) {
	s, err := Build(BuildOptions{Kind: "webhook", URL: "http://example.invalid/hook"})
	require.NoError(t, err)
	assert.IsType(t, &webhook.Client{}, s)

	s, err = Build(BuildOptions{Kind: "log"})
	require.NoError(t, err)
	assert.IsType(t, delivery.LogSink{}, s)

	_, err = Build(BuildOptions{Kind: "telegram"})
	assert.Error(t, err)

	_, err = Build(BuildOptions{Kind: "carrier-pigeon"})
	assert.Error(t, err)
}
