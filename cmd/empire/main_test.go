package main

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"empirepilot/internal/config"
	"empirepilot/internal/delivery"
	"empirepilot/internal/delivery/webhook"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLogLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, parseLogLevel("warning"))
	assert.Equal(t, zerolog.InfoLevel, parseLogLevel("verbose"))
}

func TestSanitizeTelegramErr(t *testing.T) {
	token := "123456:ABCdef"
	msg := sanitizeTelegramErr(errors.New("Post https://api.telegram.org/bot123456:ABCdef/getMe failed"), token)
	assert.NotContains(t, msg, "ABCdef")
	assert.Contains(t, msg, "<redacted-token>")
}

func TestBuildSinks(t *testing.T) {
	sinks, err := buildSinks(&config.Config{}, nil)
	require.NoError(t, err)
	require.Len(t, sinks, 1)
	assert.IsType(t, delivery.LogSink{}, sinks[0])

	sinks, err = buildSinks(&config.Config{Webhook: config.WebhookConfig{URL: "https://hooks.example.com"}}, nil)
	require.NoError(t, err)
	require.Len(t, sinks, 1)
	assert.IsType(t, &webhook.Client{}, sinks[0])
}

func TestServeRejectsBadSinksBeforeListening(t *testing.T) {
	mr := miniredis.RunT(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	cfg := &config.Config{
		AppMode: config.ModeAll,
		HTTP:    config.HTTPConfig{ListenAddr: addr, HealthPath: "/healthz", MetricsPath: "/metrics"},
		DB:      config.DBConfig{Driver: config.DriverMemory},
		Redis: config.RedisConfig{
			Addr:           mr.Addr(),
			DeliveryStream: "empire:deliveries",
			DeliveryGroup:  "workers",
			QueueBlock:     10 * time.Millisecond,
			DraftTTL:       time.Hour,
			DedupeTTL:      time.Hour,
		},
		Worker:  config.WorkerConfig{Concurrency: 1, ConsumerName: "test"},
		Webhook: config.WebhookConfig{URL: "https://hooks.example.com", BodyTemplate: "{{"},
	}

	err = serve(context.Background(), cfg)
	require.ErrorContains(t, err, "build webhook sink")

	// The HTTP server never bound the address.
	l, err = net.Listen("tcp", addr)
	require.NoError(t, err)
	require.NoError(t, l.Close())
}

func TestNewsEnhanceCommand(t *testing.T) {
	cmd := newsCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"enhance", "Steel", "beams", "installed"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "template: structural")
	assert.Contains(t, out.String(), "#StructuralSteel")
}
