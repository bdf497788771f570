package registry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"empirepilot/internal/delivery"
	"empirepilot/internal/delivery/telegramsink"
	"empirepilot/internal/delivery/webhook"
)

type BuildOptions struct {
	Kind         string
	URL          string
	Headers      map[string]string
	BodyTemplate string
	Method       string
	HTTPClient   *http.Client
	MaxRetries   int
	BackoffBase  time.Duration
	Bot          telegramsink.Sender
	ChatID       int64
	Logger       zerolog.Logger
}

func Build(opts BuildOptions) (delivery.Sink, error) {
	switch opts.Kind {
	case "webhook", "http":
		return webhook.New(webhook.Config{
			URL:          opts.URL,
			Headers:      opts.Headers,
			BodyTemplate: opts.BodyTemplate,
			Method:       opts.Method,
			HTTPClient:   opts.HTTPClient,
			MaxRetries:   opts.MaxRetries,
			BackoffBase:  opts.BackoffBase,
		})

	case "telegram":
		return telegramsink.New(opts.Bot, opts.ChatID)

	case "log":
		return delivery.LogSink{Logger: opts.Logger}, nil

	default:
		return nil, fmt.Errorf("unsupported sink kind %q", opts.Kind)
	}
}
