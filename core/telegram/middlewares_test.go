package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/homeworkbot/core/config"
)

func chainNames(mws []Middleware) []string {
	var names []string
	for _, mw := range mws {
		names = append(names, mw.Name)
	}
	return names
}

func TestDefaultMiddlewares(t *testing.T) {
	assert.Equal(t, []string{"recover", "logger", "metrics"}, chainNames(DefaultMiddlewares(nil, ChainOptions{})))

	cfg := &coreconfig.Config{RateLimit: coreconfig.RateLimitConfig{IntervalMS: 500, ExcludeUpdates: []string{"Callback"}}}
	assert.Equal(t, []string{"recover", "rate_limit", "logger", "metrics"}, chainNames(DefaultMiddlewares(cfg, ChainOptions{})))
}

func TestBuildPoller(t *testing.T) {
	assert.IsType(t, &tele.LongPoller{}, BuildPoller(PollerOptions{}))
	wh, ok := BuildPoller(PollerOptions{
		RunMode: "Webhook",
		Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://example.org/hook"},
	}).(*tele.Webhook)
	assert.True(t, ok)
	assert.Equal(t, "0.0.0.0:8443", wh.Listen)
}
