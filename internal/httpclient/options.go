// Package httpclient builds the instrumented HTTP transport used for JSON-RPC.
package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Options holds configuration for the instrumented HTTP client.
type Options struct {
	meterProvider  metric.MeterProvider
	providerName   string
	roundTripper   http.RoundTripper
	requestTimeout time.Duration
	headers        map[string]string
}

// Option configures Options.
type Option func(*Options)

func newOptions(opts ...Option) *Options {
	options := &Options{requestTimeout: defaultRequestTimeout}
	for _, o := range opts {
		o(options)
	}
	return options
}

// WithMeterProvider sets the OTEL meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *Options) {
		o.meterProvider = mp
	}
}

// WithProviderName sets the provider label on metrics ("polygon-rpc").
func WithProviderName(name string) Option {
	return func(o *Options) {
		o.providerName = name
	}
}

// WithRoundTripper sets the base transport.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *Options) {
		o.roundTripper = rt
	}
}

// WithRequestTimeout sets the per-request timeout. Zero means none.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.requestTimeout = timeout
	}
}

// WithHeaders sets headers added to every request (API keys for hosted RPC).
func WithHeaders(headers map[string]string) Option {
	return func(o *Options) {
		o.headers = headers
	}
}
