package llm

import "net/http"

const (
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.7
)

type Option func(*Options)

type Options struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
}

func WithAPIKey(key string) Option {
	return func(o *Options) {
		o.APIKey = key
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithBaseURL points the client at a compatible endpoint, such as a proxy
// or a local server.
func WithBaseURL(url string) Option {
	return func(o *Options) {
		o.BaseURL = url
	}
}

func WithTemperature(t float64) Option {
	return func(o *Options) {
		o.Temperature = t
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = c
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// Resolve fills the zero fields of req from the options.
func (o Options) Resolve(req Request) Request {
	if req.Model == "" {
		req.Model = o.Model
	}
	if req.Temperature == 0 {
		req.Temperature = o.Temperature
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = o.MaxTokens
	}
	return req
}
