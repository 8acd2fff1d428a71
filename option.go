package messaging

import (
	"log/slog"
	"time"

	"github.com/rbaliyan/event/v3/transport"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/skillswap/messaging/resolver"
	"github.com/skillswap/messaging/store"
	"github.com/skillswap/messaging/template"
)

const (
	// DefaultQueryLimit is the page size when the caller passes zero.
	DefaultQueryLimit = 20
	// DefaultConversationLimit is the page size for conversation queries.
	DefaultConversationLimit = 50
	// DefaultMaxQueryLimit caps any requested page size.
	DefaultMaxQueryLimit = 100
	// DefaultTimeout bounds a single store round trip.
	DefaultTimeout = 30 * time.Second
	// DefaultShutdownTimeout bounds Close waiting for in-flight creates.
	DefaultShutdownTimeout = 30 * time.Second
	// DefaultMaxConcurrentCreates bounds concurrent Create calls.
	DefaultMaxConcurrentCreates = 10
	// DefaultStatsTTL is how long a cached unread count stays fresh.
	DefaultStatsTTL = 30 * time.Second
	// DefaultServiceName names the event bus and telemetry scope.
	DefaultServiceName = "messaging"
)

// EventPublishFailureFunc is invoked when an event cannot be published.
// Publish failures never fail the originating operation.
type EventPublishFailureFunc func(eventName string, err error)

// safeEventPublishFailure invokes the failure callback, shielding the
// service from a panicking implementation.
func (o *options) safeEventPublishFailure(eventName string, err error) {
	if o.onEventPublishFail == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("event publish failure callback panicked",
				"event", eventName, "panic", r)
		}
	}()
	o.onEventPublishFail(eventName, err)
}

type options struct {
	store                store.Store
	attachments          store.AttachmentFileStore
	logger               *slog.Logger
	users                resolver.UserResolver
	swaps                resolver.SwapRequestResolver
	templates            *template.Registry
	hooks                []CreateHook
	limits               MessageLimits
	queryLimit           int
	conversationLimit    int
	maxQueryLimit        int
	timeout              time.Duration
	shutdownTimeout      time.Duration
	maxConcurrentCreates int64
	statsTTL             time.Duration
	serviceName          string
	eventTransport       transport.Transport
	redisClient          redis.UniversalClient
	onEventPublishFail   EventPublishFailureFunc
	tracingEnabled       bool
	metricsEnabled       bool
	tracerProvider       trace.TracerProvider
	meterProvider        metric.MeterProvider
}

// Option configures a Service.
type Option func(*options)

// WithStore sets the message store. Required.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithAttachmentStore sets the blob store used by the attachment uploader.
func WithAttachmentStore(s store.AttachmentFileStore) Option {
	return func(o *options) { o.attachments = s }
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithUserResolver sets the resolver used to project sender and
// recipient profiles onto query results.
func WithUserResolver(r resolver.UserResolver) Option {
	return func(o *options) { o.users = r }
}

// WithSwapRequestResolver sets the resolver used to project swap
// request summaries onto query results.
func WithSwapRequestResolver(r resolver.SwapRequestResolver) Option {
	return func(o *options) { o.swaps = r }
}

// WithTemplates sets the registry used to render system message bodies.
func WithTemplates(reg *template.Registry) Option {
	return func(o *options) {
		if reg != nil {
			o.templates = reg
		}
	}
}

// WithCreateHook registers a hook run around Create. Hooks run in
// registration order.
func WithCreateHook(h CreateHook) Option {
	return func(o *options) {
		if h != nil {
			o.hooks = append(o.hooks, h)
		}
	}
}

// WithLimits overrides the draft validation limits.
func WithLimits(l MessageLimits) Option {
	return func(o *options) { o.limits = l }
}

// WithQueryLimit sets the default page size for inbox and sent queries.
func WithQueryLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queryLimit = n
		}
	}
}

// WithConversationLimit sets the default page size for conversation
// queries.
func WithConversationLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.conversationLimit = n
		}
	}
}

// WithMaxQueryLimit caps the page size a caller may request.
func WithMaxQueryLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxQueryLimit = n
		}
	}
}

// WithTimeout bounds each store round trip.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithShutdownTimeout bounds how long Close waits for in-flight creates.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

// WithMaxConcurrentCreates bounds concurrent Create calls.
func WithMaxConcurrentCreates(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConcurrentCreates = n
		}
	}
}

// WithStatsTTL sets how long cached unread counts stay fresh.
func WithStatsTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.statsTTL = d
		}
	}
}

// WithServiceName names the event bus and telemetry scope. Useful when
// several services share a process.
func WithServiceName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.serviceName = name
		}
	}
}

// WithEventTransport sets a custom event transport. Takes precedence
// over WithRedisEvents.
func WithEventTransport(t transport.Transport) Option {
	return func(o *options) { o.eventTransport = t }
}

// WithRedisEvents publishes events through redis pub/sub. Ignored when
// a custom transport is set.
func WithRedisEvents(client redis.UniversalClient) Option {
	return func(o *options) { o.redisClient = client }
}

// WithEventPublishFailureCallback is invoked whenever an event cannot be
// published. The failure is also logged; the operation still succeeds.
func WithEventPublishFailureCallback(fn EventPublishFailureFunc) Option {
	return func(o *options) { o.onEventPublishFail = fn }
}

// WithTracing toggles OpenTelemetry spans.
func WithTracing(enabled bool) Option {
	return func(o *options) { o.tracingEnabled = enabled }
}

// WithMetrics toggles OpenTelemetry metrics.
func WithMetrics(enabled bool) Option {
	return func(o *options) { o.metricsEnabled = enabled }
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

func newOptions(opts ...Option) *options {
	o := &options{
		logger:               slog.Default(),
		templates:            template.DefaultRegistry,
		limits:               DefaultLimits,
		queryLimit:           DefaultQueryLimit,
		conversationLimit:    DefaultConversationLimit,
		maxQueryLimit:        DefaultMaxQueryLimit,
		timeout:              DefaultTimeout,
		shutdownTimeout:      DefaultShutdownTimeout,
		maxConcurrentCreates: DefaultMaxConcurrentCreates,
		statsTTL:             DefaultStatsTTL,
		serviceName:          DefaultServiceName,
		tracingEnabled:       true,
		metricsEnabled:       true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
