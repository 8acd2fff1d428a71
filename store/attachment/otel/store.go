// Package otel provides OpenTelemetry instrumentation for attachment
// stores.
package otel

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/skillswap/messaging/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/skillswap/messaging/store/attachment/otel"

// opInstruments is the latency/count/errors triple recorded for one
// attachment operation.
type opInstruments struct {
	latency metric.Float64Histogram
	count   metric.Int64Counter
	errors  metric.Int64Counter
}

func newOpInstruments(meter metric.Meter, op string) (opInstruments, error) {
	var inst opInstruments
	var err error

	inst.latency, err = meter.Float64Histogram(
		fmt.Sprintf("messaging.attachment.%s.duration", op),
		metric.WithDescription(fmt.Sprintf("Duration of attachment %s operations", op)),
		metric.WithUnit("s"),
	)
	if err != nil {
		return inst, err
	}
	inst.count, err = meter.Int64Counter(
		fmt.Sprintf("messaging.attachment.%s.count", op),
		metric.WithDescription(fmt.Sprintf("Number of attachment %s operations", op)),
	)
	if err != nil {
		return inst, err
	}
	inst.errors, err = meter.Int64Counter(
		fmt.Sprintf("messaging.attachment.%s.errors", op),
		metric.WithDescription(fmt.Sprintf("Number of attachment %s errors", op)),
	)
	return inst, err
}

// record registers one completed operation.
func (inst opInstruments) record(ctx context.Context, start time.Time, err error, attrs ...attribute.KeyValue) {
	if inst.latency == nil {
		return
	}
	set := metric.WithAttributes(attrs...)
	inst.latency.Record(ctx, time.Since(start).Seconds(), set)
	inst.count.Add(ctx, 1, set)
	if err != nil {
		inst.errors.Add(ctx, 1, set)
	}
}

// Store wraps an AttachmentFileStore with tracing and metrics.
type Store struct {
	backend store.AttachmentFileStore
	opts    *options

	tracer trace.Tracer

	upload opInstruments
	load   opInstruments
	del    opInstruments

	uploadBytes metric.Int64Counter
	loadBytes   metric.Int64Counter
}

var _ store.AttachmentFileStore = (*Store)(nil)

// New creates an instrumented wrapper around the given backend.
func New(backend store.AttachmentFileStore, opts ...Option) (*Store, error) {
	o := &options{
		tracingEnabled: true,
		metricsEnabled: true,
		serviceName:    "messaging",
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(o)
	}

	s := &Store{
		backend: backend,
		opts:    o,
	}

	if o.tracingEnabled {
		s.tracer = o.tracerProvider.Tracer(instrumentationName)
	}
	if o.metricsEnabled {
		if err := s.initMetrics(o.meterProvider); err != nil {
			return nil, fmt.Errorf("init metrics: %w", err)
		}
	}
	return s, nil
}

func (s *Store) initMetrics(mp metric.MeterProvider) error {
	meter := mp.Meter(instrumentationName)

	var err error
	if s.upload, err = newOpInstruments(meter, "upload"); err != nil {
		return err
	}
	if s.load, err = newOpInstruments(meter, "load"); err != nil {
		return err
	}
	if s.del, err = newOpInstruments(meter, "delete"); err != nil {
		return err
	}

	s.uploadBytes, err = meter.Int64Counter(
		"messaging.attachment.upload.bytes",
		metric.WithDescription("Total attachment bytes uploaded"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}
	s.loadBytes, err = meter.Int64Counter(
		"messaging.attachment.load.bytes",
		metric.WithDescription("Total attachment bytes loaded"),
		metric.WithUnit("By"),
	)
	return err
}

// startSpan starts a client span if tracing is enabled. The returned
// function records the error and ends the span.
func (s *Store) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, func(error)) {
	if s.tracer == nil {
		return ctx, nil, func(error) {}
	}
	ctx, span := s.tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	return ctx, span, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// commonAttrs returns the low cardinality attribute set shared by all
// operations. Filenames are content digests, so only the extension is
// worth recording.
func (s *Store) commonAttrs(extra ...attribute.KeyValue) []attribute.KeyValue {
	attrs := append([]attribute.KeyValue{
		attribute.String("service.name", s.opts.serviceName),
	}, extra...)
	return attrs
}

// Upload stores content through the backend, recording duration, byte
// count and errors.
func (s *Store) Upload(ctx context.Context, filename, contentType string, content io.Reader) (string, error) {
	attrs := s.commonAttrs(
		attribute.String("messaging.attachment.extension", path.Ext(filename)),
		attribute.String("messaging.attachment.content_type", contentType),
	)
	ctx, span, end := s.startSpan(ctx, "messaging.attachment.upload", attrs...)

	start := time.Now()
	counter := &countingReader{reader: content}
	uri, err := s.backend.Upload(ctx, filename, contentType, counter)

	s.upload.record(ctx, start, err, attrs...)
	if s.uploadBytes != nil && counter.bytes > 0 {
		s.uploadBytes.Add(ctx, counter.bytes, metric.WithAttributes(attrs...))
	}
	if span != nil && err == nil {
		span.SetAttributes(
			attribute.String("messaging.attachment.uri", uri),
			attribute.Int64("messaging.attachment.bytes", counter.bytes),
		)
	}
	end(err)
	return uri, err
}

// Load opens the attachment through the backend. The span stays open
// until the returned reader is closed, so it covers the whole download
// rather than just the dial.
func (s *Store) Load(ctx context.Context, uri string) (io.ReadCloser, error) {
	attrs := s.commonAttrs(attribute.String("messaging.attachment.uri", uri))
	ctx, span, end := s.startSpan(ctx, "messaging.attachment.load", attrs...)

	start := time.Now()
	reader, err := s.backend.Load(ctx, uri)
	s.load.record(ctx, start, err, attrs...)
	if err != nil {
		end(err)
		return nil, err
	}

	return &loadReader{
		reader: reader,
		store:  s,
		ctx:    ctx,
		attrs:  attrs,
		span:   span,
		end:    end,
	}, nil
}

// Delete removes the attachment through the backend.
func (s *Store) Delete(ctx context.Context, uri string) error {
	attrs := s.commonAttrs(attribute.String("messaging.attachment.uri", uri))
	ctx, _, end := s.startSpan(ctx, "messaging.attachment.delete", attrs...)

	start := time.Now()
	err := s.backend.Delete(ctx, uri)
	s.del.record(ctx, start, err, attrs...)
	end(err)
	return err
}

// countingReader counts bytes passing through an io.Reader.
type countingReader struct {
	reader io.Reader
	bytes  int64
}

func (r *countingReader) Read(p []byte) (n int, err error) {
	n, err = r.reader.Read(p)
	r.bytes += int64(n)
	return n, err
}

// loadReader tracks download bytes and finishes the load span when the
// caller closes it. A read failure mid-stream is reported on the span
// even though the open already succeeded.
type loadReader struct {
	reader io.ReadCloser
	store  *Store
	ctx    context.Context
	attrs  []attribute.KeyValue
	span   trace.Span
	end    func(error)

	bytes   int64
	readErr error
	closed  bool
}

func (r *loadReader) Read(p []byte) (n int, err error) {
	n, err = r.reader.Read(p)
	r.bytes += int64(n)
	if err != nil && err != io.EOF {
		r.readErr = err
	}
	return n, err
}

func (r *loadReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	closeErr := r.reader.Close()

	if r.store.loadBytes != nil && r.bytes > 0 {
		r.store.loadBytes.Add(r.ctx, r.bytes, metric.WithAttributes(r.attrs...))
	}
	if r.span != nil {
		r.span.SetAttributes(attribute.Int64("messaging.attachment.bytes", r.bytes))
	}
	switch {
	case r.readErr != nil:
		r.end(r.readErr)
	default:
		r.end(closeErr)
	}
	return closeErr
}
