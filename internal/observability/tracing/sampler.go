package tracing

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// URLPathKey carries the request path at span start so samplers can see it.
const URLPathKey = attribute.Key("url.path")

type routeSampler struct {
	prefixes []string
	fallback sdktrace.Sampler
}

// NewRouteSampler records every span whose url.path starts with one of the
// prefixes and defers to fallback for the rest. Payment and webhook traffic
// stays fully traced while the catalog is sampled.
func NewRouteSampler(prefixes []string, fallback sdktrace.Sampler) sdktrace.Sampler {
	cleaned := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if fallback == nil {
		fallback = sdktrace.AlwaysSample()
	}
	return routeSampler{prefixes: cleaned, fallback: fallback}
}

func (s routeSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	for _, attr := range p.Attributes {
		if attr.Key != URLPathKey {
			continue
		}
		path := attr.Value.AsString()
		for _, prefix := range s.prefixes {
			if strings.HasPrefix(path, prefix) {
				return sdktrace.SamplingResult{
					Decision:   sdktrace.RecordAndSample,
					Tracestate: trace.SpanContextFromContext(p.ParentContext).TraceState(),
				}
			}
		}
	}
	return s.fallback.ShouldSample(p)
}

func (s routeSampler) Description() string {
	return "RouteSampler{" + strings.Join(s.prefixes, ",") + "," + s.fallback.Description() + "}"
}
