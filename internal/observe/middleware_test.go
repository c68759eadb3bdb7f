package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// apiHarness serves a small mux shaped like the VidPilot API through the
// middleware, with spans and metrics captured in memory.
type apiHarness struct {
	handler http.Handler
	spans   *tracetest.InMemoryExporter
	collect func() metricdata.ResourceMetrics
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	m, reader := newTestMetrics(t)

	spans := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(spans))
	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(orig)
		_ = tp.Shutdown(context.Background())
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/generate/{kind}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("kind") == "broken" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"text":"hi"}`))
	})
	mux.HandleFunc("GET /v1/history/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	return &apiHarness{
		handler: Middleware(m)(mux),
		spans:   spans,
		collect: func() metricdata.ResourceMetrics { return collect(t, reader) },
	}
}

func (h *apiHarness) do(method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_SpanAndMetricPerRoute(t *testing.T) {
	tests := []struct {
		method, path string
		wantRoute    string
		wantStatus   int
	}{
		{"POST", "/v1/generate/caption", "POST /v1/generate/{kind}", http.StatusOK},
		{"POST", "/v1/generate/broken", "POST /v1/generate/{kind}", http.StatusInternalServerError},
		{"GET", "/v1/history/abc123", "GET /v1/history/{id}", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			h := newAPIHarness(t)
			rec := h.do(tt.method, tt.path, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			spans := h.spans.GetSpans()
			if len(spans) != 1 {
				t.Fatalf("spans = %d, want 1", len(spans))
			}
			if spans[0].Name != tt.wantRoute {
				t.Errorf("span name = %q, want %q", spans[0].Name, tt.wantRoute)
			}
			if got := spanAttr(spans[0], "http.response.status_code"); got.AsInt64() != int64(tt.wantStatus) {
				t.Errorf("span status attribute = %v", got.Emit())
			}

			met := findMetric(h.collect(), "vidpilot.http.request.duration")
			if met == nil {
				t.Fatal("duration histogram missing")
			}
			dps := met.Data.(metricdata.Histogram[float64]).DataPoints
			if len(dps) != 1 || dps[0].Count != 1 {
				t.Fatalf("data points = %+v", dps)
			}
			path, _ := dps[0].Attributes.Value("path")
			status, _ := dps[0].Attributes.Value("status")
			if path.AsString() != tt.wantRoute || status.AsInt64() != int64(tt.wantStatus) {
				t.Errorf("labels path=%q status=%d", path.AsString(), status.AsInt64())
			}
		})
	}
}

func spanAttr(s tracetest.SpanStub, key string) attribute.Value {
	for _, kv := range s.Attributes {
		if string(kv.Key) == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestMiddleware_CorrelationID(t *testing.T) {
	const incoming = "4bf92f3577b34da6a3ce929d0e0e4736"
	tests := []struct {
		name   string
		header http.Header
		want   string
	}{
		{"fresh trace", nil, ""},
		{"continued trace", http.Header{"Traceparent": {"00-" + incoming + "-00f067aa0ba902b7-01"}}, incoming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newAPIHarness(t)
			rec := h.do("POST", "/v1/generate/post", tt.header)
			cid := rec.Header().Get(CorrelationHeader)
			if len(cid) != 32 {
				t.Fatalf("%s = %q, want a 32 char trace ID", CorrelationHeader, cid)
			}
			if tt.want != "" && cid != tt.want {
				t.Errorf("%s = %q, want %q", CorrelationHeader, cid, tt.want)
			}
			if got := h.spans.GetSpans()[0].SpanContext.TraceID().String(); got != cid {
				t.Errorf("span trace ID %q does not match header %q", got, cid)
			}
		})
	}
}

func TestResponseWriter_ImplicitOK(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec}
	rw.Write([]byte("abc"))
	rw.WriteHeader(http.StatusTeapot)
	if rw.status != http.StatusOK || rw.bytes != 3 {
		t.Errorf("status=%d bytes=%d, want 200 and 3", rw.status, rw.bytes)
	}
}
