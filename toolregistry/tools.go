package toolregistry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/itsneelabh/mindhive/bdi"
	"github.com/itsneelabh/mindhive/core"
	"github.com/itsneelabh/mindhive/resilience"
)

// WebSearchTool is the "opaque Searcher" the spec leaves underspecified: a
// thin GET against a configurable search endpoint, returning the raw body
// as a summary. It satisfies both toolregistry.Tool and cognition.Searcher,
// so AGInt's RESEARCH decision can invoke it directly. Requests are guarded
// by a circuit breaker and retried with backoff, since this is the one tool
// that crosses a real network boundary.
type WebSearchTool struct {
	Endpoint string
	Client   *http.Client

	breaker   *resilience.CircuitBreaker
	retry     *resilience.RetryConfig
	telemetry core.Telemetry
}

// NewWebSearchTool builds a WebSearchTool against endpoint (a query-string
// search API), defaulting to a 10s-timeout client and the resilience
// package's default circuit breaker and retry budget.
func NewWebSearchTool(endpoint string) *WebSearchTool {
	breaker, _ := resilience.CreateCircuitBreaker("web_search_tool", resilience.ResilienceDependencies{})
	return &WebSearchTool{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
		breaker:  breaker,
		retry:    resilience.DefaultRetryConfig(),
	}
}

// NewWebSearchToolWithResilience takes the retry budget (attempts and
// initial interval) from core.ResilienceConfig; the circuit breaker keeps
// the resilience package defaults, and cfg's circuit breaker fields are not
// used. When a telemetry provider is supplied, the breaker reports metrics
// through TelemetryMetrics, each search runs in its own span, and the HTTP
// transport is wrapped with otelhttp.
func NewWebSearchToolWithResilience(endpoint string, cfg core.ResilienceConfig, logger core.Logger, telemetry core.Telemetry) *WebSearchTool {
	t := NewWebSearchTool(endpoint)
	if breaker, err := resilience.CreateCircuitBreaker("web_search_tool", resilience.ResilienceDependencies{Logger: logger, Telemetry: telemetry}); err == nil {
		t.breaker = breaker
	}
	t.telemetry = telemetry
	if _, noop := telemetry.(*core.NoOpTelemetry); telemetry != nil && !noop {
		t.Client.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}
	t.retry = &resilience.RetryConfig{
		MaxAttempts:   cfg.RetryMaxAttempts,
		InitialDelay:  cfg.RetryInitialInterval,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}
	return t
}

func (t *WebSearchTool) Name() string        { return "WEB_SEARCH" }
func (t *WebSearchTool) Description() string { return "searches the web for a query and returns a text summary" }

func (t *WebSearchTool) Execute(ctx context.Context, params map[string]interface{}) bdi.ActionResult {
	query, _ := params["query"].(string)
	summary, err := t.Search(ctx, query)
	if err != nil {
		return bdi.ActionResult{OK: false, Err: err}
	}
	return bdi.ActionResult{OK: true, Data: summary}
}

// Search satisfies cognition.Searcher. The request is wrapped in a retry
// loop gated by a circuit breaker, so a flaky or saturated search backend
// degrades into fast rejections instead of repeatedly stalling a BDI cycle.
func (t *WebSearchTool) Search(ctx context.Context, query string) (retBody string, retErr error) {
	if t.telemetry != nil {
		var span core.Span
		ctx, span = t.telemetry.StartSpan(ctx, "toolregistry.web_search")
		span.SetAttribute("query", query)
		defer func() {
			if retErr != nil {
				span.RecordError(retErr)
			}
			span.End()
		}()
	}

	if t.Endpoint == "" {
		return "", fmt.Errorf("no search endpoint configured")
	}

	reqURL := t.Endpoint + "?q=" + url.QueryEscape(query)

	var body []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("building search request: %w", err)
		}

		resp, err := t.Client.Do(req)
		if err != nil {
			return fmt.Errorf("performing web search: %w", err)
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if err != nil {
			return fmt.Errorf("reading search response: %w", err)
		}
		return nil
	}

	var err error
	if t.breaker != nil {
		err = resilience.RetryWithCircuitBreaker(ctx, t.retry, t.breaker, call)
	} else {
		err = resilience.Retry(ctx, t.retry, call)
	}
	if err != nil {
		return "", err
	}

	return string(body), nil
}

// FileSearchTool locates files by substring match within a sandboxed root,
// for BDI plans that need to orient themselves in a workspace before acting.
type FileSearchTool struct {
	Root string
}

func NewFileSearchTool(root string) *FileSearchTool { return &FileSearchTool{Root: root} }

func (t *FileSearchTool) Name() string        { return "FILE_SEARCH" }
func (t *FileSearchTool) Description() string { return "finds files under the workspace whose name contains a substring" }

func (t *FileSearchTool) Execute(ctx context.Context, params map[string]interface{}) bdi.ActionResult {
	pattern, _ := params["pattern"].(string)
	if pattern == "" {
		return bdi.ActionResult{OK: false, Err: fmt.Errorf("pattern is required")}
	}

	var matches []string
	err := filepath.Walk(t.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if strings.Contains(filepath.Base(path), pattern) {
			rel, relErr := filepath.Rel(t.Root, path)
			if relErr == nil {
				matches = append(matches, rel)
			}
		}
		return nil
	})
	if err != nil {
		return bdi.ActionResult{OK: false, Err: err}
	}

	return bdi.ActionResult{OK: true, Data: matches}
}

// TextSummaryTool summarizes arbitrary text through the shared TextGenerator
// capability, for BDI plans that need a condensed view before planning the
// next step.
type TextSummaryTool struct {
	TextGen core.AIClient
}

func NewTextSummaryTool(textGen core.AIClient) *TextSummaryTool {
	return &TextSummaryTool{TextGen: textGen}
}

func (t *TextSummaryTool) Name() string        { return "TEXT_SUMMARY" }
func (t *TextSummaryTool) Description() string { return "summarizes the supplied text via the shared text generator" }

func (t *TextSummaryTool) Execute(ctx context.Context, params map[string]interface{}) bdi.ActionResult {
	text, _ := params["text"].(string)
	if t.TextGen == nil {
		return bdi.ActionResult{OK: false, Err: fmt.Errorf("no text generator configured")}
	}

	resp, err := t.TextGen.GenerateResponse(ctx, "Summarize the following:\n"+text, nil)
	if err != nil {
		return bdi.ActionResult{OK: false, Err: err}
	}

	return bdi.ActionResult{OK: true, Data: resp.Content}
}
