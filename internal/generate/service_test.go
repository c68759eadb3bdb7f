package generate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/SAZZAD-404/vidpilot/internal/config"
	"github.com/SAZZAD-404/vidpilot/internal/credits"
	"github.com/SAZZAD-404/vidpilot/internal/history"
	"github.com/SAZZAD-404/vidpilot/internal/observe"
	"github.com/SAZZAD-404/vidpilot/pkg/content"
	"github.com/SAZZAD-404/vidpilot/pkg/provider"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/text"
	textmock "github.com/SAZZAD-404/vidpilot/pkg/provider/text/mock"
	"github.com/SAZZAD-404/vidpilot/pkg/provider/voice"
	voicemock "github.com/SAZZAD-404/vidpilot/pkg/provider/voice/mock"
)

// countingLedger wraps a ledger and records Consume calls.
type countingLedger struct {
	credits.Ledger
	mu       sync.Mutex
	consumed []string
}

func (l *countingLedger) Consume(ctx context.Context, user, id string) (credits.Balance, error) {
	l.mu.Lock()
	l.consumed = append(l.consumed, id)
	l.mu.Unlock()
	return l.Ledger.Consume(ctx, user, id)
}

func (l *countingLedger) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.consumed)
}

// emptyLedger reports a zero balance for everyone.
type emptyLedger struct{ countingLedger }

func (*emptyLedger) Balance(context.Context, string) (credits.Balance, error) {
	return credits.Balance{Remaining: 0, Total: 10}, nil
}

type speakerFunc func(ctx context.Context, script string, p voice.Profile) (content.Audio, error)

func (f speakerFunc) Speak(ctx context.Context, script string, p voice.Profile) (content.Audio, error) {
	return f(ctx, script, p)
}

var failingSpeaker = speakerFunc(func(context.Context, string, voice.Profile) (content.Audio, error) {
	return content.Audio{}, errors.New("no synthesizer")
})

type harness struct {
	svc     *Service
	cfg     *config.Config
	ledger  *countingLedger
	history *history.MemoryStore
	text    map[string]*textmock.Provider
	voice   map[string]*voicemock.Provider
	sleeps  []time.Duration
}

type entry struct {
	name string
	cred bool
}

// newHarness registers one mock per entry, in priority order. Entries with
// cred=false have no credential.
func newHarness(t *testing.T, textEntries, voiceEntries []entry, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		ledger:  &countingLedger{Ledger: credits.NewMemoryLedger(3)},
		history: history.NewMemoryStore(),
		text:    map[string]*textmock.Provider{},
		voice:   map[string]*voicemock.Provider{},
	}
	reg := config.NewRegistry()
	cfg := &config.Config{}
	h.cfg = cfg
	for i, e := range textEntries {
		m := &textmock.Provider{}
		h.text[e.name] = m
		reg.RegisterText(e.name, func(context.Context, config.ProviderEntry, string) (text.Provider, error) { return m, nil })
		pe := config.ProviderEntry{Name: e.name, Priority: i + 1}
		if e.cred {
			pe.APIKey = "key"
		}
		cfg.Providers.Text = append(cfg.Providers.Text, pe)
	}
	for i, e := range voiceEntries {
		m := &voicemock.Provider{}
		h.voice[e.name] = m
		reg.RegisterVoice(e.name, func(context.Context, config.ProviderEntry, string) (voice.Provider, error) { return m, nil })
		pe := config.ProviderEntry{Name: e.name, Priority: i + 1}
		if e.cred {
			pe.APIKey = "key"
		}
		cfg.Providers.Voice = append(cfg.Providers.Voice, pe)
	}
	cfg.WithDefaults()

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	base := []Option{
		WithEnv(config.MapEnv(nil)),
		WithHistory(h.history),
		WithMetrics(metrics),
		WithSpeaker(failingSpeaker),
		WithSleep(func(_ context.Context, d time.Duration) error {
			mu.Lock()
			h.sleeps = append(h.sleeps, d)
			mu.Unlock()
			return nil
		}),
	}
	h.svc = New(reg, func() *config.Config { return cfg }, h.ledger, append(base, opts...)...)
	return h
}

func chat(s string) textmock.Step {
	return textmock.Step{Response: provider.ChatCompletion{Content: s}}
}

func statusErr(code int) *provider.StatusError {
	return &provider.StatusError{Provider: "test", StatusCode: code}
}

var caption = content.Request{Kind: content.KindCaption, Topic: "sunset hikes", IncludeHashtags: true}

// TestText_NoCredentialsFallsBackLocally checks that a chain without any
// credential still yields a non-empty local result and debits one credit.
func TestText_NoCredentialsFallsBackLocally(t *testing.T) {
	h := newHarness(t, []entry{{"openai", false}, {"groq", false}}, nil)

	res, err := h.svc.Text(context.Background(), "u1", caption)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if res.Provider != content.LocalProvider {
		t.Errorf("provider = %q, want %q", res.Provider, content.LocalProvider)
	}
	if strings.TrimSpace(res.PrimaryText) == "" {
		t.Error("local fallback returned empty text")
	}
	if h.text["openai"].CallCount()+h.text["groq"].CallCount() != 0 {
		t.Error("providers without credentials must not be called")
	}
	if h.ledger.calls() != 1 {
		t.Errorf("consume calls = %d, want 1", h.ledger.calls())
	}
}

// TestText_PriorityOrder checks that providers run in ascending priority and
// that nothing runs after the first success.
func TestText_PriorityOrder(t *testing.T) {
	h := newHarness(t, []entry{{"openai", true}, {"groq", true}, {"gemini", true}}, nil)
	h.text["openai"].Err = statusErr(500)
	h.text["groq"].Script = []textmock.Step{chat(`{"text":"Golden hour on the ridge","hashtags":["hiking","#sunset"]}`)}

	res, err := h.svc.Text(context.Background(), "u1", caption)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if res.Provider != "groq" {
		t.Errorf("provider = %q, want groq", res.Provider)
	}
	if res.PrimaryText != "Golden hour on the ridge" {
		t.Errorf("text = %q", res.PrimaryText)
	}
	if got := h.text["openai"].CallCount(); got != 1 {
		t.Errorf("openai calls = %d, want 1 (no retry on 500)", got)
	}
	if got := h.text["gemini"].CallCount(); got != 0 {
		t.Errorf("gemini calls = %d, want 0 after groq succeeded", got)
	}
	if res.ID == "" || res.Kind != content.KindCaption || res.Topic != "sunset hikes" {
		t.Errorf("result metadata = %+v", res)
	}
	if res.Metrics.EngagementScore <= 0 {
		t.Errorf("engagement score = %d", res.Metrics.EngagementScore)
	}
}

// TestText_RateLimitRetriesBounded checks that a provider answering 429 is
// called at most three times before the chain moves on.
func TestText_RateLimitRetriesBounded(t *testing.T) {
	h := newHarness(t, []entry{{"openai", true}, {"groq", true}}, nil)
	h.text["openai"].Err = statusErr(429)
	h.text["groq"].Response = provider.StructuredText{Text: "TITLE: x\nCAPTION: Trail mix and views\nHASHTAGS: #trail #views"}

	res, err := h.svc.Text(context.Background(), "u1", caption)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got := h.text["openai"].CallCount(); got != 3 {
		t.Errorf("openai calls = %d, want 3", got)
	}
	if len(h.sleeps) != 2 {
		t.Errorf("sleeps = %v, want 2 backoffs", h.sleeps)
	}
	if res.Provider != "groq" || res.PrimaryText != "Trail mix and views" {
		t.Errorf("result = %q from %q", res.PrimaryText, res.Provider)
	}
}

// TestText_EmptyNormalizedResultCountsAsFailure checks that an answer with no
// usable text moves the chain on.
func TestText_EmptyNormalizedResultCountsAsFailure(t *testing.T) {
	h := newHarness(t, []entry{{"openai", true}, {"groq", true}}, nil)
	h.text["openai"].Script = []textmock.Step{chat(`{"text":"","hashtags":["a"]}`)}
	h.text["groq"].Script = []textmock.Step{chat(`{"text":"Second time lucky"}`)}

	res, err := h.svc.Text(context.Background(), "u1", caption)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if res.Provider != "groq" {
		t.Errorf("provider = %q, want groq", res.Provider)
	}
	if h.text["openai"].CallCount() != 1 {
		t.Errorf("empty result must not be retried")
	}
}

// TestText_AllFailFallsBackLocally checks that exhausting the chain still
// produces a result.
func TestText_AllFailFallsBackLocally(t *testing.T) {
	h := newHarness(t, []entry{{"openai", true}, {"groq", true}}, nil)
	h.text["openai"].Err = errors.New("dial tcp: connection refused")
	h.text["groq"].Err = provider.ErrEmptyResponse

	req := content.Request{Kind: content.KindStory, Topic: "a lighthouse keeper", Genre: content.GenreMystery}
	res, err := h.svc.Text(context.Background(), "u1", req)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if !res.IsLocal() || res.Title == "" || res.PrimaryText == "" {
		t.Errorf("story fallback = %+v", res)
	}
}

// TestText_PromptFitsProviderLimit checks that each provider receives a
// prompt truncated to its own input limit.
func TestText_PromptFitsProviderLimit(t *testing.T) {
	h := newHarness(t, []entry{{"huggingface", true}}, nil)
	m := h.text["huggingface"]
	m.MaxInputChars = 400
	m.Script = []textmock.Step{chat(`{"text":"ok"}`)}

	req := caption
	req.Topic = strings.Repeat("very long topic ", 100)
	if _, err := h.svc.Text(context.Background(), "u1", req); err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got := m.Calls[0].Prompt.Len(); got > 400 {
		t.Errorf("prompt length = %d, want <= 400", got)
	}
}

// TestText_NoCreditsNeverInvokesChain checks that a user with zero credits
// gets an upgrade signal and no provider is called.
func TestText_NoCreditsNeverInvokesChain(t *testing.T) {
	h := newHarness(t, []entry{{"openai", true}}, nil)
	empty := &emptyLedger{countingLedger{Ledger: credits.NewMemoryLedger(1)}}
	h.svc.ledger = empty

	_, err := h.svc.Text(context.Background(), "u1", caption)
	if !errors.Is(err, credits.ErrInsufficient) || !IsUpgradeRequired(err) {
		t.Fatalf("err = %v, want ErrInsufficient", err)
	}
	if h.text["openai"].CallCount() != 0 {
		t.Error("provider called despite zero credits")
	}
	if empty.calls() != 0 {
		t.Error("credit consumed despite refusal")
	}
}

func TestText_InvalidRequest(t *testing.T) {
	h := newHarness(t, []entry{{"openai", true}}, nil)

	_, err := h.svc.Text(context.Background(), "u1", content.Request{Kind: content.KindPost, Topic: "  "})
	if !errors.Is(err, content.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
	if h.ledger.calls() != 0 || h.text["openai"].CallCount() != 0 {
		t.Error("invalid request must not reach providers or the ledger")
	}
}

// TestText_CanceledContext checks that cancellation aborts without a credit
// being consumed or a fallback being produced.
func TestText_CanceledContext(t *testing.T) {
	h := newHarness(t, []entry{{"openai", true}}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.svc.Text(ctx, "u1", caption)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if h.ledger.calls() != 0 {
		t.Error("credit consumed for a canceled generation")
	}
}

// TestText_GenerationTimeoutFallsBackLocally checks that providers which
// never answer use up the generation timeout and the request still ends with
// a local result and one debited credit.
func TestText_GenerationTimeoutFallsBackLocally(t *testing.T) {
	h := newHarness(t, []entry{{"openai", true}, {"groq", true}, {"gemini", true}}, nil)
	h.cfg.Generation.Timeout = 100 * time.Millisecond
	h.cfg.Generation.ProviderTimeout = 60 * time.Millisecond
	for _, m := range h.text {
		m.Block = true
	}

	res, err := h.svc.Text(context.Background(), "u1", caption)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if !res.IsLocal() || strings.TrimSpace(res.PrimaryText) == "" {
		t.Errorf("result = %q via %q, want local text", res.PrimaryText, res.Provider)
	}
	if got := h.text["gemini"].CallCount(); got != 0 {
		t.Errorf("gemini called %d times after the generation timeout", got)
	}
	if h.ledger.calls() != 1 {
		t.Errorf("consume calls = %d, want 1", h.ledger.calls())
	}
	if _, err := h.history.Get(context.Background(), res.ID); err != nil {
		t.Errorf("fallback result not saved: %v", err)
	}
}

// TestText_ProviderTimeoutMovesOn checks that a provider hanging past its own
// timeout is abandoned for the next one.
func TestText_ProviderTimeoutMovesOn(t *testing.T) {
	h := newHarness(t, []entry{{"openai", true}, {"groq", true}}, nil)
	h.cfg.Generation.ProviderTimeout = 30 * time.Millisecond
	h.text["openai"].Block = true
	h.text["groq"].Response = provider.ChatCompletion{Content: `{"text":"Fresh caption"}`}

	res, err := h.svc.Text(context.Background(), "u1", caption)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if res.Provider != "groq" {
		t.Errorf("provider = %q, want groq", res.Provider)
	}
	if h.text["openai"].CallCount() != 1 {
		t.Errorf("openai calls = %d, want 1", h.text["openai"].CallCount())
	}
}

// TestText_CallerDeadlineAborts checks that the caller's own deadline is an
// abort, not a reason to generate locally.
func TestText_CallerDeadlineAborts(t *testing.T) {
	h := newHarness(t, []entry{{"openai", true}}, nil)
	h.text["openai"].Block = true
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := h.svc.Text(ctx, "u1", caption)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
	if h.ledger.calls() != 0 {
		t.Error("credit consumed for an abandoned generation")
	}
}

// TestText_SavesHistoryAndDebits checks the bookkeeping after a success.
func TestText_SavesHistoryAndDebits(t *testing.T) {
	ids := []string{"gen-1", "gen-2"}
	var n int
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := newHarness(t, []entry{{"openai", true}}, nil,
		WithIDs(func() string { n++; return ids[n-1] }),
		WithClock(func() time.Time { return clock }),
	)
	h.text["openai"].Response = provider.ChatCompletion{Content: `{"text":"Saved caption"}`}

	for range 2 {
		if _, err := h.svc.Text(context.Background(), "u1", caption); err != nil {
			t.Fatalf("Text: %v", err)
		}
	}
	recs, err := h.history.List(context.Background(), "u1", history.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("history = %d records, want 2", len(recs))
	}
	rec, err := h.history.Get(context.Background(), "gen-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.UserID != "u1" || rec.PrimaryText != "Saved caption" || !rec.CreatedAt.Equal(clock) {
		t.Errorf("record = %+v", rec)
	}
	bal, _ := h.svc.Balance(context.Background(), "u1")
	if bal.Remaining != 1 {
		t.Errorf("remaining = %d, want 1", bal.Remaining)
	}
}

// TestText_BrokenRegistryFallsBackLocally checks that a config naming an
// unregistered provider degrades to the local generator.
func TestText_BrokenRegistryFallsBackLocally(t *testing.T) {
	cfg := &config.Config{Providers: config.ProvidersConfig{
		Text: []config.ProviderEntry{{Name: "unknown", APIKey: "k"}},
	}}
	svc := New(config.NewRegistry(), func() *config.Config { return cfg }, credits.NewMemoryLedger(1),
		WithEnv(config.MapEnv(nil)), WithSpeaker(failingSpeaker))

	res, err := svc.Text(context.Background(), "u1", caption)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if !res.IsLocal() {
		t.Errorf("provider = %q, want local fallback", res.Provider)
	}
}

// TestUnregisteredEntryLeavesOtherChain checks that a name without a factory
// in one chain does not disable the other chain.
func TestUnregisteredEntryLeavesOtherChain(t *testing.T) {
	h := newHarness(t, []entry{{"openai", true}}, []entry{{"murf", true}})
	h.cfg.Providers.Text = append(h.cfg.Providers.Text, config.ProviderEntry{Name: "opneai", Priority: 0, APIKey: "k"})
	h.cfg.Providers.Voice = append(h.cfg.Providers.Voice, config.ProviderEntry{Name: "elevnlabs", Priority: 0, APIKey: "k"})
	h.text["openai"].Response = provider.ChatCompletion{Content: `{"text":"Still remote"}`}
	h.voice["murf"].Audio = wav()

	res, err := h.svc.Text(context.Background(), "u1", caption)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if res.Provider != "openai" {
		t.Errorf("text provider = %q, want openai", res.Provider)
	}
	vres, err := h.svc.Voice(context.Background(), "u1", voiceReq)
	if err != nil {
		t.Fatalf("Voice: %v", err)
	}
	if vres.Provider != "murf" || vres.State != content.VoiceSucceeded {
		t.Errorf("voice = %s via %q, want succeeded via murf", vres.State, vres.Provider)
	}
}
