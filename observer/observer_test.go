package observer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nevindra/codeloop"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// mockProvider for observer tests.
type mockProvider struct {
	name     string
	chatResp codeloop.ChatResponse
	chatErr  error
}

func (m *mockProvider) Name() string { return m.name }
func (m *mockProvider) Chat(_ context.Context, _ codeloop.ChatRequest) (codeloop.ChatResponse, error) {
	return m.chatResp, m.chatErr
}

// mockExecutor for observer tests.
type mockExecutor struct {
	result codeloop.ExecResult
	calls  int
}

func (m *mockExecutor) Execute(_ context.Context, _ string, _ codeloop.Language) codeloop.ExecResult {
	m.calls++
	return m.result
}

// testInstruments creates Instruments on the global OTEL providers, which
// are no-ops unless Init was called.
func testInstruments(t *testing.T) *Instruments {
	t.Helper()
	inst, err := newInstruments(nil)
	if err != nil {
		t.Fatalf("newInstruments: %v", err)
	}
	return inst
}

// recordingInstruments swaps the tracer for one backed by a span recorder.
func recordingInstruments(t *testing.T) (*Instruments, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	inst := testInstruments(t)
	inst.Tracer = tp.Tracer("test")
	return inst, rec
}

func attrMap(kvs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}
	return m
}

// --- ObservedProvider ---

func TestObservedProviderName(t *testing.T) {
	op := WrapProvider(&mockProvider{name: "ollama"}, "codellama", testInstruments(t))
	if got := op.Name(); got != "ollama" {
		t.Errorf("Name() = %q, want %q", got, "ollama")
	}
}

func TestObservedProviderChat(t *testing.T) {
	want := codeloop.ChatResponse{
		Content: "print(1)",
		Usage:   codeloop.Usage{InputTokens: 10, OutputTokens: 5},
	}
	inst, rec := recordingInstruments(t)
	op := WrapProvider(&mockProvider{name: "openai", chatResp: want}, "gpt-4o-mini", inst)

	got, err := op.Chat(context.Background(), codeloop.ChatRequest{})
	if err != nil {
		t.Fatalf("Chat returned unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("Chat = %+v, want %+v", got, want)
	}

	spans := rec.Ended()
	if len(spans) != 1 || spans[0].Name() != "llm.chat" {
		t.Fatalf("unexpected spans: %v", spans)
	}
	attrs := attrMap(spans[0].Attributes())
	if attrs[AttrLLMModel].AsString() != "gpt-4o-mini" || attrs[AttrTokensInput].AsInt64() != 10 {
		t.Errorf("unexpected span attributes: %v", spans[0].Attributes())
	}
}

func TestObservedProviderChatError(t *testing.T) {
	wantErr := errors.New("provider unavailable")
	inst, rec := recordingInstruments(t)
	op := WrapProvider(&mockProvider{name: "p", chatErr: wantErr}, "m", inst)

	_, err := op.Chat(context.Background(), codeloop.ChatRequest{})
	if !errors.Is(err, wantErr) {
		t.Errorf("Chat error = %v, want %v", err, wantErr)
	}
	if spans := rec.Ended(); spans[0].Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", spans[0].Status())
	}
}

// --- ObservedExecutor ---

func TestObservedExecutorSuccess(t *testing.T) {
	inner := &mockExecutor{result: codeloop.Ok("55\n")}
	inst, rec := recordingInstruments(t)
	oe := WrapExecutor(inner, inst)

	res := oe.Execute(context.Background(), "print(55)", codeloop.LangPython)
	if !res.OK || res.Output != "55\n" || inner.calls != 1 {
		t.Fatalf("unexpected result %+v after %d calls", res, inner.calls)
	}

	spans := rec.Ended()
	if len(spans) != 1 || spans[0].Name() != "code.execute" {
		t.Fatalf("unexpected spans: %v", spans)
	}
	attrs := attrMap(spans[0].Attributes())
	if attrs[AttrCodeLanguage].AsString() != "python" || attrs[AttrCodeStatus].AsString() != "ok" {
		t.Errorf("unexpected span attributes: %v", spans[0].Attributes())
	}
}

func TestObservedExecutorFailure(t *testing.T) {
	inner := &mockExecutor{result: codeloop.Fail(codeloop.KindTimeout, "execution exceeded 10s")}
	inst, rec := recordingInstruments(t)

	res := WrapExecutor(inner, inst).Execute(context.Background(), "while True: pass", codeloop.LangPython)
	if res.Kind != codeloop.KindTimeout {
		t.Fatalf("result not passed through: %+v", res)
	}
	span := rec.Ended()[0]
	if span.Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", span.Status())
	}
	if attrMap(span.Attributes())[AttrCodeErrorKind].AsString() != "timeout" {
		t.Errorf("missing error kind: %v", span.Attributes())
	}
}

// --- Tracer ---

func TestTracerWithLoop(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer tp.Shutdown(context.Background())
	tracer := &otelTracer{inner: tp.Tracer("test")}

	gen := codeloop.NewLLMGenerator(&mockProvider{name: "p", chatResp: codeloop.ChatResponse{Content: "print(1)"}})
	exec := &mockExecutor{result: codeloop.Ok("1\n")}
	out := codeloop.NewLoop(exec, gen, codeloop.WithLoopTracer(tracer)).Execute(context.Background(), "python task")
	if out.Status != codeloop.OutcomeSuccess {
		t.Fatalf("got status %s: %v", out.Status, out.Err)
	}

	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range rec.Ended() {
		byName[s.Name()] = s
	}
	run, ok := byName["loop.run"]
	if !ok {
		t.Fatalf("no loop.run span among %v", rec.Ended())
	}
	attrs := attrMap(run.Attributes())
	if attrs["loop.status"].AsString() != "success" || attrs["loop.attempts"].AsInt64() != 1 {
		t.Errorf("unexpected run attributes: %v", run.Attributes())
	}
	attempt, ok := byName["loop.attempt"]
	if !ok {
		t.Fatal("no loop.attempt span")
	}
	if attempt.Parent().SpanID() != run.SpanContext().SpanID() {
		t.Error("attempt span is not a child of the run span")
	}
}

func TestToOTELAttr(t *testing.T) {
	tests := []struct {
		in   codeloop.SpanAttr
		want attribute.KeyValue
	}{
		{codeloop.StringAttr("s", "v"), attribute.String("s", "v")},
		{codeloop.IntAttr("i", 3), attribute.Int("i", 3)},
		{codeloop.BoolAttr("b", true), attribute.Bool("b", true)},
		{codeloop.DurationAttr("d", 1500*time.Millisecond), attribute.Int64("d", 1500)},
		{codeloop.SpanAttr{Key: "f", Value: 1.5}, attribute.Float64("f", 1.5)},
		{codeloop.SpanAttr{Key: "d", Value: 2 * time.Second}, attribute.Int64("d", 2000)},
		{codeloop.SpanAttr{Key: "l", Value: codeloop.LangSQL}, attribute.String("l", "sql")},
		{codeloop.SpanAttr{Key: "x", Value: []int{1}}, attribute.String("x", "[1]")},
	}
	for _, tt := range tests {
		if got := toOTELAttr(tt.in); got != tt.want {
			t.Errorf("toOTELAttr(%+v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// --- RecordRun ---

func TestRecordRunNoPanic(t *testing.T) {
	inst := testInstruments(t)
	RecordRun(context.Background(), inst, codeloop.Outcome{
		RunID:    codeloop.NewID(),
		Status:   codeloop.OutcomeExhausted,
		Language: codeloop.LangSQL,
		Attempts: 3,
		Err:      &codeloop.ExhaustedError{Attempts: 3},
	}, 1500*time.Millisecond)
}
