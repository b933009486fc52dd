package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"iconforge/internal/domain"
	"iconforge/internal/providers/textgen"
)

type stubBackend struct {
	text    string
	err     error
	calls   int
	lastReq textgen.Request
}

func (s *stubBackend) Generate(ctx context.Context, req textgen.Request) (*textgen.Response, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &textgen.Response{Text: s.text, Provider: "stub"}, nil
}

func (s *stubBackend) Name() string { return "stub" }

func TestResearchParsesTwoLineFormat(t *testing.T) {
	t.Parallel()
	backend := &stubBackend{text: "Message: nice design\nPrompt: a red fox, vector"}
	r := NewResearcher(Options{Backend: backend})
	got := r.Research(context.Background(), "red fox")
	if got.Explanation != "nice design" {
		t.Fatalf("Explanation = %q, want %q", got.Explanation, "nice design")
	}
	if got.ImagePrompt != "a red fox, vector" {
		t.Fatalf("ImagePrompt = %q, want %q", got.ImagePrompt, "a red fox, vector")
	}
	if got.Source != domain.PromptSourceResearcher {
		t.Fatalf("Source = %q", got.Source)
	}
	if backend.lastReq.MaxNewTokens != defaultMaxNewTokens || backend.lastReq.Temperature != defaultTemperature {
		t.Fatalf("unexpected request params: %#v", backend.lastReq)
	}
	if backend.lastReq.ReturnFullText {
		t.Fatal("expected continuation-only request")
	}
	if !strings.Contains(backend.lastReq.Instruction, `"red fox"`) {
		t.Fatalf("instruction does not embed the request: %q", backend.lastReq.Instruction)
	}
}

func TestResearchFallsBackOnBackendError(t *testing.T) {
	t.Parallel()
	var reason string
	r := NewResearcher(Options{
		Backend:    &stubBackend{err: errors.New("boom")},
		OnFallback: func(r string, err error) { reason = r },
	})
	got := r.Research(context.Background(), "coffee shop")
	want := TemplatePrompt("coffee shop")
	if got != want {
		t.Fatalf("got %#v, want %#v", got, want)
	}
	if reason != "backend_error" {
		t.Fatalf("reason = %q", reason)
	}
	if got.Explanation == "" {
		t.Fatal("fallback explanation must not be empty")
	}
	if !strings.Contains(got.ImagePrompt, "Professional app icon design: coffee shop.") {
		t.Fatalf("template prompt = %q", got.ImagePrompt)
	}
}

func TestResearchFallsBackOnUnusableOutput(t *testing.T) {
	t.Parallel()
	var reason string
	r := NewResearcher(Options{
		Backend:    &stubBackend{text: "ok"},
		OnFallback: func(r string, err error) { reason = r },
	})
	got := r.Research(context.Background(), "coffee shop")
	if got.Source != domain.PromptSourceTemplate {
		t.Fatalf("Source = %q, want template", got.Source)
	}
	if reason != "unusable_output" {
		t.Fatalf("reason = %q", reason)
	}
}

func TestResearchWithoutBackendUsesTemplate(t *testing.T) {
	t.Parallel()
	got := NewResearcher(Options{}).Research(context.Background(), "rocket")
	if got != TemplatePrompt("rocket") {
		t.Fatalf("got %#v", got)
	}
}

func TestParseResponse(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name        string
		raw         string
		ok          bool
		prompt      string
		explanation string
	}{
		{name: "two lines", raw: "Message: nice design\nPrompt: a red fox, vector", ok: true, prompt: "a red fox, vector", explanation: "nice design"},
		{name: "reversed order", raw: "Prompt: blue rocket\nMessage: launched", ok: true, prompt: "blue rocket", explanation: "launched"},
		{name: "padded and bold", raw: "\n **Message:** hello \n**Prompt:** \"teal wave icon\" \n", ok: true, prompt: "teal wave icon", explanation: "hello"},
		{name: "prompt only", raw: "Prompt: green leaf", ok: true, prompt: "green leaf"},
		{name: "raw output", raw: "App icon, stylized coffee cup with steam, white background", ok: true, prompt: "App icon, stylized coffee cup with steam, white background"},
		{name: "message only long", raw: "Message: this is the whole thing", ok: true, prompt: "Message: this is the whole thing"},
		{name: "code fence", raw: "```\nMessage: m\nPrompt: p icon\n```", ok: true, prompt: "p icon", explanation: "m"},
		{name: "too short", raw: "icon", ok: false},
		{name: "empty", raw: "   ", ok: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseResponse(tc.raw)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if !ok {
				return
			}
			if got.ImagePrompt != tc.prompt {
				t.Fatalf("ImagePrompt = %q, want %q", got.ImagePrompt, tc.prompt)
			}
			if got.Explanation != tc.explanation {
				t.Fatalf("Explanation = %q, want %q", got.Explanation, tc.explanation)
			}
		})
	}
}
