package model

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func collect(respCh <-chan Response, errCh <-chan error) (partials []string, final Response, err error) {
	for r := range respCh {
		if r.Partial {
			partials = append(partials, r.Text)
			continue
		}
		final = r
	}
	err = <-errCh
	return partials, final, err
}

func TestMockModel_CannedResponse(t *testing.T) {
	m := NewMockModel("mock-1", "mock")
	m.AddResponse("summer campaign", "Launch on Friday.")

	respCh, errCh := m.Generate(context.Background(), Request{Prompt: "plan the summer campaign rollout"})
	_, final, err := collect(respCh, errCh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final.Text != "Launch on Friday." {
		t.Errorf("expected canned response, got %q", final.Text)
	}
	if final.FinishReason != "stop" {
		t.Errorf("expected finish reason stop, got %q", final.FinishReason)
	}
	if final.Usage == nil || final.Usage.TotalTokens == 0 {
		t.Error("final response should carry estimated token usage")
	}
}

func TestMockModel_DefaultResponse(t *testing.T) {
	m := NewMockModel("mock-1", "mock")

	respCh, errCh := m.Generate(context.Background(), Request{Prompt: "anything"})
	_, final, err := collect(respCh, errCh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(final.Text, "anything") {
		t.Errorf("default response should echo the prompt, got %q", final.Text)
	}
}

func TestMockModel_StreamingMatchesFinal(t *testing.T) {
	m := NewMockModel("mock-1", "mock")
	m.AddResponse("poem", "Roses are red")

	respCh, errCh := m.Generate(context.Background(), Request{Prompt: "write a poem", Stream: true})
	partials, final, err := collect(respCh, errCh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(partials) == 0 {
		t.Fatal("streaming request should emit partial responses")
	}
	if joined := strings.Join(partials, ""); joined != final.Text {
		t.Errorf("concatenated partials %q should equal final text %q", joined, final.Text)
	}
}

func TestMockModel_InjectedError(t *testing.T) {
	m := NewMockModel("mock-1", "mock")
	wantErr := errors.New("model overloaded")
	m.AddError("fail", wantErr)

	respCh, errCh := m.Generate(context.Background(), Request{Prompt: "please fail now"})
	_, final, err := collect(respCh, errCh)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if final.Text != "" {
		t.Errorf("no final response expected on error, got %q", final.Text)
	}
}

func TestMockModel_ContextCancellation(t *testing.T) {
	m := NewMockModel("mock-1", "mock").WithDelay(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	respCh, errCh := m.Generate(ctx, Request{Prompt: "slow"})
	_, _, err := collect(respCh, errCh)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMockModel_Info(t *testing.T) {
	m := NewMockModel("mock-1", "mock")
	info := m.Info()
	if info.Name != "mock-1" || info.Provider != "mock" {
		t.Errorf("unexpected info: %+v", info)
	}
}
