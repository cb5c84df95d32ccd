package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/reasonmesh/core"
	"github.com/hupe1980/reasonmesh/model"
	"github.com/stretchr/testify/assert"
)

// finalOnlyModel emits a single final response without partials, like a
// backend that cannot stream.
type finalOnlyModel struct {
	text string
}

func (m *finalOnlyModel) Generate(_ context.Context, _ model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	respCh <- model.Response{
		Text:         m.text,
		FinishReason: "stop",
		Usage:        &core.TokenUsage{PromptTokens: 4, CompletionTokens: 2, TotalTokens: 6},
	}

	close(respCh)
	close(errCh)

	return respCh, errCh
}

func (m *finalOnlyModel) Info() model.Info {
	return model.Info{Name: "final-only", Provider: "mock"}
}

func TestEngine_Streaming_MatchesSyncContent(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.AddResponse("poem", "roses are red")

	e := New(func(o *Options) {
		o.Model = m
	})

	syncRC := e.CreateContext("session-sync")

	syncResult, err := e.ProcessInference(context.Background(), core.InferenceRequest{
		ContextID: syncRC.ID,
		Prompt:    "poem please",
	})
	assert.NoError(t, err)
	assert.Equal(t, "roses are red", syncResult.Content)

	streamRC := e.CreateContext("session-stream")

	streamResult, err := e.ProcessInference(context.Background(), core.InferenceRequest{
		ContextID: streamRC.ID,
		Prompt:    "poem please",
		Stream:    true,
	})
	assert.NoError(t, err)
	assert.NotNil(t, streamResult.Stream)

	var parts []string

	for streamResult.Stream.Next() {
		parts = append(parts, streamResult.Stream.Current().Text)
	}

	assert.NoError(t, streamResult.Stream.Err())
	assert.Greater(t, len(parts), 1)
	assert.Equal(t, syncResult.Content, strings.Join(parts, ""))
}

func TestEngine_Streaming_ResultShape(t *testing.T) {
	e := New()
	rc := e.CreateContext("session-1")

	result, err := e.ProcessInference(context.Background(), core.InferenceRequest{
		ContextID: rc.ID,
		Prompt:    "hello",
		Stream:    true,
	})

	assert.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, rc.ID, result.ContextID)
	assert.Equal(t, "generalist", result.AgentType)
	assert.NotNil(t, result.Stream)

	// Content, usage, and latency are folded into metrics on completion,
	// not reported on the immediately returned result.
	assert.Empty(t, result.Content)
	assert.Equal(t, core.TokenUsage{}, result.Usage)
	assert.Equal(t, time.Duration(0), result.Latency)

	text, err := result.Stream.Text()
	assert.NoError(t, err)
	assert.Equal(t, "Mock response to: hello", text)

	metrics := e.Metrics()
	assert.Equal(t, int64(1), metrics.TotalInferences)
	assert.Equal(t, int64(1), metrics.StreamingInferences)
	assert.Equal(t, 0, metrics.ActiveInferences)
	assert.Greater(t, metrics.AvgLatencyMs, 0.0)

	history := rc.HistorySnapshot()
	assert.Len(t, history, 1)
	assert.Equal(t, core.EntryTypeAgentOutput, history[0].Type)
	assert.Equal(t, text, history[0].Content)
}

func TestEngine_Streaming_SingleFragmentFallback(t *testing.T) {
	e := New(func(o *Options) {
		o.Model = &finalOnlyModel{text: "all at once"}
	})

	rc := e.CreateContext("session-1")

	result, err := e.ProcessInference(context.Background(), core.InferenceRequest{
		ContextID: rc.ID,
		Prompt:    "hello",
		Stream:    true,
	})
	assert.NoError(t, err)

	var parts []string

	for result.Stream.Next() {
		parts = append(parts, result.Stream.Current().Text)
	}

	assert.NoError(t, result.Stream.Err())
	assert.Equal(t, []string{"all at once"}, parts)

	history := rc.HistorySnapshot()
	assert.Len(t, history, 1)
	assert.Equal(t, "all at once", history[0].Content)
	assert.Equal(t, 2, history[0].Tokens)
}

func TestEngine_Streaming_ErrorEndsStream(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.AddError("explode", assert.AnError)

	e := New(func(o *Options) {
		o.Model = m
	})
	e.RegisterAgentType("writer", "write")

	rc := e.CreateContext("session-1")

	result, err := e.ProcessInference(context.Background(), core.InferenceRequest{
		ContextID: rc.ID,
		Prompt:    "explode now",
		AgentType: "writer",
		Stream:    true,
	})
	assert.NoError(t, err)

	assert.False(t, result.Stream.Next())
	assert.Equal(t, assert.AnError, result.Stream.Err())

	// The failure feeds the agent profile but never the completion
	// counters or history.
	assert.Equal(t, int64(0), e.Metrics().TotalInferences)
	assert.Equal(t, 0, rc.HistoryLen())

	profiles := e.RouteStats().Agents
	assert.Len(t, profiles, 1)
	assert.Less(t, profiles[0].SuccessRate, 1.0)

	assert.Eventually(t, func() bool {
		return e.Metrics().ActiveInferences == 0
	}, time.Second, 5*time.Millisecond)
}

func TestEngine_Streaming_AbandonmentRecordsNothing(t *testing.T) {
	m := model.NewMockModel("mock", "mock").WithDelay(100 * time.Millisecond)

	e := New(func(o *Options) {
		o.Model = m
	})

	rc := e.CreateContext("session-1")

	ctx, cancel := context.WithCancel(context.Background())

	result, err := e.ProcessInference(ctx, core.InferenceRequest{
		ContextID: rc.ID,
		Prompt:    "slow task",
		Stream:    true,
	})
	assert.NoError(t, err)

	cancel()

	for result.Stream.Next() {
	}

	assert.NoError(t, result.Stream.Err())
	assert.Equal(t, 0, rc.HistoryLen())

	metrics := e.Metrics()
	assert.Equal(t, int64(0), metrics.TotalInferences)
	assert.Equal(t, int64(0), metrics.StreamingInferences)
	assert.Equal(t, 0, metrics.ActiveInferences)
}

func TestEngine_Streaming_CancelInferenceEndsStream(t *testing.T) {
	m := model.NewMockModel("mock", "mock").WithDelay(100 * time.Millisecond)

	e := New(func(o *Options) {
		o.Model = m
	})

	rc := e.CreateContext("session-1")

	result, err := e.ProcessInference(context.Background(), core.InferenceRequest{
		ContextID: rc.ID,
		Prompt:    "slow task",
		Stream:    true,
	})
	assert.NoError(t, err)

	assert.NoError(t, e.CancelInference(result.ID))

	for result.Stream.Next() {
	}

	assert.NoError(t, result.Stream.Err())
	assert.Equal(t, 0, e.Metrics().ActiveInferences)

	// The inference is gone once cancelled.
	assert.Error(t, e.CancelInference(result.ID))
}

func TestEngine_Streaming_DisabledDowngradesToSync(t *testing.T) {
	e := New(func(o *Options) {
		o.Config.EnableStreaming = false
	})

	rc := e.CreateContext("session-1")

	result, err := e.ProcessInference(context.Background(), core.InferenceRequest{
		ContextID: rc.ID,
		Prompt:    "hello",
		Stream:    true,
	})

	assert.NoError(t, err)
	assert.Nil(t, result.Stream)
	assert.Equal(t, "Mock response to: hello", result.Content)

	metrics := e.Metrics()
	assert.Equal(t, int64(1), metrics.TotalInferences)
	assert.Equal(t, int64(0), metrics.StreamingInferences)
}
