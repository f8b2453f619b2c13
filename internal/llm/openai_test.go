package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIGenerator_Validation(t *testing.T) {
	_, err := NewOpenAIGenerator(OpenAIConfig{})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	var gotReq openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "the answer"}},
			},
		})
	}))
	defer srv.Close()

	g, err := NewOpenAIGenerator(OpenAIConfig{
		APIKey:      "test-key",
		Model:       "gpt-4o-mini",
		BaseURL:     srv.URL + "/v1",
		MaxTokens:   1000,
		Temperature: 0.1,
	})
	require.NoError(t, err)
	defer g.Close()

	answer, err := g.Generate(context.Background(), "rendered prompt")
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)

	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, gotReq.Messages[0].Role)
	assert.Equal(t, "rendered prompt", gotReq.Messages[0].Content)
	assert.Equal(t, 1000, gotReq.MaxTokens)
	assert.InDelta(t, 0.1, float64(gotReq.Temperature), 1e-6)
}

func TestOpenAIGenerator_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	g, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrGenerationFailed)
}

func TestOpenAIGenerator_EmptyPrompt(t *testing.T) {
	g, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "test-key"})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "")
	require.ErrorIs(t, err, ErrGenerationFailed)
}
