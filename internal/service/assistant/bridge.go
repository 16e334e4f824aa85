// Package assistant produces automated replies by prompting an
// OpenAI-compatible chat-completions endpoint with a bounded per-user
// context window.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/whatease/backend/internal/config"
)

const systemPrompt = "You are a helpful AI assistant."

// Bridge wraps the upstream completion call. It never returns an error: any
// upstream failure becomes a readable fallback reply, so the chat flow always
// has text to deliver.
type Bridge struct {
	client *openai.Client
	cache  *ContextCache
	cfg    config.AssistantConfig
}

func NewBridge(cfg config.AssistantConfig, cache *ContextCache) *Bridge {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Bridge{
		client: openai.NewClientWithConfig(clientCfg),
		cache:  cache,
		cfg:    cfg,
	}
}

// Reply records text in the user's context window, asks the upstream model
// for a continuation and records the reply (or its fallback) before
// returning it.
func (b *Bridge) Reply(ctx context.Context, userID, text string) string {
	b.cache.Add(userID, text)
	prompt := buildPrompt(b.cache.Window(userID), text)

	reply := b.complete(ctx, prompt)
	if reply == "" {
		reply = "Sorry, I couldn't understand that."
	}

	b.cache.Add(userID, reply)
	return reply
}

// complete performs the remote call. No registry or store lock is held here;
// the call may block for the full configured timeout.
func (b *Bridge) complete(ctx context.Context, prompt string) string {
	callCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	resp, err := b.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: b.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   b.cfg.MaxTokens,
		Temperature: b.cfg.Temperature,
	})
	if err != nil {
		return fallbackFor(err)
	}

	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}

// fallbackFor turns an upstream failure into the degraded-but-visible reply
// the user sees instead of a dropped message.
func fallbackFor(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		log.Printf("[assistant] upstream API error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
		return fmt.Sprintf("API Error: %s", apiErr.Message)
	}

	log.Printf("[assistant] request failed: %v", err)
	return fmt.Sprintf("Request Error: %v", err)
}

// buildPrompt flattens the context window into a transcript, labelling
// entries User/Bot by position parity, and closes with the new message.
func buildPrompt(window []string, text string) string {
	var builder strings.Builder
	for i, entry := range window {
		if i%2 == 0 {
			builder.WriteString("User: ")
		} else {
			builder.WriteString("Bot: ")
		}
		builder.WriteString(entry)
		builder.WriteByte('\n')
	}
	builder.WriteString("User: ")
	builder.WriteString(text)
	builder.WriteString("\nBot:")
	return builder.String()
}
