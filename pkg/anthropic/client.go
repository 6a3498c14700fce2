// Package anthropic wraps the official SDK behind a small client interface
// with our own request/response types, so pipeline code and tests never
// depend on SDK types directly.
package anthropic

import (
	"context"
	"encoding/json"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// Client defines the Anthropic API operations used by the pipeline.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

// MessageRequest is our own request type for CreateMessage.
type MessageRequest struct {
	Model       string
	MaxTokens   int64
	System      []SystemBlock
	Messages    []Message
	Temperature *float64

	// Tools declares tool definitions; ForceTool names the tool the model
	// must invoke (forced structured output). Empty means no forcing.
	Tools     []ToolDefinition
	ForceTool string
}

// SystemBlock represents a system prompt block, optionally with cache control.
type SystemBlock struct {
	Text         string
	CacheControl *CacheControl
}

// CacheControl configures caching for a content block.
type CacheControl struct {
	TTL string // "5m" or "1h"
}

// Message is a single conversational message mixing text and binary blocks.
type Message struct {
	Role    string // "user" or "assistant"
	Content []ContentBlock
}

// ContentBlock is one piece of outgoing message content.
type ContentBlock struct {
	Type      string // "text", "image", "document"
	Text      string
	MediaType string // image media type, e.g. "image/png"
	Data      string // base64 payload for image/document blocks

	// EnableCitations asks the API to attach source citations for passages
	// drawn from this document block.
	EnableCitations bool
}

// TextContent builds a text content block.
func TextContent(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// ImageContent builds a base64 image content block.
func ImageContent(mediaType, data string) ContentBlock {
	return ContentBlock{Type: "image", MediaType: mediaType, Data: data}
}

// DocumentContent builds a base64 PDF content block with citations enabled.
func DocumentContent(data string) ContentBlock {
	return ContentBlock{Type: "document", MediaType: "application/pdf", Data: data, EnableCitations: true}
}

// ToolDefinition declares a tool whose input schema constrains model output.
type ToolDefinition struct {
	Name        string
	Description string
	// InputSchema is a JSON Schema object ({"type":"object","properties":...}).
	InputSchema map[string]any
}

// MessageResponse is our own response type from CreateMessage.
type MessageResponse struct {
	ID         string
	Model      string
	Content    []ResponseBlock
	StopReason string
	Usage      TokenUsage
}

// ResponseBlock is one block of response content. Text blocks may carry
// citations; tool_use blocks carry the structured input the model produced.
type ResponseBlock struct {
	Type      string
	Text      string
	Citations []TextCitation
	ToolName  string
	ToolInput json.RawMessage
}

// TextCitation is a provider citation attached to a text block.
type TextCitation struct {
	CitedText       string
	DocumentIndex   int
	DocumentTitle   string
	StartCharIndex  int
	EndCharIndex    int
	StartPageNumber int
	EndPageNumber   int
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// Text concatenates all text blocks in the response.
func (r *MessageResponse) Text() string {
	var out string
	for _, b := range r.Content {
		if b.Type == "text" {
			out += b.Text
		}
	}
	return out
}

// ToolUse returns the input of the first tool_use block, or false when the
// model ignored the forced-tool instruction.
func (r *MessageResponse) ToolUse() (json.RawMessage, bool) {
	for _, b := range r.Content {
		if b.Type == "tool_use" {
			return b.ToolInput, true
		}
	}
	return nil, false
}

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client sdk.Client
}

// NewClient creates a new Anthropic client backed by the SDK.
func NewClient(apiKey string) Client {
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
	}
}

func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  toSDKMessages(req.Messages),
	}

	if len(req.System) > 0 {
		params.System = toSDKSystemBlocks(req.System)
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = toSDKTools(req.Tools)
	}
	if req.ForceTool != "" {
		params.ToolChoice = sdk.ToolChoiceUnionParam{
			OfTool: &sdk.ToolChoiceToolParam{Name: req.ForceTool},
		}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}

	return fromSDKMessage(msg), nil
}

// --- SDK type conversion helpers ---

func toSDKMessages(msgs []Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, len(msgs))
	for i, m := range msgs {
		blocks := make([]sdk.ContentBlockParamUnion, 0, len(m.Content))
		for _, b := range m.Content {
			blocks = append(blocks, toSDKContentBlock(b))
		}
		switch m.Role {
		case "assistant":
			out[i] = sdk.NewAssistantMessage(blocks...)
		default:
			out[i] = sdk.NewUserMessage(blocks...)
		}
	}
	return out
}

func toSDKContentBlock(b ContentBlock) sdk.ContentBlockParamUnion {
	switch b.Type {
	case "image":
		return sdk.ContentBlockParamUnion{
			OfImage: &sdk.ImageBlockParam{
				Source: sdk.ImageBlockParamSourceUnion{
					OfBase64: &sdk.Base64ImageSourceParam{
						Data:      b.Data,
						MediaType: sdk.Base64ImageSourceMediaType(b.MediaType),
					},
				},
			},
		}
	case "document":
		doc := &sdk.DocumentBlockParam{
			Source: sdk.DocumentBlockParamSourceUnion{
				OfBase64: &sdk.Base64PDFSourceParam{Data: b.Data},
			},
		}
		if b.EnableCitations {
			doc.Citations = sdk.CitationsConfigParam{Enabled: sdk.Bool(true)}
		}
		return sdk.ContentBlockParamUnion{OfDocument: doc}
	default:
		return sdk.NewTextBlock(b.Text)
	}
}

func toSDKSystemBlocks(blocks []SystemBlock) []sdk.TextBlockParam {
	out := make([]sdk.TextBlockParam, len(blocks))
	for i, b := range blocks {
		out[i] = sdk.TextBlockParam{
			Text: b.Text,
		}
		if b.CacheControl != nil {
			cc := sdk.NewCacheControlEphemeralParam()
			if b.CacheControl.TTL != "" {
				cc.TTL = sdk.CacheControlEphemeralTTL(b.CacheControl.TTL)
			}
			out[i].CacheControl = cc
		}
	}
	return out
}

func toSDKTools(tools []ToolDefinition) []sdk.ToolUnionParam {
	out := make([]sdk.ToolUnionParam, len(tools))
	for i, t := range tools {
		tool := &sdk.ToolParam{
			Name:        t.Name,
			InputSchema: toSDKInputSchema(t.InputSchema),
		}
		if t.Description != "" {
			tool.Description = sdk.String(t.Description)
		}
		out[i] = sdk.ToolUnionParam{OfTool: tool}
	}
	return out
}

func toSDKInputSchema(schema map[string]any) sdk.ToolInputSchemaParam {
	param := sdk.ToolInputSchemaParam{
		Properties: schema["properties"],
	}
	if req, ok := schema["required"].([]string); ok {
		param.Required = req
	} else if reqAny, ok := schema["required"].([]any); ok {
		for _, r := range reqAny {
			if s, ok := r.(string); ok {
				param.Required = append(param.Required, s)
			}
		}
	}
	return param
}

func fromSDKMessage(msg *sdk.Message) *MessageResponse {
	blocks := make([]ResponseBlock, 0, len(msg.Content))
	for _, b := range msg.Content {
		rb := ResponseBlock{
			Type: string(b.Type),
			Text: b.Text,
		}
		if rb.Type == "tool_use" {
			rb.ToolName = b.Name
			rb.ToolInput = b.Input
		}
		for _, c := range b.Citations {
			rb.Citations = append(rb.Citations, TextCitation{
				CitedText:       c.CitedText,
				DocumentIndex:   int(c.DocumentIndex),
				DocumentTitle:   c.DocumentTitle,
				StartCharIndex:  int(c.StartCharIndex),
				EndCharIndex:    int(c.EndCharIndex),
				StartPageNumber: int(c.StartPageNumber),
				EndPageNumber:   int(c.EndPageNumber),
			})
		}
		blocks = append(blocks, rb)
	}

	return &MessageResponse{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Content:    blocks,
		StopReason: string(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:              msg.Usage.InputTokens,
			OutputTokens:             msg.Usage.OutputTokens,
			CacheCreationInputTokens: msg.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     msg.Usage.CacheReadInputTokens,
		},
	}
}
