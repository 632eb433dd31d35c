package mcp

import (
	"encoding/json"
	"fmt"
)

// ToolContentBlock is a discriminated union for the content array returned
// by a tool call or carried in a prompt message. The "type" field
// determines which concrete variant is represented, the same way the
// teacher's UserInput/ThreadItem unions work: a private marker method plus
// a MarshalJSON that injects "type" via an embedded type-alias struct.
type ToolContentBlock interface {
	toolContentBlock()
}

// TextContent is plain text content.
type TextContent struct {
	Text string `json:"text"`
}

func (TextContent) toolContentBlock() {}

func (c TextContent) MarshalJSON() ([]byte, error) {
	type Alias TextContent
	return json.Marshal(&struct {
		Type string `json:"type"`
		Alias
	}{Type: "text", Alias: Alias(c)})
}

// ImageContent is base64-encoded image content.
type ImageContent struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

func (ImageContent) toolContentBlock() {}

func (c ImageContent) MarshalJSON() ([]byte, error) {
	type Alias ImageContent
	return json.Marshal(&struct {
		Type string `json:"type"`
		Alias
	}{Type: "image", Alias: Alias(c)})
}

// AudioContent is base64-encoded audio content (ProtocolVersion20250618+).
type AudioContent struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

func (AudioContent) toolContentBlock() {}

func (c AudioContent) MarshalJSON() ([]byte, error) {
	type Alias AudioContent
	return json.Marshal(&struct {
		Type string `json:"type"`
		Alias
	}{Type: "audio", Alias: Alias(c)})
}

// ResourceLinkContent references a resource by URI without inlining it
// (ProtocolVersion20250618+ "resource links").
type ResourceLinkContent struct {
	URI         string  `json:"uri"`
	Name        string  `json:"name"`
	MimeType    *string `json:"mimeType,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (ResourceLinkContent) toolContentBlock() {}

func (c ResourceLinkContent) MarshalJSON() ([]byte, error) {
	type Alias ResourceLinkContent
	return json.Marshal(&struct {
		Type string `json:"type"`
		Alias
	}{Type: "resource_link", Alias: Alias(c)})
}

// EmbeddedResourceContent inlines the content of a resource read.
type EmbeddedResourceContent struct {
	URI      string          `json:"uri"`
	MimeType *string         `json:"mimeType,omitempty"`
	Text     *string         `json:"text,omitempty"`
	Blob     *string         `json:"blob,omitempty"`
	Meta     json.RawMessage `json:"_meta,omitempty"`
}

func (EmbeddedResourceContent) toolContentBlock() {}

func (c EmbeddedResourceContent) MarshalJSON() ([]byte, error) {
	type Alias EmbeddedResourceContent
	return json.Marshal(&struct {
		Type     string `json:"type"`
		Resource Alias  `json:"resource"`
	}{Type: "resource", Resource: Alias(c)})
}

// unmarshalToolContentBlock decodes one content array element based on its
// "type" discriminator, mirroring the teacher's UnmarshalUserInput.
func unmarshalToolContentBlock(data []byte) (ToolContentBlock, error) {
	var disc struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &disc); err != nil {
		return nil, err
	}

	switch disc.Type {
	case "text":
		var c TextContent
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "image":
		var c ImageContent
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "audio":
		var c AudioContent
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "resource_link":
		var c ResourceLinkContent
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "resource":
		var wrapper struct {
			Resource EmbeddedResourceContent `json:"resource"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, err
		}
		return wrapper.Resource, nil
	default:
		return nil, fmt.Errorf("mcp: unknown content block type %q", disc.Type)
	}
}

// unmarshalToolContentBlocks decodes a JSON array of content blocks.
func unmarshalToolContentBlocks(data json.RawMessage) ([]ToolContentBlock, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]ToolContentBlock, len(raw))
	for i, elem := range raw {
		block, err := unmarshalToolContentBlock(elem)
		if err != nil {
			return nil, err
		}
		out[i] = block
	}
	return out, nil
}

// NewTextResult is a convenience constructor for the common case of a tool
// returning a single text block.
func NewTextResult(text string) CallToolResult {
	return CallToolResult{Content: []ToolContentBlock{TextContent{Text: text}}}
}

// CallToolResult is the result of a tools/call request (spec.md §4.7).
type CallToolResult struct {
	Content           []ToolContentBlock
	IsError           bool
	StructuredContent json.RawMessage
}

// MarshalJSON implements json.Marshaler, serializing Content through each
// block's own discriminated-union MarshalJSON.
func (r CallToolResult) MarshalJSON() ([]byte, error) {
	content := make([]json.RawMessage, len(r.Content))
	for i, block := range r.Content {
		b, err := json.Marshal(block)
		if err != nil {
			return nil, err
		}
		content[i] = b
	}
	return json.Marshal(struct {
		Content           []json.RawMessage `json:"content"`
		IsError           bool              `json:"isError"`
		StructuredContent json.RawMessage   `json:"structuredContent,omitempty"`
	}{Content: content, IsError: r.IsError, StructuredContent: r.StructuredContent})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *CallToolResult) UnmarshalJSON(data []byte) error {
	var aux struct {
		Content           json.RawMessage `json:"content"`
		IsError           bool            `json:"isError"`
		StructuredContent json.RawMessage `json:"structuredContent,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	blocks, err := unmarshalToolContentBlocks(aux.Content)
	if err != nil {
		return err
	}
	r.Content = blocks
	r.IsError = aux.IsError
	r.StructuredContent = aux.StructuredContent
	return nil
}

// PromptMessage is one message yielded by a prompts/get call.
type PromptMessage struct {
	Role    string
	Content ToolContentBlock
}

func (m PromptMessage) MarshalJSON() ([]byte, error) {
	content, err := json.Marshal(m.Content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}{Role: m.Role, Content: content})
}

func (m *PromptMessage) UnmarshalJSON(data []byte) error {
	var aux struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	block, err := unmarshalToolContentBlock(aux.Content)
	if err != nil {
		return err
	}
	m.Role = aux.Role
	m.Content = block
	return nil
}
