package mind

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/genai"
)

var _ Generator = (*GeminiGenerator)(nil)

// GeminiGenerator implements Generator using the Google Gemini API.
type GeminiGenerator struct {
	Client *genai.Client

	// Model should not start with "models/".
	Model string
}

func (g *GeminiGenerator) Generate(ctx context.Context, req *Request) (*Reply, error) {
	cfg, contents, err := g.convRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err := g.Client.Models.GenerateContent(ctx, g.Model, contents, cfg)
	if err != nil {
		if e, ok := err.(*apierror.APIError); ok {
			err = e.Unwrap()
		}
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("mind: no candidates")
	}
	cand := resp.Candidates[0]
	switch cand.FinishReason {
	case genai.FinishReasonStop, genai.FinishReasonMaxTokens, genai.FinishReasonUnspecified:
	default:
		return nil, fmt.Errorf("mind: unexpected finish reason: %s", cand.FinishReason)
	}
	if cand.Content == nil {
		return nil, fmt.Errorf("mind: empty candidate content")
	}

	reply := &Reply{}
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		if p.FunctionCall != nil && reply.Call == nil {
			args, _ := json.Marshal(p.FunctionCall.Args)
			reply.Call = &FuncCall{
				Name:      p.FunctionCall.Name,
				Arguments: string(args),
			}
			continue
		}
		if p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	reply.Text = sb.String()
	return reply, nil
}

func (g *GeminiGenerator) convRequest(req *Request) (*genai.GenerateContentConfig, []*genai.Content, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(req.System)},
		}
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	for _, t := range req.Tools {
		cfg.Tools = append(cfg.Tools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  geminiConvSchema(t.Argument),
				},
			},
		})
	}

	var contents []*genai.Content
	for _, msg := range req.Messages {
		c, err := geminiConvMessage(msg)
		if err != nil {
			return nil, nil, err
		}
		contents = append(contents, c)
	}
	if len(contents) == 0 {
		return nil, nil, fmt.Errorf("mind: no contents")
	}
	return cfg, contents, nil
}

func geminiConvMessage(msg *Message) (*genai.Content, error) {
	switch {
	case msg.Call != nil:
		var args map[string]any
		if err := json.Unmarshal([]byte(msg.Call.Arguments), &args); err != nil {
			args = map[string]any{"text": msg.Call.Arguments}
		}
		return &genai.Content{
			Role:  "model",
			Parts: []*genai.Part{genai.NewPartFromFunctionCall(msg.Call.Name, args)},
		}, nil

	case msg.Response != nil:
		return &genai.Content{
			Role: "user",
			Parts: []*genai.Part{genai.NewPartFromFunctionResponse(
				msg.Response.Name,
				map[string]any{"result": msg.Response.Result},
			)},
		}, nil

	default:
		var role string
		switch msg.Role {
		case RoleUser:
			role = "user"
		case RoleModel:
			role = "model"
		default:
			return nil, fmt.Errorf("mind: unexpected role: %s", msg.Role)
		}
		var parts []*genai.Part
		if msg.Text != "" {
			parts = append(parts, genai.NewPartFromText(msg.Text))
		}
		for _, b := range msg.Blobs {
			parts = append(parts, genai.NewPartFromBytes(b.Data, b.MIMEType))
		}
		if len(parts) == 0 {
			return nil, fmt.Errorf("mind: empty message")
		}
		return &genai.Content{Role: role, Parts: parts}, nil
	}
}

func geminiConvSchema(schema *jsonschema.Schema) *genai.Schema {
	if schema == nil {
		return nil
	}

	enums := make([]string, 0, len(schema.Enum))
	for _, v := range schema.Enum {
		enums = append(enums, fmt.Sprintf("%v", v))
	}

	gs := genai.Schema{
		Format:      schema.Format,
		Description: schema.Description,
		Enum:        enums,
		Items:       geminiConvSchema(schema.Items),
		Required:    schema.Required,
	}
	if n := len(schema.Properties); n > 0 {
		gs.Properties = make(map[string]*genai.Schema, n)
		for k, prop := range schema.Properties {
			gs.Properties[k] = geminiConvSchema(prop)
		}
	}
	switch schema.Type {
	case "object":
		gs.Type = genai.TypeObject
	case "array":
		gs.Type = genai.TypeArray
	case "string":
		gs.Type = genai.TypeString
	case "number":
		gs.Type = genai.TypeNumber
	case "integer":
		gs.Type = genai.TypeInteger
	case "boolean":
		gs.Type = genai.TypeBoolean
	}
	return &gs
}
