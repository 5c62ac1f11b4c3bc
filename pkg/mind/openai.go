package mind

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
)

var _ Generator = (*OpenAIGenerator)(nil)

const (
	oaiFinishReasonStop      = "stop"
	oaiFinishReasonToolCalls = "tool_calls"
	oaiFinishReasonLength    = "length"
)

// OpenAIGenerator implements Generator using an OpenAI-compatible chat
// completion API. It is the alternate reasoning backend, selected by
// configuration.
type OpenAIGenerator struct {
	Client *openai.Client

	Model string
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req *Request) (*Reply, error) {
	params, err := g.convRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err := g.Client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("mind: no choices")
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("mind: blocked: %s", choice.Message.Refusal)
	}
	switch choice.FinishReason {
	case oaiFinishReasonStop, oaiFinishReasonToolCalls, oaiFinishReasonLength:
	default:
		return nil, fmt.Errorf("mind: unexpected finish reason: %s", choice.FinishReason)
	}

	reply := &Reply{Text: choice.Message.Content}
	if len(choice.Message.ToolCalls) > 0 {
		tc := choice.Message.ToolCalls[0]
		reply.Call = &FuncCall{
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}
	}
	return reply, nil
}

func (g *OpenAIGenerator) convRequest(req *Request) (openai.ChatCompletionNewParams, error) {
	params := openai.ChatCompletionNewParams{
		Model: g.Model,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(req.MaxTokens))
	}

	if req.System != "" {
		params.Messages = append(params.Messages, openai.ChatCompletionMessageParamUnion{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: param.NewOpt(req.System),
				},
			},
		})
	}
	for _, msg := range req.Messages {
		m, err := oaiConvMessage(msg)
		if err != nil {
			return params, err
		}
		params.Messages = append(params.Messages, m)
	}

	for _, t := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: param.NewOpt(t.Description),
				Parameters:  oaiConvSchema(t.Argument),
			},
		})
	}
	return params, nil
}

func oaiConvMessage(msg *Message) (openai.ChatCompletionMessageParamUnion, error) {
	switch {
	case msg.Call != nil:
		return openai.ChatCompletionMessageParamUnion{
			OfAssistant: &openai.ChatCompletionAssistantMessageParam{
				ToolCalls: []openai.ChatCompletionMessageToolCallParam{
					{
						ID: msg.Call.Name,
						Function: openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      msg.Call.Name,
							Arguments: msg.Call.Arguments,
						},
					},
				},
			},
		}, nil

	case msg.Response != nil:
		return openai.ToolMessage(msg.Response.Result, msg.Response.Name), nil

	case msg.Role == RoleModel:
		if len(msg.Blobs) > 0 {
			return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("mind: model message must contain text only")
		}
		return openai.ChatCompletionMessageParamUnion{
			OfAssistant: &openai.ChatCompletionAssistantMessageParam{
				Content: openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: param.NewOpt(msg.Text),
				},
			},
		}, nil

	default:
		if len(msg.Blobs) == 0 {
			return openai.ChatCompletionMessageParamUnion{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: param.NewOpt(msg.Text),
					},
				},
			}, nil
		}
		var contents []openai.ChatCompletionContentPartUnionParam
		if msg.Text != "" {
			contents = append(contents, openai.TextContentPart(msg.Text))
		}
		for _, b := range msg.Blobs {
			switch {
			case b.MIMEType == "audio/wav":
				contents = append(contents, openai.InputAudioContentPart(openai.ChatCompletionContentPartInputAudioInputAudioParam{
					Data:   base64.StdEncoding.EncodeToString(b.Data),
					Format: "wav",
				}))
			case b.MIMEType == "audio/mp3" || b.MIMEType == "audio/mpeg":
				contents = append(contents, openai.InputAudioContentPart(openai.ChatCompletionContentPartInputAudioInputAudioParam{
					Data:   base64.StdEncoding.EncodeToString(b.Data),
					Format: "mp3",
				}))
			case strings.HasPrefix(b.MIMEType, "image/"):
				contents = append(contents, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: "data:" + b.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(b.Data),
				}))
			default:
				return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("mind: unsupported blob type: %s", b.MIMEType)
			}
		}
		return openai.ChatCompletionMessageParamUnion{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: contents,
				},
			},
		}, nil
	}
}

func oaiConvSchema(s *jsonschema.Schema) openai.FunctionParameters {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	var m openai.FunctionParameters
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}
