package tools

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
)

// ConvertToolsToOpenAI converts MCP tool descriptors to the chat-completions
// tool parameter format. Both sides are JSON Schema; the conversion is a
// re-keying of the schema fields.
func ConvertToolsToOpenAI(mcpTools []mcptypes.Tool) []openai.ChatCompletionToolUnionParam {
	if len(mcpTools) == 0 {
		return nil
	}

	result := make([]openai.ChatCompletionToolUnionParam, len(mcpTools))
	for i, tool := range mcpTools {
		params := openai.FunctionParameters{
			"type":       tool.InputSchema.Type,
			"properties": tool.InputSchema.Properties,
		}
		if len(tool.InputSchema.Required) > 0 {
			params["required"] = tool.InputSchema.Required
		}
		if tool.InputSchema.Defs != nil {
			params["$defs"] = tool.InputSchema.Defs
		}

		result[i] = openai.ChatCompletionFunctionTool(
			openai.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  params,
			},
		)
	}

	return result
}

// ConvertToolsToAnthropic converts MCP tool descriptors to Anthropic's tool
// parameter format.
func ConvertToolsToAnthropic(mcpTools []mcptypes.Tool) []anthropic.ToolUnionParam {
	if len(mcpTools) == 0 {
		return nil
	}

	result := make([]anthropic.ToolUnionParam, len(mcpTools))
	for i, tool := range mcpTools {
		inputSchema := anthropic.ToolInputSchemaParam{
			// Type defaults to "object" when omitted.
			Properties: tool.InputSchema.Properties,
		}
		if len(tool.InputSchema.Required) > 0 {
			inputSchema.Required = tool.InputSchema.Required
		}
		if tool.InputSchema.Defs != nil {
			inputSchema.ExtraFields = map[string]any{
				"$defs": tool.InputSchema.Defs,
			}
		}

		result[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Name)
		if tool.Description != "" {
			result[i].OfTool.Description = anthropic.String(tool.Description)
		}
	}

	return result
}

// ConvertToolsToOllama converts MCP tool descriptors to the Ollama API tool
// format. Ollama wants the schema as typed structs rather than a raw map,
// so properties are converted recursively.
func ConvertToolsToOllama(mcpTools []mcptypes.Tool) []api.Tool {
	if len(mcpTools) == 0 {
		return nil
	}

	result := make([]api.Tool, 0, len(mcpTools))
	for _, tool := range mcpTools {
		result = append(result, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  convertInputSchema(tool.InputSchema),
			},
		})
	}

	return result
}

func convertInputSchema(inputSchema mcptypes.ToolInputSchema) api.ToolFunctionParameters {
	params := api.ToolFunctionParameters{
		Type:       inputSchema.Type,
		Required:   inputSchema.Required,
		Properties: make(map[string]api.ToolProperty),
	}
	if inputSchema.Defs != nil {
		params.Defs = inputSchema.Defs
	}

	for name, value := range inputSchema.Properties {
		params.Properties[name] = convertProperty(value)
	}

	return params
}

func convertProperty(value any) api.ToolProperty {
	prop := api.ToolProperty{}

	propMap, ok := value.(map[string]any)
	if !ok {
		// Not a plain map; round-trip through JSON to get one.
		bytes, err := json.Marshal(value)
		if err != nil {
			return prop
		}
		var m map[string]any
		if err := json.Unmarshal(bytes, &m); err != nil {
			return prop
		}
		propMap = m
	}

	// type can be a string or a list of strings
	if typeVal, ok := propMap["type"]; ok {
		switch t := typeVal.(type) {
		case string:
			prop.Type = api.PropertyType{t}
		case []string:
			prop.Type = api.PropertyType(t)
		case []any:
			types := make([]string, 0, len(t))
			for _, v := range t {
				if s, ok := v.(string); ok {
					types = append(types, s)
				}
			}
			prop.Type = api.PropertyType(types)
		}
	}

	if desc, ok := propMap["description"].(string); ok {
		prop.Description = desc
	}

	if enumVal, ok := propMap["enum"]; ok {
		if enumSlice, ok := enumVal.([]any); ok {
			prop.Enum = enumSlice
		}
	}

	if items, ok := propMap["items"]; ok {
		prop.Items = items
	}

	if anyOfVal, ok := propMap["anyOf"]; ok {
		if anyOfSlice, ok := anyOfVal.([]any); ok {
			anyOfProps := make([]api.ToolProperty, 0, len(anyOfSlice))
			for _, item := range anyOfSlice {
				anyOfProps = append(anyOfProps, convertProperty(item))
			}
			prop.AnyOf = anyOfProps
		}
	}

	return prop
}
