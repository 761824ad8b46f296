package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ca-srg/medassist/internal/facade"
)

// Tool names exposed to MCP clients
const (
	ToolDrugSearch       = "drug_search"
	ToolSideEffects      = "side_effects"
	ToolLiteratureSearch = "literature_search"
	ToolMedicalConsult   = "medical_consult"
)

type searchArguments struct {
	Query string `json:"query"`
}

type consultArguments struct {
	Message string        `json:"message"`
	History []facade.Turn `json:"history"`
}

func searchSchema(description string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {Type: "string", Description: description},
		},
		Required: []string{"query"},
	}
}

var consultSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"message": {Type: "string", Description: "The user's health question"},
		"history": {
			Type:        "array",
			Description: "Prior turns, oldest first",
			Items: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"role":    {Type: "string", Enum: []any{string(facade.RoleUser), string(facade.RoleAssistant)}},
					"content": {Type: "string"},
				},
				Required: []string{"role", "content"},
			},
		},
	},
	Required: []string{"message"},
}

// registerTools adds every façade tool to the SDK server
func (s *Server) registerTools() {
	s.addTool(&mcp.Tool{
		Name:        ToolDrugSearch,
		Description: "List the drugs most often reported in openFDA adverse events for a condition or symptom. Non-English input is translated first.",
		InputSchema: searchSchema("Condition or symptom, e.g. headache"),
	}, s.searchHandler(ToolDrugSearch, s.assistant.SearchDrugs))

	s.addTool(&mcp.Tool{
		Name:        ToolSideEffects,
		Description: "List the reactions most often reported in openFDA adverse events for a drug.",
		InputSchema: searchSchema("Drug name, e.g. aspirin"),
	}, s.searchHandler(ToolSideEffects, s.assistant.SideEffects))

	s.addTool(&mcp.Tool{
		Name:        ToolLiteratureSearch,
		Description: "Search PubMed and summarize the most relevant papers for a medical term.",
		InputSchema: searchSchema("Medical term, e.g. diabetes treatment"),
	}, s.searchHandler(ToolLiteratureSearch, s.assistant.SearchLiterature))

	s.addTool(&mcp.Tool{
		Name:        ToolMedicalConsult,
		Description: "Answer a general health question as a medical assistant. Replies are informational and not a diagnosis.",
		InputSchema: consultSchema,
	}, s.consultHandler)
}

func (s *Server) addTool(tool *mcp.Tool, handler mcp.ToolHandler) {
	s.sdkServer.AddTool(tool, handler)
	s.toolNames = append(s.toolNames, tool.Name)
	s.logger.Printf("Registered tool: %s", tool.Name)
}

func (s *Server) searchHandler(name string, search func(context.Context, string) (*facade.DisplayArtifact, error)) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args searchArguments
		if err := decodeArguments(req, &args); err != nil {
			return errorResult(err), nil
		}
		artifact, err := search(ctx, args.Query)
		return s.toolResult(name, artifact, err), nil
	}
}

func (s *Server) consultHandler(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args consultArguments
	if err := decodeArguments(req, &args); err != nil {
		return errorResult(err), nil
	}
	artifact, err := s.assistant.Consult(ctx, args.Message, args.History)
	return s.toolResult(ToolMedicalConsult, artifact, err), nil
}

func decodeArguments(req *mcp.CallToolRequest, v interface{}) error {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params.Arguments, v); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	return nil
}

// toolResult renders the artifact as text. Façade failures become tool errors, not protocol errors.
func (s *Server) toolResult(name string, artifact *facade.DisplayArtifact, err error) *mcp.CallToolResult {
	text := artifact.PlainText()
	if err != nil {
		s.logger.Printf("Tool %s failed: %v", name, err)
		var fe *facade.Error
		if errors.As(err, &fe) && text == "" {
			text = fe.Message
		}
		if text == "" {
			text = err.Error()
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
			IsError: true,
		}
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}
