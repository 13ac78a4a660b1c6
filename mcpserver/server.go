// Package mcpserver exposes name resolution and interaction checking as MCP tools so
// agents can query the reference data directly.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/giygas/rxscan-api/analysis"
	"github.com/giygas/rxscan-api/explain"
	"github.com/giygas/rxscan-api/interactions"
	"github.com/giygas/rxscan-api/interfaces"
	"github.com/giygas/rxscan-api/logging"
	"github.com/giygas/rxscan-api/resolver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverName = "rxscan-mcp"

// Server holds the MCP server and the pipeline its tools query
type Server struct {
	service   *analysis.Service
	validator interfaces.InputValidator
	mcpServer *mcp.Server
}

// NewServer creates the MCP server and registers its tools
func NewServer(service *analysis.Service, validator interfaces.InputValidator, version string) *Server {
	s := &Server{
		service:   service,
		validator: validator,
		mcpServer: mcp.NewServer(
			&mcp.Implementation{
				Name:    serverName,
				Version: version,
			},
			nil,
		),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying SDK server
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Handler returns the streamable HTTP handler serving every session from this server
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}

// ResolveInput is the input of resolve_medications
type ResolveInput struct {
	Names []string `json:"names"`
	Text  string   `json:"text"`
}

// ResolveOutput is the result of resolve_medications
type ResolveOutput struct {
	ResolvedNames []string              `json:"resolved_names"`
	Resolutions   []resolver.Resolution `json:"resolutions"`
	FoundInText   []string              `json:"found_in_text"`
}

// CheckInput is the input of check_interactions
type CheckInput struct {
	Names []string `json:"names"`
}

// CheckOutput is the result of check_interactions
type CheckOutput struct {
	ResolvedNames []string             `json:"resolved_names"`
	PairsChecked  int                  `json:"pairs_checked"`
	Matches       []interactions.Match `json:"matches"`
	Summary       string               `json:"summary"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer,
		&mcp.Tool{
			Name:        "resolve_medications",
			Description: "Resolve medication names, possibly misspelled or brand names, to canonical drug names. Free text such as a transcribed prescription can be scanned for names too.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"names": {
						"type": "array",
						"items": {"type": "string"},
						"description": "Candidate medication names to resolve."
					},
					"text": {
						"type": "string",
						"description": "Optional free text to scan for medication names."
					}
				}
			}`),
		},
		s.handleResolve,
	)

	mcp.AddTool(s.mcpServer,
		&mcp.Tool{
			Name:        "check_interactions",
			Description: "Resolve a list of medication names and report every pair with a recorded interaction, including severity and notes. General information only, not medical advice.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"names": {
						"type": "array",
						"items": {"type": "string"},
						"description": "Medication names to check against each other."
					}
				},
				"required": ["names"]
			}`),
		},
		s.handleCheck,
	)
}

func (s *Server) handleResolve(ctx context.Context, req *mcp.CallToolRequest, input ResolveInput) (*mcp.CallToolResult, ResolveOutput, error) {
	if err := s.validator.ValidateNameList(input.Names); err != nil {
		return nil, ResolveOutput{}, fmt.Errorf("invalid names: %w", err)
	}
	if err := s.validator.ValidateText(input.Text); err != nil {
		return nil, ResolveOutput{}, fmt.Errorf("invalid text: %w", err)
	}

	res, _, _ := s.service.Snapshot()

	resolutions := res.ResolveMany(nonBlank(input.Names))
	out := ResolveOutput{
		Resolutions: resolutions,
		FoundInText: res.FindInText(input.Text),
	}
	out.ResolvedNames = resolver.DistinctNames(append(resolver.Distinct(resolutions), out.FoundInText...))

	logging.Debug("MCP resolve_medications", "names", len(input.Names), "resolved", len(out.ResolvedNames))
	return nil, out, nil
}

func (s *Server) handleCheck(ctx context.Context, req *mcp.CallToolRequest, input CheckInput) (*mcp.CallToolResult, CheckOutput, error) {
	if err := s.validator.ValidateNameList(input.Names); err != nil {
		return nil, CheckOutput{}, fmt.Errorf("invalid names: %w", err)
	}

	res, matcher, store := s.service.Snapshot()

	names := res.NormalizeMany(nonBlank(input.Names))
	report := matcher.Check(names)

	logging.Debug("MCP check_interactions", "names", len(names), "matches", len(report.Matches))
	return nil, CheckOutput{
		ResolvedNames: names,
		PairsChecked:  report.PairsChecked,
		Matches:       report.Matches,
		Summary:       explain.Compose(names, report.Matches, store),
	}, nil
}

func nonBlank(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
