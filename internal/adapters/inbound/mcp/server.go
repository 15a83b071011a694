package mcp

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewDoctorMCPServer creates a new MCP server with all Pensieve Doctor tools
// registered. The projectPath is the root of the Pensieve checkout to
// analyze.
func NewDoctorMCPServer(projectPath string) *server.MCPServer {
	s := server.NewMCPServer(
		"pensieve-doctor",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	registerTools(s, projectPath)

	return s
}
