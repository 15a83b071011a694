package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	cacheAdapter "github.com/pensieve/pensieve-doctor/internal/adapters/outbound/cache"
	configloader "github.com/pensieve/pensieve-doctor/internal/adapters/outbound/config"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/gitinfo"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/memoscli"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/pyparser"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/restapi"
	rulesloader "github.com/pensieve/pensieve-doctor/internal/adapters/outbound/rules"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/selector"
	"github.com/pensieve/pensieve-doctor/internal/application"
	"github.com/pensieve/pensieve-doctor/internal/domain"
	"github.com/pensieve/pensieve-doctor/internal/domain/analyze"
)

// registerTools registers all Pensieve Doctor MCP tools on the given server.
func registerTools(s *server.MCPServer, projectPath string) {
	// 1. pensieve_scan
	s.AddTool(
		mcplib.NewTool("pensieve_scan",
			mcplib.WithDescription("Scan the Pensieve codebase for integration anti-patterns and return the findings as JSON"),
			mcplib.WithString("analyzer",
				mcplib.Description("Run only one analyzer (database, errors, config, integration)"),
			),
		),
		handleScan(projectPath),
	)

	// 2. pensieve_fix
	s.AddTool(
		mcplib.NewTool("pensieve_fix",
			mcplib.WithDescription("Apply safe literal fixes for known findings and return the fix plan"),
			mcplib.WithBoolean("dry_run", mcplib.Description("Show the plan without touching files")),
		),
		handleFix(projectPath),
	)

	// 3. pensieve_health
	s.AddTool(
		mcplib.NewTool("pensieve_health",
			mcplib.WithDescription("Check the memos service health (process, REST API, database) and return the verdict as JSON"),
		),
		handleHealth(),
	)

	// 4. pensieve_migration_assess
	s.AddTool(
		mcplib.NewTool("pensieve_migration_assess",
			mcplib.WithDescription("Assess backend migration readiness: workload metrics, recommended backend, risk, blockers and prerequisites"),
		),
		handleMigrationAssess(),
	)

	// 5. pensieve_endpoints
	s.AddTool(
		mcplib.NewTool("pensieve_endpoints",
			mcplib.WithDescription("Discover the memos REST surface and grade functional coverage"),
			mcplib.WithBoolean("deep_scan", mcplib.Description("Probe the extended path cross product")),
		),
		handleEndpoints(),
	)
}

func mcpLogger() hclog.Logger {
	// stdio transport owns stdout; everything observable goes to stderr.
	return hclog.New(&hclog.LoggerOptions{
		Name:  "pensieve-doctor-mcp",
		Level: hclog.Warn,
	})
}

func handleScan(projectPath string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		cfg, err := configloader.New().Load(projectPath)
		if err != nil {
			return errorResult(fmt.Sprintf("loading config: %v", err)), nil
		}
		cfg.ScanRoot = projectPath
		rules, err := rulesloader.New().Load(projectPath)
		if err != nil {
			return errorResult(fmt.Sprintf("loading rules: %v", err)), nil
		}

		analyzers := analyze.All(rules)
		if name, ok := request.GetArguments()["analyzer"].(string); ok && name != "" {
			one := analyze.ByName(rules, name)
			if one == nil {
				return errorResult(fmt.Sprintf("unknown analyzer %q", name)), nil
			}
			analyzers = []domain.Analyzer{one}
		}

		logger := mcpLogger()
		store, err := cacheAdapter.New(filepath.Join(projectPath, cfg.CacheDir))
		if err != nil {
			return errorResult(fmt.Sprintf("opening cache: %v", err)), nil
		}

		git := gitinfo.New()
		parallel := application.NewParallelAnalyzer(
			pyparser.New(), store, cfg.MaxWorkers, cfg.TestTimeout, logger)
		svc := application.NewScanService(
			selector.New(git), parallel, nil, store, git, nil, logger)

		report, err := svc.Scan(ctx, cfg, analyzers)
		if err != nil {
			return errorResult(fmt.Sprintf("scan failed: %v", err)), nil
		}
		return jsonResult(report)
	}
}

func handleFix(projectPath string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		cfg, err := configloader.New().Load(projectPath)
		if err != nil {
			return errorResult(fmt.Sprintf("loading config: %v", err)), nil
		}
		cfg.ScanRoot = projectPath
		rules, err := rulesloader.New().Load(projectPath)
		if err != nil {
			return errorResult(fmt.Sprintf("loading rules: %v", err)), nil
		}

		logger := mcpLogger()
		store, err := cacheAdapter.New(filepath.Join(projectPath, cfg.CacheDir))
		if err != nil {
			return errorResult(fmt.Sprintf("opening cache: %v", err)), nil
		}

		git := gitinfo.New()
		parallel := application.NewParallelAnalyzer(
			pyparser.New(), store, cfg.MaxWorkers, cfg.TestTimeout, logger)
		scanSvc := application.NewScanService(
			selector.New(git), parallel, nil, store, git, nil, logger)

		report, err := scanSvc.Scan(ctx, cfg, analyze.All(rules))
		if err != nil {
			return errorResult(fmt.Sprintf("scan failed: %v", err)), nil
		}

		dryRun, _ := request.GetArguments()["dry_run"].(bool)
		fixSvc := application.NewFixService(logger)
		plan, err := fixSvc.Apply(projectPath, report.Findings, domain.FixOptions{DryRun: dryRun})
		if err != nil {
			return errorResult(fmt.Sprintf("fix failed: %v", err)), nil
		}
		return jsonResult(plan)
	}
}

func handleHealth() server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		cfg, err := configloader.New().Load(".")
		if err != nil {
			return errorResult(fmt.Sprintf("loading config: %v", err)), nil
		}

		logger := mcpLogger()
		api := restapi.New(cfg.ServiceURL, cfg.APITimeout, logger)
		control := memoscli.New(cfg.MemosBin, logger)
		svc := application.NewHealthService(api, control, logger)

		status := svc.Check(ctx)
		return jsonResult(status)
	}
}

func handleMigrationAssess() server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		cfg, err := configloader.New().Load(".")
		if err != nil {
			return errorResult(fmt.Sprintf("loading config: %v", err)), nil
		}

		logger := mcpLogger()
		api := restapi.New(cfg.ServiceURL, cfg.APITimeout, logger)
		control := memoscli.New(cfg.MemosBin, logger)
		health := application.NewHealthService(api, control, logger)
		svc := application.NewMigrationService(api, control, health, cfg, logger)

		readiness, err := svc.AssessReadiness(ctx)
		if err != nil {
			return errorResult(fmt.Sprintf("assessment failed: %v", err)), nil
		}
		return jsonResult(readiness)
	}
}

func handleEndpoints() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		cfg, err := configloader.New().Load(".")
		if err != nil {
			return errorResult(fmt.Sprintf("loading config: %v", err)), nil
		}
		rules, err := rulesloader.New().Load(".")
		if err != nil {
			return errorResult(fmt.Sprintf("loading rules: %v", err)), nil
		}

		logger := mcpLogger()
		prober := restapi.New(cfg.ServiceURL, cfg.APITimeout, logger)
		svc := application.NewEndpointService(prober, cfg.ServiceURL, rules, logger)

		deepScan, _ := request.GetArguments()["deep_scan"].(bool)
		report, err := svc.Discover(ctx, deepScan)
		if err != nil {
			return errorResult(fmt.Sprintf("discovery failed: %v", err)), nil
		}
		return jsonResult(report)
	}
}

// jsonResult marshals v to JSON and returns it as a text content result.
func jsonResult(v interface{}) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

// errorResult returns a tool result that indicates an error occurred.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
