// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes testrack tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/testrack/internal/apperr"
	"github.com/starford/testrack/internal/catalog"
	"github.com/starford/testrack/internal/filter"
	"github.com/starford/testrack/internal/models"
	"github.com/starford/testrack/internal/tracker"
)

const formatURI = "testrack://format"

// Server wraps the MCP server with testrack tools.
type Server struct {
	mcp *server.MCPServer
	svc *tracker.Service
}

// New creates a new MCP server with all testrack tools registered.
func New(svc *tracker.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"testrack",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_entities",
		mcp.WithDescription("List suites and test cases, optionally narrowed by type, directory and filters. "+
			"Each item carries the reasons it matched."),
		mcp.WithString("type", mcp.Enum("suite", "case"), mcp.Description("Entity type (empty for both)")),
		mcp.WithString("dir", mcp.Description("Workspace-relative directory to list (empty for all)")),
		mcp.WithString("filters", mcp.Description(`JSON object, e.g. {"tags":["smoke"],"testcaseStatus":["done"],"date":{"operator":"onOrAfter","from":"2026-01-01"}}`)),
	), s.listEntities)

	s.mcp.AddTool(mcp.NewTool("get_entity",
		mcp.WithDescription("Read a suite or case by id, with its resolved related entities and back-references."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
	), s.getEntity)

	s.mcp.AddTool(mcp.NewTool("create_suite",
		mcp.WithDescription("Create a suite at <dir>/<id>/index.yaml. Omitted fields take defaults; "+
			"read the format contract first via get_format_contract or the testrack://format resource."),
		mcp.WithString("id", mcp.Required(), mcp.Description("New suite id ([A-Za-z0-9_-]+)")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Suite title")),
		mcp.WithString("dir", mcp.Description("Parent directory (empty for the workspace root)")),
		mcp.WithString("fields", mcp.Description("JSON object with any other suite fields")),
	), s.createSuite)

	s.mcp.AddTool(mcp.NewTool("create_case",
		mcp.WithDescription("Create a test case at <dir>/<id>.testcase.yaml. Omitted fields take defaults."),
		mcp.WithString("id", mcp.Required(), mcp.Description("New case id ([A-Za-z0-9_-]+)")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Case title")),
		mcp.WithString("dir", mcp.Description("Directory for the case file (usually a suite directory)")),
		mcp.WithString("fields", mcp.Description("JSON object with any other case fields")),
	), s.createCase)

	s.mcp.AddTool(mcp.NewTool("create_from_template",
		mcp.WithDescription("Copy an existing suite or case under a new id and title, resetting execution state."),
		mcp.WithString("sourceId", mcp.Required(), mcp.Description("Id of the entity to copy")),
		mcp.WithString("id", mcp.Required(), mcp.Description("New id")),
		mcp.WithString("title", mcp.Required(), mcp.Description("New title")),
		mcp.WithString("dir", mcp.Description("Target directory (empty to place the copy next to its source)")),
	), s.createFromTemplate)

	s.mcp.AddTool(mcp.NewTool("update_entity",
		mcp.WithDescription("Merge a partial update into an entity. Top-level keys replace; null clears. The id cannot change."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
		mcp.WithString("patch", mcp.Required(), mcp.Description("JSON object of fields to replace")),
	), s.updateEntity)

	s.mcp.AddTool(mcp.NewTool("delete_entity",
		mcp.WithDescription("Delete an entity file. Requires confirm=true. Files go to .trash unless hard=true."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
		mcp.WithBoolean("confirm", mcp.Description("Must be true")),
		mcp.WithBoolean("hard", mcp.Description("Remove permanently instead of moving to .trash")),
	), s.deleteEntity)

	s.mcp.AddTool(mcp.NewTool("validate_entity",
		mcp.WithDescription("Validate a payload without writing it and preview its normalized form."),
		mcp.WithString("type", mcp.Required(), mcp.Enum("suite", "case"), mcp.Description("Entity type")),
		mcp.WithString("payload", mcp.Required(), mcp.Description("JSON object to check")),
	), s.validateEntity)

	s.mcp.AddTool(mcp.NewTool("lint_workspace",
		mcp.WithDescription("Strictly validate every file and report duplicate ids and dangling related ids."),
	), s.lintWorkspace)

	s.mcp.AddTool(mcp.NewTool("suite_burndown",
		mcp.WithDescription("Planned and actual burndown plus status summary for a suite's scoped cases."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Suite id")),
	), s.suiteBurndown)

	s.mcp.AddTool(mcp.NewTool("get_related",
		mcp.WithDescription("Resolve an entity's related ids and list the entities that reference it."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entity id")),
	), s.getRelated)

	s.mcp.AddTool(mcp.NewTool("link_entities",
		mcp.WithDescription("Add each entity to the other's related list."),
		mcp.WithString("a", mcp.Required(), mcp.Description("First entity id")),
		mcp.WithString("b", mcp.Required(), mcp.Description("Second entity id")),
	), s.linkEntities)

	s.mcp.AddTool(mcp.NewTool("unlink_entities",
		mcp.WithDescription("Remove each entity from the other's related list."),
		mcp.WithString("a", mcp.Required(), mcp.Description("First entity id")),
		mcp.WithString("b", mcp.Required(), mcp.Description("Second entity id")),
	), s.unlinkEntities)

	s.mcp.AddTool(mcp.NewTool("sync_related",
		mcp.WithDescription("Make every resolvable related link bidirectional."),
		mcp.WithBoolean("dryRun", mcp.Description("Report the changes without writing")),
	), s.syncRelated)

	s.mcp.AddTool(mcp.NewTool("search",
		mcp.WithDescription("Full-text search over ids, titles, descriptions, steps and issues."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Words that must all appear")),
		mcp.WithString("type", mcp.Enum("suite", "case"), mcp.Description("Only return this entity type")),
		mcp.WithString("status", mcp.Description("Only return cases with this status")),
		mcp.WithString("related", mcp.Description("Only return entities whose related list names this id")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 20)")),
	), s.search)

	s.mcp.AddTool(mcp.NewTool("get_format_contract",
		mcp.WithDescription("Returns the canonical suite and test case file format. "+
			"Call this before creating or updating entities."),
	), s.getFormatContract)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Entity Format Contract",
			mcp.WithResourceDescription("Canonical YAML format of suites and test cases."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// Serve speaks MCP over in and out until ctx is cancelled or in reaches
// EOF. Transport errors are logged through logger.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer, logger *slog.Logger) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))
	return stdio.Listen(ctx, in, out)
}

// ChangeNotification is the method of the notification sent to connected
// clients when a workspace file changes on disk.
const ChangeNotification = "notifications/testrack/changed"

// NotifyChange tells connected clients that path was created, updated or
// deleted outside their own tool calls.
func (s *Server) NotifyChange(kind, path string) {
	s.mcp.SendNotificationToAllClients(ChangeNotification, map[string]any{
		"event": kind,
		"path":  path,
	})
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError renders err with its category so agents can tell a bad payload
// from a missing entity.
func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s error: %v", apperr.Category(err), err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// objectArg decodes an optional JSON-object string argument. A missing or
// empty argument yields nil.
func objectArg(req mcp.CallToolRequest, key string) (models.Record, error) {
	raw := req.GetString(key, "")
	if raw == "" {
		return nil, nil
	}
	var rec models.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("%s: invalid JSON object: %w", key, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%s: must be a JSON object", key)
	}
	return rec, nil
}

func (s *Server) listEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := tracker.ListOptions{
		Type: models.Kind(req.GetString("type", "")),
		Dir:  req.GetString("dir", ""),
	}
	if raw := req.GetString("filters", ""); raw != "" {
		var f filter.Filters
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("filters: invalid JSON: %v", err)), nil
		}
		opts.Filters = f
	}
	res, err := s.svc.List(ctx, opts)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

func (s *Server) getEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Get(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(d)
}

func createInput(req mcp.CallToolRequest) (tracker.CreateInput, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return tracker.CreateInput{}, err
	}
	title, err := req.RequireString("title")
	if err != nil {
		return tracker.CreateInput{}, err
	}
	fields, err := objectArg(req, "fields")
	if err != nil {
		return tracker.CreateInput{}, err
	}
	return tracker.CreateInput{Dir: req.GetString("dir", ""), ID: id, Title: title, Fields: fields}, nil
}

func (s *Server) createSuite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, err := createInput(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.CreateSuite(ctx, in)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

func (s *Server) createCase(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, err := createInput(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.CreateCase(ctx, in)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

func (s *Server) createFromTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in tracker.TemplateInput
	var err error
	if in.SourceID, err = req.RequireString("sourceId"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if in.ID, err = req.RequireString("id"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if in.Title, err = req.RequireString("title"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in.Dir = req.GetString("dir", "")
	res, err := s.svc.CreateFromTemplate(ctx, in)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

func (s *Server) updateEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	patch, err := objectArg(req, "patch")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Update(ctx, id, patch)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

func (s *Server) deleteEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Delete(ctx, id, tracker.DeleteOptions{
		Confirm: req.GetBool("confirm", false),
		Hard:    req.GetBool("hard", false),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

func (s *Server) validateEntity(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	payload, err := objectArg(req, "payload")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if payload == nil {
		return mcp.NewToolResultError("payload: required"), nil
	}
	res, err := s.svc.Check(models.Kind(kind), payload)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

func (s *Server) lintWorkspace(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.Lint(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(report)
}

func (s *Server) suiteBurndown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.svc.SuiteBurndown(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(report)
}

func (s *Server) getRelated(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rel, err := s.svc.Related(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(rel)
}

func pair(req mcp.CallToolRequest) (string, string, error) {
	a, err := req.RequireString("a")
	if err != nil {
		return "", "", err
	}
	b, err := req.RequireString("b")
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}

func (s *Server) linkEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, b, err := pair(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Link(ctx, a, b)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

func (s *Server) unlinkEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, b, err := pair(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Unlink(ctx, a, b)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

func (s *Server) syncRelated(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.SyncRelated(ctx, req.GetBool("dryRun", false))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(report)
}

func (s *Server) search(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, catalog.Query{
		Text:    query,
		Kind:    req.GetString("type", ""),
		Status:  req.GetString("status", ""),
		Related: req.GetString("related", ""),
		Limit:   req.GetInt("limit", 20),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(results)
}

func (s *Server) getFormatContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FormatContract), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     FormatContract,
		},
	}, nil
}
