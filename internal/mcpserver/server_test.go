package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/testrack/internal/catalog"
	"github.com/starford/testrack/internal/testutil"
	"github.com/starford/testrack/internal/tracker"
)

const suiteYAML = `id: login
title: Login
scoped: true
duration:
  scheduled: {start: 2026-03-01, end: 2026-03-02}
  actual: {start: 2026-03-01, end: 2026-03-02}
`

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	root, store := testutil.TestWorkspace(t)
	testutil.WriteFile(t, root, "login/index.yaml", suiteYAML)
	testutil.WriteFile(t, root, "login/TC-1.testcase.yaml", "id: TC-1\ntitle: Password login\ntags: [smoke]\nscoped: true\nstatus: done\ncompletedDay: 2026-03-02\n")

	svc := tracker.NewService(store,
		tracker.WithCatalog(testutil.TestDB(t)),
		tracker.WithClock(func() time.Time { return time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC) }),
	)
	return New(svc, "test"), root
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"list_entities":        srv.listEntities,
		"get_entity":           srv.getEntity,
		"create_suite":         srv.createSuite,
		"create_case":          srv.createCase,
		"create_from_template": srv.createFromTemplate,
		"update_entity":        srv.updateEntity,
		"delete_entity":        srv.deleteEntity,
		"validate_entity":      srv.validateEntity,
		"lint_workspace":       srv.lintWorkspace,
		"suite_burndown":       srv.suiteBurndown,
		"get_related":          srv.getRelated,
		"link_entities":        srv.linkEntities,
		"unlink_entities":      srv.unlinkEntities,
		"sync_related":         srv.syncRelated,
		"search":               srv.search,
		"get_format_contract":  srv.getFormatContract,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decode(t *testing.T, r *mcp.CallToolResult, v any) {
	t.Helper()
	if r.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(r))
	}
	if err := json.Unmarshal([]byte(resultText(r)), v); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
}

func TestToolsRegistered(t *testing.T) {
	srv, _ := testServer(t)
	tools := srv.MCPServer().ListTools()
	for _, name := range []string{"list_entities", "create_case", "suite_burndown", "sync_related", "get_format_contract"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestCreateAndGetCase(t *testing.T) {
	srv, root := testServer(t)

	r := callTool(t, srv, "create_case", map[string]any{
		"id":     "TC-2",
		"title":  "Locked account",
		"dir":    "login",
		"fields": `{"status":"DOING","priority":"high"}`,
	})
	var created struct {
		Path     string   `json:"path"`
		Warnings []string `json:"warnings"`
	}
	decode(t, r, &created)
	if created.Path != "login/TC-2.testcase.yaml" {
		t.Errorf("path = %q", created.Path)
	}
	if len(created.Warnings) != 2 {
		t.Errorf("warnings = %v, want 2", created.Warnings)
	}
	if got := testutil.ReadFile(t, root, "login/TC-2.testcase.yaml"); !strings.Contains(got, "status: doing") {
		t.Errorf("file = %q", got)
	}

	r = callTool(t, srv, "get_entity", map[string]any{"id": "TC-2"})
	var detail struct {
		Testcase struct {
			Title string `json:"title"`
		} `json:"testcase"`
	}
	decode(t, r, &detail)
	if detail.Testcase.Title != "Locked account" {
		t.Errorf("title = %q", detail.Testcase.Title)
	}
}

func TestCreateCase_Duplicate(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "create_case", map[string]any{"id": "TC-1", "title": "again"})
	if !r.IsError {
		t.Fatal("expected error for duplicate id")
	}
	if !strings.HasPrefix(resultText(r), "resolution error:") {
		t.Errorf("error = %q", resultText(r))
	}
}

func TestCreateCase_BadFields(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "create_case", map[string]any{"id": "TC-2", "title": "x", "fields": "[1,2]"})
	if !r.IsError {
		t.Fatal("expected error for non-object fields")
	}
}

func TestGetEntityMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_entity", map[string]any{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing entity")
	}
}

func TestUpdateEntity(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "update_entity", map[string]any{"id": "TC-1", "patch": `{"status":"todo","completedDay":null}`})
	if r.IsError {
		t.Fatalf("update: %s", resultText(r))
	}

	r = callTool(t, srv, "update_entity", map[string]any{"id": "TC-1", "patch": `{"id":"TC-99"}`})
	if !r.IsError || !strings.HasPrefix(resultText(r), "validation error:") {
		t.Errorf("rename result = %q", resultText(r))
	}
}

func TestDeleteEntity_RequiresConfirm(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "delete_entity", map[string]any{"id": "TC-1"})
	if !r.IsError {
		t.Fatal("expected error without confirm")
	}

	r = callTool(t, srv, "delete_entity", map[string]any{"id": "TC-1", "confirm": true})
	var res tracker.DeleteResult
	decode(t, r, &res)
	if !strings.HasPrefix(res.TrashedTo, ".trash/") {
		t.Errorf("trashedTo = %q", res.TrashedTo)
	}
}

func TestListEntities_Filters(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "list_entities", map[string]any{
		"type":    "case",
		"filters": `{"tags":["smoke"],"testcaseStatus":["done"]}`,
	})
	var res tracker.ListResult
	decode(t, r, &res)
	if len(res.Items) != 1 || res.Items[0].ID != "TC-1" {
		t.Fatalf("items = %+v", res.Items)
	}
	if res.Meta.Matched != 1 {
		t.Errorf("meta = %+v", res.Meta)
	}

	r = callTool(t, srv, "list_entities", map[string]any{"filters": "{"})
	if !r.IsError {
		t.Error("expected error for malformed filters")
	}
}

func TestValidateEntity(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "validate_entity", map[string]any{
		"type":    "case",
		"payload": `{"id":"TC-5","title":"Draft","status":"blocked"}`,
	})
	var res tracker.CheckResult
	decode(t, r, &res)
	if res.Valid {
		t.Error("expected invalid payload")
	}
	if len(res.Corrections) != 1 {
		t.Errorf("corrections = %v", res.Corrections)
	}
}

func TestSuiteBurndownTool(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "suite_burndown", map[string]any{"id": "login"})
	text := resultText(r)
	if r.IsError || !strings.Contains(text, `"total": 1`) {
		t.Errorf("burndown = %s", text)
	}

	r = callTool(t, srv, "suite_burndown", map[string]any{"id": "TC-1"})
	if !r.IsError {
		t.Error("expected error for a case id")
	}
}

func TestLinkAndSync(t *testing.T) {
	srv, _ := testServer(t)
	_ = callTool(t, srv, "create_case", map[string]any{"id": "TC-2", "title": "Other", "dir": "login"})

	r := callTool(t, srv, "link_entities", map[string]any{"a": "TC-1", "b": "TC-2"})
	var link tracker.LinkResult
	decode(t, r, &link)
	if len(link.Changed) != 2 {
		t.Errorf("changed = %v", link.Changed)
	}

	r = callTool(t, srv, "sync_related", map[string]any{"dryRun": true})
	var report tracker.SyncReport
	decode(t, r, &report)
	if len(report.Changes) != 0 {
		t.Errorf("changes = %+v", report.Changes)
	}

	r = callTool(t, srv, "get_related", map[string]any{"id": "TC-2"})
	if !strings.Contains(resultText(r), "TC-1") {
		t.Errorf("related = %s", resultText(r))
	}
}

func TestLintWorkspace(t *testing.T) {
	srv, root := testServer(t)
	testutil.WriteFile(t, root, "bad.testcase.yaml", "id: bad\n")

	r := callTool(t, srv, "lint_workspace", nil)
	var report tracker.LintReport
	decode(t, r, &report)
	if report.Errors != 1 {
		t.Errorf("errors = %d, want 1", report.Errors)
	}
}

func TestSearchTool(t *testing.T) {
	srv, _ := testServer(t)
	_ = callTool(t, srv, "create_case", map[string]any{
		"id":     "TC-3",
		"title":  "Biometric unlock",
		"fields": `{"operations":["touch the fingerprint sensor"]}`,
	})
	r := callTool(t, srv, "search", map[string]any{"query": "fingerprint"})
	if !strings.Contains(resultText(r), "TC-3") {
		t.Errorf("search = %s", resultText(r))
	}

	_ = callTool(t, srv, "create_case", map[string]any{
		"id":     "TC-4",
		"title":  "Fingerprint fallback",
		"fields": `{"related":["TC-3"]}`,
	})
	r = callTool(t, srv, "search", map[string]any{"query": "fingerprint", "related": "TC-3"})
	var hits []catalog.SearchResult
	decode(t, r, &hits)
	if len(hits) != 1 || hits[0].ID != "TC-4" {
		t.Errorf("related search = %+v", hits)
	}
}

func TestFormatContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_format_contract", nil)
	if !strings.Contains(resultText(r), "index.yaml") {
		t.Error("contract does not describe suite files")
	}

	contents, err := srv.readFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d", len(contents))
	}
}
