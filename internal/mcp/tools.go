package mcp

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/activity"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/expansion"
	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/view"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type tools struct {
	svc      Services
	sessions *sessionViews
}

func registerTools(server *sdkmcp.Server, svc Services, sessions *sessionViews) {
	t := &tools{svc: svc, sessions: sessions}

	// Dataset
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_coverage_tree",
		Description: "Get the Team → Class → Method coverage tree filtered by search term and annotation mode, with summaries recomputed over the surviving methods",
	}, t.getCoverageTree)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "refresh_dataset",
		Description: "Reload the coverage dataset from the store; views pick up the new version on their next render",
	}, t.refreshDataset)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "ingest_test_methods",
		Description: "Store test methods reported by a repository scan; existing methods are updated in place",
	}, t.ingestTestMethods)

	// Views
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "open_view",
		Description: "Open a dashboard view, restoring its saved expansion state when the ID is known",
	}, t.openView)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "search_view",
		Description: "Type a search term into a view; it is applied after the debounce delay unless apply_now is set",
	}, t.searchView)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "set_annotation_mode",
		Description: "Filter a view by annotation state; applies immediately",
	}, t.setAnnotationMode)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "toggle_team",
		Description: "Expand or collapse a team in a view",
	}, t.toggleTeam)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "toggle_class",
		Description: "Expand or collapse a test class in a view",
	}, t.toggleClass)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "set_all_expanded",
		Description: "Expand every visible team and class of a view, or collapse everything",
	}, t.setAllExpanded)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_view",
		Description: "Render a view: its filtered tree, search state, annotation mode and expansion keys",
	}, t.getView)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "close_view",
		Description: "Close a view; its pending search is dropped and its expansion state is saved",
	}, t.closeView)

	// Activity
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_recent_activity",
		Description: "List recent ingests, refreshes and view events, newest first",
	}, t.getRecentActivity)
}

func (t *tools) getCoverageTree(ctx context.Context, _ *sdkmcp.CallToolRequest, in GetCoverageTreeParams) (*sdkmcp.CallToolResult, any, error) {
	mode, err := coverage.ParseAnnotationMode(in.AnnotationMode)
	if err != nil {
		return errorResult(err), nil, nil
	}
	tree, err := t.svc.Dataset.Query(ctx, coverage.Filter{Search: in.Search, Mode: mode}, in.Limit)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(tree), nil, nil
}

func (t *tools) refreshDataset(ctx context.Context, _ *sdkmcp.CallToolRequest, _ RefreshDatasetParams) (*sdkmcp.CallToolResult, any, error) {
	status, err := t.svc.Dataset.Refresh(ctx)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(status), nil, nil
}

func (t *tools) ingestTestMethods(ctx context.Context, _ *sdkmcp.CallToolRequest, in IngestTestMethodsParams) (*sdkmcp.CallToolResult, any, error) {
	result, err := t.svc.Methods.Ingest(ctx, in.Methods)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(result), nil, nil
}

func (t *tools) openView(ctx context.Context, req *sdkmcp.CallToolRequest, in OpenViewParams) (*sdkmcp.CallToolResult, any, error) {
	info, err := t.svc.Views.Open(ctx, view.OpenRequest{ID: viewID(ctx, in.ViewID)})
	if err != nil {
		return errorResult(err), nil, nil
	}
	t.sessions.track(ctx, req.Session, info.ID)
	return jsonResult(info), nil, nil
}

func (t *tools) searchView(ctx context.Context, _ *sdkmcp.CallToolRequest, in SearchViewParams) (*sdkmcp.CallToolResult, any, error) {
	id := viewID(ctx, in.ViewID)
	state, err := t.svc.Views.Search(ctx, id, in.Term)
	if err != nil {
		return errorResult(err), nil, nil
	}
	if in.ApplyNow {
		if state, err = t.svc.Views.FlushSearch(ctx, id); err != nil {
			return errorResult(err), nil, nil
		}
	}
	return jsonResult(state), nil, nil
}

func (t *tools) setAnnotationMode(ctx context.Context, _ *sdkmcp.CallToolRequest, in SetAnnotationModeParams) (*sdkmcp.CallToolResult, any, error) {
	id := viewID(ctx, in.ViewID)
	mode, err := t.svc.Views.SetAnnotationMode(ctx, id, in.Mode)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(AnnotationModeResult{ViewID: id, Mode: mode}), nil, nil
}

func (t *tools) toggleTeam(ctx context.Context, _ *sdkmcp.CallToolRequest, in ToggleTeamParams) (*sdkmcp.CallToolResult, any, error) {
	expanded, err := t.svc.Views.ToggleTeam(ctx, viewID(ctx, in.ViewID), in.TeamName)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(ToggleResult{Key: expansion.TeamKey(in.TeamName), Expanded: expanded}), nil, nil
}

func (t *tools) toggleClass(ctx context.Context, _ *sdkmcp.CallToolRequest, in ToggleClassParams) (*sdkmcp.CallToolResult, any, error) {
	expanded, err := t.svc.Views.ToggleClass(ctx, viewID(ctx, in.ViewID), in.TeamName, in.Repository, in.ClassName)
	if err != nil {
		return errorResult(err), nil, nil
	}
	key := expansion.ClassKey(in.TeamName, in.Repository, in.ClassName)
	return jsonResult(ToggleResult{Key: key, Expanded: expanded}), nil, nil
}

func (t *tools) setAllExpanded(ctx context.Context, _ *sdkmcp.CallToolRequest, in SetAllExpandedParams) (*sdkmcp.CallToolResult, any, error) {
	keys, err := t.svc.Views.SetAllExpanded(ctx, viewID(ctx, in.ViewID), in.Expanded)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(keys), nil, nil
}

func (t *tools) getView(ctx context.Context, _ *sdkmcp.CallToolRequest, in ViewParams) (*sdkmcp.CallToolResult, any, error) {
	render, err := t.svc.Views.Render(ctx, viewID(ctx, in.ViewID))
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(render), nil, nil
}

func (t *tools) closeView(ctx context.Context, _ *sdkmcp.CallToolRequest, in ViewParams) (*sdkmcp.CallToolResult, any, error) {
	id := viewID(ctx, in.ViewID)
	if err := t.svc.Views.Close(ctx, id); err != nil {
		return errorResult(err), nil, nil
	}
	t.sessions.forget(id)
	return jsonResult(CloseViewResult{ViewID: id, Closed: true}), nil, nil
}

func (t *tools) getRecentActivity(ctx context.Context, _ *sdkmcp.CallToolRequest, in GetRecentActivityParams) (*sdkmcp.CallToolResult, any, error) {
	opts := activity.ListActivityOptions{Limit: in.Limit, Offset: in.Offset}
	if in.ViewID != "" {
		opts.ViewID = &in.ViewID
	}
	if in.Type != "" {
		typ := activity.ActivityType(in.Type)
		opts.ActivityType = &typ
	}
	entries, err := t.svc.Activity.GetRecentActivity(ctx, opts)
	if err != nil {
		return errorResult(err), nil, nil
	}
	if entries == nil {
		entries = []activity.ActivityEntry{}
	}
	return jsonResult(entries), nil, nil
}

// viewID falls back to the MCP session ID so that a client with one view
// per session never has to pass it.
func viewID(ctx context.Context, id string) string {
	if id != "" {
		return id
	}
	return getSessionID(ctx)
}

func jsonResult(v any) *sdkmcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}

func errorResult(err error) *sdkmcp.CallToolResult {
	apiErr := MapError(err)
	data, merr := json.Marshal(apiErr)
	if merr != nil {
		data = []byte(apiErr.Error())
	}
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}
