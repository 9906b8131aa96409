package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `testcraft serves test-annotation coverage as a Team → Class → Method tree.

Core concepts:
- Method: one test method reported by a repository scan. It is "annotated" when it carries a non-empty title.
- Coverage rate: annotated / total × 100 for a class, a team or the whole tree; 0 when there are no methods.
- Dataset: the loaded tree. It changes only on refresh_dataset; ingesting methods does not change it until then.
- View: a dashboard session with its own search term, annotation mode and expanded teams/classes.

Default workflow:
1) Load: refresh_dataset (or ingest_test_methods first when pushing a scan).
2) One-off questions: get_coverage_tree with search and annotation_mode. Summaries cover only the surviving methods.
3) Interactive browsing: open_view, then search_view / set_annotation_mode / toggle_team / toggle_class, and get_view to read.
   - search_view is debounced like a search box; pass apply_now=true to skip the wait.
   - Expansion state survives filtering and is saved when the view is closed.
4) close_view when done.

Docs:
- testcraft://docs/index
- testcraft://docs/filtering
- testcraft://docs/views
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "testcraft://docs/index",
		Name:        "docs_index",
		Title:       "testcraft docs index",
		Description: "Entry point for agent-facing docs.",
		Content: `# testcraft: Agent Docs Index

## Quick start

1. ` + "`refresh_dataset`" + ` to load the stored methods.
2. ` + "`get_coverage_tree`" + ` to read the whole tree or a filtered slice of it.
3. ` + "`open_view`" + ` when you want to browse interactively with debounced search.

## Docs

- ` + "`testcraft://docs/filtering`" + `: how search and annotation filters combine and how summaries are recomputed.
- ` + "`testcraft://docs/views`" + `: view lifecycle, debounced search and expansion state.

## Limitations

- The tree is grouped by team and class only; packages and repositories are class attributes, not levels.
- ` + "`limit`" + ` on ` + "`get_coverage_tree`" + ` reads the first N stored methods in ingestion order and skips the loaded dataset.
`,
	},
	{
		URI:         "testcraft://docs/filtering",
		Name:        "docs_filtering",
		Title:       "Filtering and summaries",
		Description: "Search semantics, annotation modes and recomputed summaries.",
		Content: `# Filtering and summaries

## Search

- Case-insensitive substring match against the method name, class name, repository and title.
- A method matches when any one of those fields contains the term.
- The empty term matches everything. Whitespace is matched literally.

## Annotation mode

- ` + "`all`" + `: no annotation filter.
- ` + "`annotated`" + `: methods with a non-empty title.
- ` + "`not-annotated`" + `: methods without a title. Every summary in this mode reports a 0% rate.

Search and mode are combined with AND.

## Summaries

- Classes with no surviving methods are dropped; teams with no surviving classes are dropped.
- Every summary is recomputed from the surviving methods. Rates are annotated / total × 100, never averages of child rates.
- Order of teams, classes and methods is the order of the unfiltered tree.
- A loaded dataset that matches nothing returns an empty ` + "`teams`" + ` list and a zero summary.
`,
	},
	{
		URI:         "testcraft://docs/views",
		Name:        "docs_views",
		Title:       "Views",
		Description: "View lifecycle, debounced search and expansion state.",
		Content: `# Views

- ` + "`open_view`" + ` with a known ID restores the teams and classes that were expanded when it was last closed.
- Without ` + "`view_id`" + `, view tools use the MCP session ID.
- ` + "`search_view`" + ` records the typed term right away (` + "`searchTerm`" + `) but applies it (` + "`appliedSearchTerm`" + `) only after 300ms without further typing. ` + "`isSearching`" + ` is true in between.
- ` + "`set_annotation_mode`" + ` applies immediately.
- Expansion keys: a team is keyed by its name, a class by ` + "`team.repository.class`" + `. Filtering never changes them.
- ` + "`get_view`" + ` reports ` + "`noMatches`" + ` when the dataset is loaded but nothing survives the filters.
- ` + "`close_view`" + ` drops a pending search; the term is never applied after close.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
