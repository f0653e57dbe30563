package toolbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sentineld/agent/internal/agent"
	"github.com/sentineld/agent/internal/websearch"
	"github.com/sentineld/agent/pkg/models"
)

var webSearchSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"query": {"type": "string", "description": "Search query"},
		"result_count": {"type": "integer", "description": "Maximum number of results to return", "default": 5}
	},
	"required": ["query"]
}`)

var fetchSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"url": {"type": "string", "description": "URL to fetch and extract readable content from"}
	},
	"required": ["url"]
}`)

func webSearchTool(searcher *websearch.Searcher) agent.Tool {
	return agent.Tool{
		Name:        "web_search",
		Description: "Search the web and return a short list of titles, URLs, and snippets.",
		Parameters:  webSearchSchema,
		Handler: func(ctx context.Context, args map[string]any) (models.ToolResult, error) {
			query, _ := args["query"].(string)
			if query == "" {
				return models.Error("query is required"), nil
			}
			count := intArg(args, "result_count", 5)

			results, err := searcher.Search(ctx, query, count)
			if err != nil {
				return models.Error(err.Error()), nil
			}
			return models.Success(map[string]any{"results": results}), nil
		},
	}
}

func fetchTool(extractor *websearch.Extractor) agent.Tool {
	return agent.Tool{
		Name:        "fetch",
		Description: "Fetch a URL and return its main readable text content, rejecting requests to private or reserved network addresses.",
		Parameters:  fetchSchema,
		Handler: func(ctx context.Context, args map[string]any) (models.ToolResult, error) {
			rawURL, _ := args["url"].(string)
			if rawURL == "" {
				return models.Error("url is required"), nil
			}

			title, content, err := extractor.Extract(ctx, rawURL)
			if err != nil {
				return models.Error(fmt.Sprintf("fetch failed: %s", err.Error())), nil
			}
			return models.Success(map[string]any{"title": title, "content": content}), nil
		},
	}
}
