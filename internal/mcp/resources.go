package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

const recentCommitsLimit = 20

func (h *handlers) recentCommits(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	commits, err := h.commits.RecentCommits(ctx, recentCommitsLimit)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(commits)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
