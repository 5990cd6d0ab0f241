package graph

import (
	"context"
	"strings"

	"github.com/siherrmann/docgraph/helper"
	"github.com/siherrmann/docgraph/model"
)

// EdgeSource loads graph data one hop at a time. Implemented by the
// database graph handler; kept narrow so traversal stays testable without
// a database.
type EdgeSource interface {
	EdgesTouching(ctx context.Context, names []string) ([]*model.GraphEdge, error)
	VerticesByName(ctx context.Context, names []string) ([]*model.Vertex, error)
}

// Traverse expands the graph breadth first from the seed names up to the
// given depth and returns all visited vertices together with the edges
// that connected them. Names are matched case-insensitively.
func Traverse(ctx context.Context, source EdgeSource, seeds []string, depth int) (*model.GraphContext, error) {
	visited := make(map[string]bool)
	frontier := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		key := strings.ToLower(seed)
		if !visited[key] {
			visited[key] = true
			frontier = append(frontier, seed)
		}
	}

	var edges []*model.GraphEdge
	edgeSeen := make(map[string]bool)

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		touching, err := source.EdgesTouching(ctx, frontier)
		if err != nil {
			return nil, helper.NewError("load edges", err)
		}

		var next []string
		for _, edge := range touching {
			key := strings.ToLower(edge.From) + "|" + edge.Type + "|" + strings.ToLower(edge.To)
			if !edgeSeen[key] {
				edgeSeen[key] = true
				edges = append(edges, edge)
			}
			for _, endpoint := range []string{edge.From, edge.To} {
				lower := strings.ToLower(endpoint)
				if !visited[lower] {
					visited[lower] = true
					next = append(next, endpoint)
				}
			}
		}
		frontier = next
	}

	names := make([]string, 0, len(visited))
	for name := range visited {
		names = append(names, name)
	}
	vertices, err := source.VerticesByName(ctx, names)
	if err != nil {
		return nil, helper.NewError("load vertices", err)
	}

	return &model.GraphContext{Entities: vertices, Relationships: edges}, nil
}
