package parser

import (
	"context"

	"github.com/JakeFAU/hiring-scanner/internal/board"
	"github.com/JakeFAU/hiring-scanner/internal/posting"
)

// Router dispatches each URL to the parser for its board kind.
type Router struct {
	greenhouse Parser
	lever      Parser
	generic    Parser
}

// NewRouter builds a Router from one parser per board kind.
func NewRouter(greenhouse, lever, generic Parser) *Router {
	return &Router{greenhouse: greenhouse, lever: lever, generic: generic}
}

// Parse classifies url and delegates.
func (r *Router) Parse(ctx context.Context, url string) []posting.JobPosting {
	kind, _ := board.Classify(url)
	switch kind {
	case board.Greenhouse:
		return r.greenhouse.Parse(ctx, url)
	case board.Lever:
		return r.lever.Parse(ctx, url)
	default:
		return r.generic.Parse(ctx, url)
	}
}
