package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/edgard/scribebot/internal/database"
	"github.com/edgard/scribebot/internal/gemini"
	"github.com/edgard/scribebot/internal/search"
)

// SearchQuery joins command arguments into a query.
func SearchQuery(args []string) string {
	return strings.Join(strings.Fields(strings.Join(args, " ")), " ")
}

// HandleSearch runs a web search for query, summarizes the results, stores
// the search with its top links and replies with the summary. An empty query
// gets the usage message and nothing else.
func (p *Pipeline) HandleSearch(ctx context.Context, m Messenger, env Envelope, query string) {
	log := p.log.With("kind", "search", "chat_id", env.ChatID, "user_id", env.UserID, "message_id", env.MessageID)

	query = strings.TrimSpace(query)
	if query == "" {
		p.reply(ctx, log, m, env.ChatID, p.deps.Messages.SearchUsage)
		return
	}

	p.ensureUser(ctx, log, env)
	p.reply(ctx, log, m, env.ChatID, p.deps.Messages.Searching)
	m.Typing(ctx, env.ChatID)

	results := p.deps.Search.Search(ctx, query)
	log.InfoContext(ctx, "Search finished", "results", len(results))

	hits := make([]gemini.SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, gemini.SearchHit{Title: r.Title, Link: r.Link, Snippet: r.Snippet})
	}

	summary, err := p.deps.Gemini.Summarize(ctx, query, hits)
	if err != nil {
		log.WarnContext(ctx, "Summary unavailable", "error", err)
		summary = p.deps.Messages.NoSummary
	}

	p.reply(ctx, log, m, env.ChatID, p.deps.Messages.SearchComplete)

	record := &database.SearchRecord{
		UserID:    env.UserID,
		ChatID:    env.ChatID,
		MessageID: p.recordKey(env),
		Query:     query,
		Summary:   summary,
		Links:     search.Links(results, p.deps.MaxLinks),
		Timestamp: time.Now().UTC(),
	}
	p.persist(ctx, log, "search record", func(ctx context.Context) (bool, error) {
		return p.deps.Store.InsertSearchRecord(ctx, record)
	})

	p.reply(ctx, log, m, env.ChatID, formatOne(p.deps.Messages.SearchSummary, summary))
}
