package engine

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/engramkit/engram/internal/embedding"
	"github.com/engramkit/engram/internal/model"
	"github.com/engramkit/engram/internal/salience"
	"github.com/engramkit/engram/internal/text"
	"github.com/engramkit/engram/internal/waypoint"
)

// SearchOptions are the caller-supplied filters for a query.
type SearchOptions struct {
	Sectors     []model.Sector // allow-list; empty = all
	MinSalience float64        // on the time-decayed value
	After       time.Time      // zero = unbounded
	Before      time.Time
	Debug       bool // attach per-signal score breakdowns
}

// intentRe strips politeness and intent phrasing from queries before
// tokenization.
var intentRe = regexp.MustCompile(`(?i)\b(?:can you|could you|would you|please|tell me about|tell me|what do you know about|do you know about|do you know|do you remember|remind me about|remind me|show me|search for|look up|find|what is|what's|who is|i want to know about)\b`)

// normalizeQuery strips intent phrases and tokenizes the remainder into
// ordered, de-duplicated keywords.
func normalizeQuery(query string) (cleaned string, keywords []string) {
	cleaned = strings.Join(strings.Fields(intentRe.ReplaceAllString(query, " ")), " ")
	if cleaned == "" {
		cleaned = strings.TrimSpace(query)
	}
	return cleaned, text.Tokenize(cleaned)
}

// sectorAffinity adjusts raw similarity for the relation between the
// query's sector and the memory's: same-sector pairs score highest,
// adjacent ones slightly lower, unrelated pairs lowest.
func sectorAffinity(query, mem model.Sector) float64 {
	if query == mem {
		return 1.0
	}
	related := map[model.Sector][]model.Sector{
		model.SectorSemantic:   {model.SectorReflective, model.SectorProcedural},
		model.SectorEpisodic:   {model.SectorEmotional, model.SectorReflective},
		model.SectorProcedural: {model.SectorSemantic},
		model.SectorEmotional:  {model.SectorEpisodic},
		model.SectorReflective: {model.SectorSemantic, model.SectorEpisodic},
	}
	for _, r := range related[query] {
		if r == mem {
			return 0.9
		}
	}
	return 0.8
}

// candidate accumulates one memory's retrieval state through the pipeline.
type candidate struct {
	mem      model.Memory
	sim      float64
	wpWeight float64
	path     []string
}

// Search runs the hybrid retrieval pipeline: normalize, classify, embed,
// candidate generation, optional graph expansion, multi-signal scoring,
// ranking, reinforcement and caching.
//
// Embedding failure never surfaces: the query falls back to the lexical
// path. Only a failing store read returns an error.
func (e *Engine) Search(ctx context.Context, query string, limit int, opts SearchOptions) ([]model.ScoredResult, error) {
	if limit <= 0 {
		limit = 10
	}
	cleaned, keywords := normalizeQuery(query)
	key := cacheKey(cleaned, limit, opts)
	if cached, ok := e.cache.Get(key); ok {
		return cached.([]model.ScoredResult), nil
	}

	queryCls := e.classifier.Classify(cleaned)

	var queryVec embedding.Vector
	if e.embedder != nil {
		vec, err := e.embedder.Embed(ctx, cleaned)
		if err != nil {
			e.obs.Log().Warn().Err(err).Msg("embedding unavailable, using lexical fallback")
		} else {
			queryVec = vec
		}
	}

	cands := make(map[string]*candidate)
	if queryVec == nil {
		if err := e.lexicalCandidates(ctx, cleaned, keywords, cands); err != nil {
			return nil, err
		}
	} else {
		if err := e.hybridCandidates(ctx, queryVec, keywords, limit, cands); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	e.applyFilters(cands, opts, now)

	results := e.score(cands, queryCls.Primary, keywords, now, opts.Debug)

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Memory.LastSeenAt.After(results[j].Memory.LastSeenAt)
	})
	if len(results) > limit {
		results = results[:limit]
	}

	e.reinforce(ctx, results)

	e.cache.SetWithTTL(key, results, int64(len(results)+1), e.cfg.CacheTTL)
	e.cache.Wait()

	return results, nil
}

// lexicalCandidates is the fallback path when no embedding is
// available: full-query and per-keyword substring search with a neutral
// similarity score.
func (e *Engine) lexicalCandidates(ctx context.Context, cleaned string, keywords []string, cands map[string]*candidate) error {
	add := func(mems []model.Memory) {
		for i := range mems {
			if _, ok := cands[mems[i].ID]; !ok {
				cands[mems[i].ID] = &candidate{mem: mems[i], sim: 0.5, path: []string{mems[i].ID}}
			}
		}
	}

	mems, err := e.store.SearchMemories(ctx, cleaned)
	if err != nil {
		return fmt.Errorf("lexical search: %w", err)
	}
	add(mems)

	for _, kw := range capKeywords(keywords, e.cfg.MaxKeywords) {
		mems, err := e.store.SearchMemories(ctx, kw)
		if err != nil {
			return fmt.Errorf("lexical search: %w", err)
		}
		add(mems)
	}
	return nil
}

// hybridCandidates unions vector search with keyword search, expanding
// through the waypoint graph when direct vector confidence is low.
func (e *Engine) hybridCandidates(ctx context.Context, queryVec embedding.Vector, keywords []string, limit int, cands map[string]*candidate) error {
	hits, err := e.store.SearchByEmbedding(ctx, queryVec, 4*limit, e.cfg.VectorMinScore)
	if err != nil {
		return fmt.Errorf("vector search: %w", err)
	}
	var simSum float64
	for _, h := range hits {
		simSum += h.Similarity
		cands[h.Memory.ID] = &candidate{mem: h.Memory, sim: h.Similarity, path: []string{h.Memory.ID}}
	}

	perKeyword := limit / 2
	if perKeyword < 1 {
		perKeyword = 1
	}
	for _, kw := range capKeywords(keywords, e.cfg.MaxKeywords) {
		mems, err := e.store.SearchMemories(ctx, kw)
		if err != nil {
			return fmt.Errorf("keyword search: %w", err)
		}
		if len(mems) > perKeyword {
			mems = mems[:perKeyword]
		}
		for i := range mems {
			if _, ok := cands[mems[i].ID]; !ok {
				sim := embedding.Cosine(queryVec, mems[i].Embedding)
				cands[mems[i].ID] = &candidate{mem: mems[i], sim: sim, path: []string{mems[i].ID}}
			}
		}
	}

	// Weakly matched queries still surface associatively linked
	// memories through bounded graph expansion.
	meanSim := 0.0
	if len(hits) > 0 {
		meanSim = simSum / float64(len(hits))
	}
	if meanSim >= e.cfg.LowConfidenceMean && len(hits) > 0 {
		return nil
	}

	waypoints, err := e.store.FetchAllWaypoints(ctx)
	if err != nil {
		return fmt.Errorf("fetch waypoints: %w", err)
	}
	if len(waypoints) == 0 {
		return nil
	}

	seeds := make([]string, 0, len(cands))
	for id := range cands {
		seeds = append(seeds, id)
	}
	sort.Strings(seeds)

	expHits := waypoint.NewGraph(waypoints).Expand(seeds, e.cfg.MaxExpansion)
	if len(expHits) == 0 {
		return nil
	}

	all, err := e.store.FetchAllMemories(ctx, true)
	if err != nil {
		return fmt.Errorf("fetch memories: %w", err)
	}
	byID := make(map[string]model.Memory, len(all))
	for i := range all {
		byID[all[i].ID] = all[i]
	}

	for _, h := range expHits {
		if _, ok := cands[h.ID]; ok {
			continue
		}
		mem, ok := byID[h.ID]
		if !ok {
			continue
		}
		cands[h.ID] = &candidate{
			mem:      mem,
			sim:      embedding.Cosine(queryVec, mem.Embedding),
			wpWeight: h.Weight,
			path:     h.Path,
		}
	}
	return nil
}

// applyFilters drops candidates the caller excluded, before any scoring
// work is spent on them.
func (e *Engine) applyFilters(cands map[string]*candidate, opts SearchOptions, now time.Time) {
	for id, c := range cands {
		if len(opts.Sectors) > 0 {
			allowed := false
			for _, s := range opts.Sectors {
				if c.mem.Sector == s {
					allowed = true
					break
				}
			}
			if !allowed {
				delete(cands, id)
				continue
			}
		}
		if opts.MinSalience > 0 && salience.Decayed(&c.mem, now) < opts.MinSalience {
			delete(cands, id)
			continue
		}
		if !opts.After.IsZero() && c.mem.LastSeenAt.Before(opts.After) {
			delete(cands, id)
			continue
		}
		if !opts.Before.IsZero() && c.mem.LastSeenAt.After(opts.Before) {
			delete(cands, id)
		}
	}
}

// maxKeywordBoost caps the lexical boost one memory can earn.
const maxKeywordBoost = 0.3

// score computes the hybrid score for every surviving candidate.
func (e *Engine) score(cands map[string]*candidate, querySector model.Sector, keywords []string, now time.Time, debug bool) []model.ScoredResult {
	results := make([]model.ScoredResult, 0, len(cands))
	for _, c := range cands {
		content := strings.ToLower(c.mem.Content)
		contentTokens := make(map[string]bool)
		for _, t := range text.Tokenize(c.mem.Content) {
			contentTokens[t] = true
		}

		var overlap float64
		if len(keywords) > 0 {
			matched := 0
			for _, kw := range keywords {
				if contentTokens[kw] {
					matched++
				}
			}
			overlap = float64(matched) / float64(len(keywords))
		}

		var keywordBoost float64
		for _, kw := range keywords {
			if strings.Contains(content, kw) {
				keywordBoost += 0.1
			}
		}
		var tagMatched int
		for _, tag := range c.mem.Tags {
			lower := strings.ToLower(tag)
			for _, kw := range keywords {
				if lower == kw {
					keywordBoost += 0.15
					tagMatched++
					break
				}
				if strings.Contains(lower, kw) || strings.Contains(kw, lower) {
					keywordBoost += 0.05
					tagMatched++
					break
				}
			}
		}
		if keywordBoost > maxKeywordBoost {
			keywordBoost = maxKeywordBoost
		}

		var tagRatio float64
		if len(c.mem.Tags) > 0 {
			tagRatio = float64(tagMatched) / float64(len(c.mem.Tags))
		}

		breakdown := model.ScoreBreakdown{
			Similarity:     c.sim * sectorAffinity(querySector, c.mem.Sector),
			TokenOverlap:   overlap,
			WaypointWeight: c.wpWeight,
			Recency:        salience.Decayed(&c.mem, now),
			TagMatch:       tagRatio,
			Keyword:        keywordBoost / maxKeywordBoost,
		}

		mem := c.mem
		res := model.ScoredResult{
			Memory: &mem,
			Score:  salience.Hybrid(e.cfg.Weights, breakdown),
			Path:   c.path,
		}
		if debug {
			b := breakdown
			res.Debug = &b
		}
		results = append(results, res)
	}
	return results
}

// reinforce applies the retrieval boost to every returned memory and
// propagates spillover along waypoints for graph-surfaced results.
// Store failures here are best-effort side effects: logged, never
// returned.
func (e *Engine) reinforce(ctx context.Context, results []model.ScoredResult) {
	var graph *waypoint.Graph
	var saliences map[string]float64

	for _, r := range results {
		if err := e.store.BoostSalience(ctx, r.Memory.ID, salience.RetrievalBoost); err != nil {
			e.obs.Log().Warn().Str("memory", r.Memory.ID).Err(err).Msg("reinforcement failed")
			continue
		}
		if len(r.Path) <= 1 {
			continue
		}

		if graph == nil {
			waypoints, err := e.store.FetchAllWaypoints(ctx)
			if err != nil {
				e.obs.Log().Warn().Err(err).Msg("propagation skipped: fetch waypoints failed")
				continue
			}
			graph = waypoint.NewGraph(waypoints)
			all, err := e.store.FetchAllMemories(ctx, true)
			if err != nil {
				e.obs.Log().Warn().Err(err).Msg("propagation skipped: fetch memories failed")
				graph = nil
				continue
			}
			saliences = make(map[string]float64, len(all))
			for i := range all {
				saliences[all[i].ID] = all[i].Salience
			}
		}

		src := salience.Reinforce(r.Memory.Salience)
		for _, adj := range graph.Propagate(r.Memory.ID, src, saliences) {
			delta := adj.Salience - saliences[adj.MemoryID]
			if err := e.store.BoostSalience(ctx, adj.MemoryID, delta); err != nil {
				e.obs.Log().Warn().Str("memory", adj.MemoryID).Err(err).Msg("propagated reinforcement failed")
			}
		}
	}
}

// ContextSnippet joins the top results' content as bullet lines, ready
// for prompt injection. Empty when nothing matches.
func (e *Engine) ContextSnippet(ctx context.Context, query string, limit int) (string, error) {
	results, err := e.Search(ctx, query, limit, SearchOptions{})
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, "- "+r.Memory.Content)
	}
	return strings.Join(lines, "\n"), nil
}

func capKeywords(keywords []string, max int) []string {
	if max > 0 && len(keywords) > max {
		return keywords[:max]
	}
	return keywords
}

func cacheKey(cleaned string, limit int, opts SearchOptions) string {
	secs := make([]string, 0, len(opts.Sectors))
	for _, s := range opts.Sectors {
		secs = append(secs, string(s))
	}
	sort.Strings(secs)
	return fmt.Sprintf("%s|%d|%s|%.3f|%d|%d|%t",
		strings.ToLower(cleaned), limit, strings.Join(secs, ","),
		opts.MinSalience, opts.After.Unix(), opts.Before.Unix(), opts.Debug)
}
