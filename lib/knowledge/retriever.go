// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package knowledge

import (
	"sort"
	"strings"

	"github.com/upkeep-works/upkeep/lib/schema"
	"github.com/upkeep-works/upkeep/lib/store"
)

// maxResults caps how many articles a search returns. Three is
// enough for the reasoning engine to pick from without flooding the
// conversation.
const maxResults = 3

// Term scoring. A query term found anywhere in an article scores
// termScore; a term found specifically in the title scores
// titleBonus on top.
const (
	termScore  = 1
	titleBonus = 2
)

// Result is a single search hit.
type Result struct {
	// Article is the matched article.
	Article schema.KnowledgeArticle

	// Title is the display title (synthesized when the article has
	// none).
	Title string

	// Score is the lexical match score. Always positive — zero-score
	// articles are excluded.
	Score int
}

// Retriever searches the knowledge corpus.
type Retriever struct {
	records store.Store
}

// NewRetriever creates a retriever over the given record store.
func NewRetriever(records store.Store) *Retriever {
	return &Retriever{records: records}
}

// Search returns at most three articles scoring above zero for the
// query, ordered by descending score with ties in corpus order. A
// missing or empty corpus returns no results, never an error —
// self-help lookup is optional assistance, not a dependency.
func (retriever *Retriever) Search(query string) []Result {
	articles, err := store.ReadAllAs[schema.KnowledgeArticle](retriever.records, store.KindKnowledge)
	if err != nil {
		return nil
	}
	return Score(query, articles)
}

// Score ranks articles against a query. Exposed separately from
// [Retriever.Search] so callers with an already-loaded corpus (and
// tests) can score without a store.
func Score(query string, articles []schema.KnowledgeArticle) []Result {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil
	}

	var results []Result
	for _, article := range articles {
		title := strings.ToLower(article.DisplayTitle())
		haystack := strings.ToLower(article.Title) + "\n" +
			strings.ToLower(article.Body) + "\n" +
			strings.ToLower(strings.Join(article.Tags, "\n"))

		score := 0
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				score += termScore
				if strings.Contains(title, term) {
					score += titleBonus
				}
			}
		}
		if score > 0 {
			results = append(results, Result{
				Article: article,
				Title:   article.DisplayTitle(),
				Score:   score,
			})
		}
	}

	// Stable sort keeps equal-score articles in corpus order.
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}
