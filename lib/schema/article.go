// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "strings"

// displayTitleLimit is the length above which a synthesized title is
// truncated. Titles synthesized from the body keep the first 47
// characters plus an ellipsis marker when the first line exceeds 50.
const displayTitleLimit = 50

// KnowledgeArticle is a self-help guide in the read-only knowledge
// corpus. Articles are matched lexically against tenant queries; the
// top results are offered to the reasoning engine so it can walk the
// tenant through self-resolvable issues before dispatching anyone.
type KnowledgeArticle struct {
	// ID is the stable article identifier (e.g., "kb-dripping-tap").
	ID string `json:"id"`

	// Title is the article headline. Optional: legacy corpus entries
	// have only a body, and DisplayTitle synthesizes a headline from
	// the first body line.
	Title string `json:"title,omitempty"`

	// Body is the article text.
	Body string `json:"body"`

	// Tags are free-form topic labels included in lexical matching.
	Tags []string `json:"tags,omitempty"`
}

// DisplayTitle returns the article title, synthesizing one from the
// first line of the body when the title is absent. Synthesized titles
// longer than 50 characters are truncated to 47 plus "...".
func (article KnowledgeArticle) DisplayTitle() string {
	if article.Title != "" {
		return article.Title
	}
	firstLine, _, _ := strings.Cut(article.Body, "\n")
	firstLine = strings.TrimSpace(firstLine)
	if len(firstLine) > displayTitleLimit {
		return firstLine[:47] + "..."
	}
	return firstLine
}
