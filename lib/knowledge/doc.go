// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package knowledge provides lexical retrieval over the self-help
// article corpus. Scoring is deliberately simple term matching, not
// relevance ranking: the corpus is tens of articles, queries are a
// handful of words, and the reasoning engine does the real judgment
// of whether an article fits. A term found anywhere in an article
// scores 1; a term found in the title scores 2 more. The top three
// non-zero articles are returned, ties kept in corpus order.
package knowledge
