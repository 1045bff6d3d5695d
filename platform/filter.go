// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"slices"
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"

	"github.com/bureau-foundation/parley/protocol"
)

var initScoring sync.Once

// FilterConversations returns the conversations whose title fuzzy-
// matches pattern, best match first. Equal scores are ordered by most
// recent update. Matching is case-insensitive. A blank pattern returns
// the list unchanged.
func FilterConversations(conversations []protocol.Conversation, pattern string) []protocol.Conversation {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return slices.Clone(conversations)
	}
	initScoring.Do(func() { algo.Init("default") })

	patternRunes := []rune(strings.ToLower(pattern))
	slab := util.MakeSlab(100*1024, 2048)

	type scored struct {
		conversation protocol.Conversation
		score        int
	}
	var matches []scored
	for _, conversation := range conversations {
		text := conversation.Title
		if text == "" {
			text = conversation.ID
		}
		chars := util.ToChars([]byte(text))
		result, _ := algo.FuzzyMatchV2(false, true, true, &chars, patternRunes, false, slab)
		if result.Start < 0 {
			continue
		}
		matches = append(matches, scored{conversation: conversation, score: result.Score})
	}

	slices.SortStableFunc(matches, func(a, b scored) int {
		if a.score != b.score {
			return b.score - a.score
		}
		return strings.Compare(b.conversation.UpdatedAt, a.conversation.UpdatedAt)
	})

	result := make([]protocol.Conversation, len(matches))
	for index, match := range matches {
		result[index] = match.conversation
	}
	return result
}
