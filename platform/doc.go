// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package platform is the request/response client for the agent
// platform's conversation storage: listing conversations, loading a
// conversation's message history, deleting a conversation, and
// full-text search.
//
// Every request carries the bearer credential from a secret.Buffer.
// Non-2xx responses with a JSON body become [*APIError]; use
// [IsAPIError] to branch on the HTTP status. The client performs no
// retries: its callers treat any failure as a generic fetch failure and
// degrade to an empty result or a blank session.
//
// [FilterConversations] ranks an already-fetched conversation list
// against a fuzzy pattern locally, without a round trip.
package platform
