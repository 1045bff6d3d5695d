// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package workitem aggregates the work-item feed into a queryable set.
//
// The [Aggregator] stores a flat, ordered set of items keyed by id. A
// snapshot replaces the set; an update upserts one item, replacing it
// in place when known and prepending it otherwise. The tree is never
// stored: [Aggregator.Roots], [Aggregator.Children], and
// [Aggregator.Forest] derive it from ParentID on every read, so a
// child that names a parent not yet received is simply held until the
// parent arrives.
//
// [Aggregator.Counts] partitions parentless items by status. A status
// outside the known set is counted as pending rather than dropped.
package workitem
