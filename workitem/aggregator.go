// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package workitem

import (
	"bytes"
	"slices"

	"github.com/bureau-foundation/parley/protocol"
)

// Counts holds the number of root items in each status bucket. Total
// is the sum of the buckets.
type Counts struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}

// Node is one item in the derived forest with its known children.
type Node struct {
	Item     protocol.WorkItem
	Children []Node
}

// Aggregator owns the work-item set of one feed.
//
// Construct with [New]. Not safe for concurrent use.
type Aggregator struct {
	items map[string]protocol.WorkItem

	// order lists ids newest first. Snapshot order is kept as sent;
	// newly seen ids are prepended.
	order []string

	stale bool
}

// New returns an empty aggregator.
func New() *Aggregator {
	return &Aggregator{items: make(map[string]protocol.WorkItem)}
}

// Apply routes a feed event. Events other than snapshots and updates
// are ignored.
func (aggregator *Aggregator) Apply(event protocol.FeedEvent) {
	switch event := event.(type) {
	case protocol.Snapshot:
		aggregator.ApplySnapshot(event.Items)
	case protocol.WorkItemUpdate:
		aggregator.Upsert(event.Item)
	}
}

// ApplySnapshot replaces the whole set with items and clears the stale
// mark. A duplicated id keeps its first position and its last record.
func (aggregator *Aggregator) ApplySnapshot(items []protocol.WorkItem) {
	aggregator.items = make(map[string]protocol.WorkItem, len(items))
	aggregator.order = make([]string, 0, len(items))
	for _, item := range items {
		if _, exists := aggregator.items[item.ID]; !exists {
			aggregator.order = append(aggregator.order, item.ID)
		}
		aggregator.items[item.ID] = cloneItem(item)
	}
	aggregator.stale = false
}

// Upsert replaces the item with the same id, keeping its position, or
// prepends it when the id is new. Items without an id are ignored.
func (aggregator *Aggregator) Upsert(item protocol.WorkItem) {
	if item.ID == "" {
		return
	}
	if _, exists := aggregator.items[item.ID]; !exists {
		aggregator.order = slices.Insert(aggregator.order, 0, item.ID)
	}
	aggregator.items[item.ID] = cloneItem(item)
}

// Get returns the item with the given id.
func (aggregator *Aggregator) Get(id string) (protocol.WorkItem, bool) {
	item, exists := aggregator.items[id]
	return item, exists
}

// Len returns the number of distinct ids in the set.
func (aggregator *Aggregator) Len() int {
	return len(aggregator.items)
}

// Items returns every item, newest first.
func (aggregator *Aggregator) Items() []protocol.WorkItem {
	return aggregator.collect(func(protocol.WorkItem) bool { return true })
}

// Roots returns the parentless items, newest first.
func (aggregator *Aggregator) Roots() []protocol.WorkItem {
	return aggregator.collect(func(item protocol.WorkItem) bool { return item.ParentID == "" })
}

// Children returns the items whose parent is parentID, newest first,
// whether or not the parent itself is present.
func (aggregator *Aggregator) Children(parentID string) []protocol.WorkItem {
	if parentID == "" {
		return nil
	}
	return aggregator.collect(func(item protocol.WorkItem) bool { return item.ParentID == parentID })
}

// Orphans returns the items whose parent has not been received.
func (aggregator *Aggregator) Orphans() []protocol.WorkItem {
	return aggregator.collect(func(item protocol.WorkItem) bool {
		if item.ParentID == "" {
			return false
		}
		_, parentKnown := aggregator.items[item.ParentID]
		return !parentKnown
	})
}

// Forest returns the roots with their descendants attached. Orphans
// are not included until their parent arrives.
func (aggregator *Aggregator) Forest() []Node {
	byParent := make(map[string][]protocol.WorkItem)
	var roots []protocol.WorkItem
	for _, id := range aggregator.order {
		item := aggregator.items[id]
		if item.ParentID == "" {
			roots = append(roots, item)
		} else {
			byParent[item.ParentID] = append(byParent[item.ParentID], item)
		}
	}

	var build func(item protocol.WorkItem) Node
	build = func(item protocol.WorkItem) Node {
		node := Node{Item: item}
		for _, child := range byParent[item.ID] {
			node.Children = append(node.Children, build(child))
		}
		return node
	}

	forest := make([]Node, 0, len(roots))
	for _, root := range roots {
		forest = append(forest, build(root))
	}
	return forest
}

// Counts partitions the root items by status.
func (aggregator *Aggregator) Counts() Counts {
	var counts Counts
	for _, item := range aggregator.items {
		if item.ParentID != "" {
			continue
		}
		switch item.Status {
		case protocol.WorkRunning:
			counts.Running++
		case protocol.WorkCompleted:
			counts.Completed++
		case protocol.WorkFailed:
			counts.Failed++
		case protocol.WorkCancelled:
			counts.Cancelled++
		default:
			counts.Pending++
		}
		counts.Total++
	}
	return counts
}

// ChildProgress returns how many children parentID has and how many of
// them have reached a terminal status, for displays like "3 of 5".
func (aggregator *Aggregator) ChildProgress(parentID string) (total, done int) {
	for _, item := range aggregator.Children(parentID) {
		total++
		if item.Status.Terminal() {
			done++
		}
	}
	return total, done
}

// MarkStale flags the set as possibly out of date. The feed calls it on
// disconnect; the next snapshot clears it.
func (aggregator *Aggregator) MarkStale() {
	aggregator.stale = true
}

// Stale reports whether the set predates the current feed connection.
func (aggregator *Aggregator) Stale() bool {
	return aggregator.stale
}

func (aggregator *Aggregator) collect(keep func(protocol.WorkItem) bool) []protocol.WorkItem {
	var result []protocol.WorkItem
	for _, id := range aggregator.order {
		if item := aggregator.items[id]; keep(item) {
			result = append(result, item)
		}
	}
	return result
}

// cloneItem breaks aliasing between the stored metadata and the
// caller's decode buffer.
func cloneItem(item protocol.WorkItem) protocol.WorkItem {
	if item.Metadata != nil {
		item.Metadata = bytes.Clone(item.Metadata)
	}
	return item
}
