// Package queue holds the ordered set of files waiting for conversion.
package queue

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/aliskhannn/jpg-converter/internal/model"
	"github.com/aliskhannn/jpg-converter/internal/naming"
)

var ErrItemNotFound = errors.New("queue item not found")

// previewStore defines the interface for transient preview resources.
type previewStore interface {
	Acquire(data []byte, contentType string) string
	Release(handle string)
}

// Queue is an ordered mapping of items keyed by id. Insertion order is
// processing order. Queue is not safe for concurrent use.
type Queue struct {
	order    []uuid.UUID
	items    map[uuid.UUID]*model.QueueItem
	previews previewStore
	now      func() time.Time
}

// New creates an empty Queue whose items acquire previews from ps.
func New(ps previewStore) *Queue {
	return &Queue{
		items:    make(map[uuid.UUID]*model.QueueItem),
		previews: ps,
		now:      time.Now,
	}
}

// Add enqueues files in order, giving each a unique display name.
// SVG files get their own preview resource; other formats share the
// static placeholder.
func (q *Queue) Add(mode model.Mode, files []model.SourceFile) []model.QueueItem {
	candidates := make([]string, 0, len(files))
	for _, f := range files {
		candidates = append(candidates, f.Name)
	}
	names := naming.ResolveAll(candidates, q.names())

	added := make([]model.QueueItem, 0, len(files))
	for i, f := range files {
		name := names[i]

		preview := model.PlaceholderPreview
		if mode == model.ModeSVG {
			preview = q.previews.Acquire(f.Data, "image/svg+xml")
		}

		item := &model.QueueItem{
			ID:          uuid.New(),
			Source:      f,
			DisplayName: name,
			Status:      model.StatusPending,
			Preview:     preview,
			AddedAt:     q.now(),
		}

		q.order = append(q.order, item.ID)
		q.items[item.ID] = item
		added = append(added, *item)
	}

	return added
}

// Get returns a copy of the item with the given id.
func (q *Queue) Get(id uuid.UUID) (model.QueueItem, error) {
	item, ok := q.items[id]
	if !ok {
		return model.QueueItem{}, ErrItemNotFound
	}
	return *item, nil
}

// Remove deletes an item and releases its preview resource.
func (q *Queue) Remove(id uuid.UUID) error {
	item, ok := q.items[id]
	if !ok {
		return ErrItemNotFound
	}

	q.release(item)
	delete(q.items, id)

	for i, oid := range q.order {
		if oid == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}

	return nil
}

// Clear removes every item and releases all preview resources.
// It returns the number of removed items.
func (q *Queue) Clear() int {
	n := len(q.order)
	for _, id := range q.order {
		q.release(q.items[id])
	}

	q.order = nil
	q.items = make(map[uuid.UUID]*model.QueueItem)

	return n
}

// Snapshot returns copies of all items in processing order.
func (q *Queue) Snapshot() []model.QueueItem {
	out := make([]model.QueueItem, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, *q.items[id])
	}
	return out
}

// SetStatus overwrites an item's status and returns the previous one.
// ok is false if the item is no longer queued.
func (q *Queue) SetStatus(id uuid.UUID, status model.Status) (prev model.Status, ok bool) {
	item, ok := q.items[id]
	if !ok {
		return "", false
	}
	prev = item.Status
	item.Status = status
	return prev, true
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	return len(q.order)
}

func (q *Queue) names() map[string]struct{} {
	inUse := make(map[string]struct{}, len(q.items))
	for _, item := range q.items {
		inUse[item.DisplayName] = struct{}{}
	}
	return inUse
}

func (q *Queue) release(item *model.QueueItem) {
	if item.Preview != "" && item.Preview != model.PlaceholderPreview {
		q.previews.Release(item.Preview)
	}
}
