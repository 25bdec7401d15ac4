package datasource

import (
	"strconv"

	"github.com/idilsaglam/todolist/internal/model"
)

// collection is an insertion-ordered id -> item map with a monotonic id
// counter. It is not safe for concurrent use; owners hold their own lock.
type collection struct {
	nextID uint64
	order  []string
	byID   map[string]model.Item
}

func newCollection() *collection {
	return &collection{nextID: 1, byID: map[string]model.Item{}}
}

// add assigns the next id and appends the item.
func (c *collection) add(in model.CreateInput) model.Item {
	it := model.Item{
		ID:         strconv.FormatUint(c.nextID, 10),
		Text:       in.Text,
		IsComplete: in.IsComplete,
	}
	c.nextID++
	c.put(it)
	return it
}

// put inserts an item that already carries an id. Later duplicates are
// dropped, and the counter is moved past numeric ids so they are never
// handed out again.
func (c *collection) put(it model.Item) {
	if _, ok := c.byID[it.ID]; ok {
		return
	}
	c.byID[it.ID] = it
	c.order = append(c.order, it.ID)
	if n, ok := parseID(it.ID); ok && n >= c.nextID {
		c.nextID = n + 1
	}
}

func (c *collection) remove(id string) bool {
	if _, ok := c.byID[id]; !ok {
		return false
	}
	delete(c.byID, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// replace swaps the stored item in place, keeping its position.
func (c *collection) replace(it model.Item) bool {
	if _, ok := c.byID[it.ID]; !ok {
		return false
	}
	c.byID[it.ID] = it
	return true
}

func (c *collection) list() []model.Item {
	out := make([]model.Item, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// parseID accepts only canonical positive decimal ids, so "01" and "+1"
// never alias "1".
func parseID(id string) (uint64, bool) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 || strconv.FormatUint(n, 10) != id {
		return 0, false
	}
	return n, true
}
