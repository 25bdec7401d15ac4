package model

// Item is the domain model for a todo entry.
// ID is assigned by the data source and never changes afterwards.
type Item struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	IsComplete bool   `json:"isComplete"`
}

// CreateInput is the partial item accepted on creation. Zero values are the
// defaults, so the created item is exactly the input plus a fresh ID.
type CreateInput struct {
	Text       string `json:"text,omitempty" yaml:"text"`
	IsComplete bool   `json:"isComplete,omitempty" yaml:"isComplete"`
}

// Stats counts completed and pending items.
func Stats(items []Item) (done, pending int) {
	for _, it := range items {
		if it.IsComplete {
			done++
		} else {
			pending++
		}
	}
	return
}

// Find returns the item with the given id.
func Find(items []Item, id string) (Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
