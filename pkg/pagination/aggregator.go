package pagination

// Aggregator folds the items of a traversal into one value.
// An aggregator serves exactly one traversal.
type Aggregator interface {
	// Consume folds one page of items, in upstream order.
	Consume(items []Item)
	// Finalize returns the accumulated value.
	Finalize() Result
}

// Result is the finalized value of a traversal.
type Result struct {
	// Items holds every item seen, in fetch order (collect-all only).
	Items []Item

	// Best is the item with the highest field value (max-by-field only).
	// It is nil when no examined item carried a numeric value for the field.
	Best Item
	// BestValue is the field value of Best.
	BestValue float64

	// Examined counts every item consumed.
	Examined int

	// Pages counts the pages fetched, set by the driver.
	Pages int
	// TotalCount is the total reported by the seed page, or -1.
	TotalCount int
}

// CollectAll keeps every item in page order and within-page order.
type CollectAll struct {
	items []Item
}

// NewCollectAll creates a collect-all aggregator.
func NewCollectAll() *CollectAll {
	return &CollectAll{items: []Item{}}
}

// Consume implements Aggregator.
func (a *CollectAll) Consume(items []Item) {
	a.items = append(a.items, items...)
}

// Finalize implements Aggregator.
func (a *CollectAll) Finalize() Result {
	return Result{
		Items:    a.items,
		Examined: len(a.items),
	}
}

// MaxByField keeps the item with the strictly greatest value of a numeric field.
// Ties keep the first item seen. Items without a numeric value are counted but
// never become the best.
type MaxByField struct {
	field    string
	best     Item
	bestVal  float64
	found    bool
	examined int
}

// NewMaxByField creates a max-by-field aggregator reading the given field.
func NewMaxByField(field string) *MaxByField {
	return &MaxByField{field: field}
}

// Field returns the compared field name.
func (a *MaxByField) Field() string {
	return a.field
}

// Consume implements Aggregator.
func (a *MaxByField) Consume(items []Item) {
	for _, item := range items {
		a.examined++

		v, ok := NumericField(item, a.field)
		if !ok {
			continue
		}
		if !a.found || v > a.bestVal {
			a.best = item
			a.bestVal = v
			a.found = true
		}
	}
}

// Finalize implements Aggregator.
func (a *MaxByField) Finalize() Result {
	return Result{
		Best:      a.best,
		BestValue: a.bestVal,
		Examined:  a.examined,
	}
}
