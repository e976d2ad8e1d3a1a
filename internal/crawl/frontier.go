package crawl

// frontierItem is one pending URL with its BFS depth.
type frontierItem struct {
	url         string
	depth       int
	contactLike bool
}

// frontier is the ordered work queue of one run. Contact-like URLs go to
// the front so high-signal pages are visited before the budget runs out;
// everything else appends in BFS order.
type frontier struct {
	items []frontierItem
}

func (f *frontier) PushFront(item frontierItem) {
	f.items = append([]frontierItem{item}, f.items...)
}

func (f *frontier) PushBack(item frontierItem) {
	f.items = append(f.items, item)
}

func (f *frontier) Pop() (frontierItem, bool) {
	if len(f.items) == 0 {
		return frontierItem{}, false
	}
	item := f.items[0]
	f.items = f.items[1:]
	return item, true
}

// DropOrdinaryBack discards the last item when it is not contact-like,
// freeing a slot for a higher-priority insert. Reports whether a slot
// was freed.
func (f *frontier) DropOrdinaryBack() bool {
	n := len(f.items)
	if n == 0 || f.items[n-1].contactLike {
		return false
	}
	f.items = f.items[:n-1]
	return true
}

func (f *frontier) Len() int {
	return len(f.items)
}

// visitedSet tracks canonical URLs already fetched within one run. It is
// owned by exactly one run and discarded with it.
type visitedSet map[string]struct{}

// MarkIfNew records the URL and reports whether it was unseen.
func (v visitedSet) MarkIfNew(canonical string) bool {
	if canonical == "" {
		return false
	}
	if _, seen := v[canonical]; seen {
		return false
	}
	v[canonical] = struct{}{}
	return true
}

func (v visitedSet) Contains(canonical string) bool {
	_, seen := v[canonical]
	return seen
}
