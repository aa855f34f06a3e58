package prefix

// CellStack is the deque of pending cells of a range query.
//
// Items are stored in reverse so that the front is the end of the backing
// slice: PopFront is O(1) and PushFront of a block of k cells is O(k).
type CellStack struct {
	items []*Cell
}

// PushFront inserts block before the current front, keeping its order.
// block must already be sorted in ascending token order.
func (s *CellStack) PushFront(block []*Cell) {
	for i := len(block) - 1; i >= 0; i-- {
		s.items = append(s.items, block[i])
	}
}

// PopFront removes and returns the front cell, or nil if the stack is empty.
func (s *CellStack) PopFront() *Cell {
	n := len(s.items)
	if n == 0 {
		return nil
	}
	c := s.items[n-1]
	s.items[n-1] = nil
	s.items = s.items[:n-1]
	return c
}

// PeekFront returns the front cell without removing it.
func (s *CellStack) PeekFront() *Cell {
	if len(s.items) == 0 {
		return nil
	}
	return s.items[len(s.items)-1]
}

// Len returns the number of pending cells.
func (s *CellStack) Len() int { return len(s.items) }
