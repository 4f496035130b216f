package session

import "mcxdesk/internal/models"

// history accumulates the records of every changed snapshot. With a
// positive capacity the oldest rows are dropped once it is full; total keeps
// counting every row ever appended.
type history struct {
	rows     []models.OptionRecord
	capacity int
	total    int
}

func newHistory(capacity int) *history {
	if capacity < 0 {
		capacity = 0
	}
	return &history{capacity: capacity}
}

func (h *history) append(records []models.OptionRecord) {
	h.rows = append(h.rows, records...)
	h.total += len(records)

	if h.capacity > 0 && len(h.rows) > h.capacity {
		drop := len(h.rows) - h.capacity
		if cap(h.rows) > 2*h.capacity {
			kept := make([]models.OptionRecord, h.capacity, h.capacity+h.capacity/2)
			copy(kept, h.rows[drop:])
			h.rows = kept
		} else {
			h.rows = h.rows[drop:]
		}
	}
}

func (h *history) len() int {
	return len(h.rows)
}

// head returns a copy of the first n retained rows, oldest first. n <= 0
// returns everything.
func (h *history) head(n int) []models.OptionRecord {
	if n <= 0 || n > len(h.rows) {
		n = len(h.rows)
	}
	out := make([]models.OptionRecord, n)
	copy(out, h.rows[:n])
	return out
}
