package status

import "strconv"

// ParseWorkers parses the worker table of a status document into one Worker per slot.
// Rows whose process identity cannot be read are dropped; a table left without rows
// does not qualify and the next candidate is tried.
func ParseWorkers(raw []byte, required []string) ([]*Worker, error) {
	var slots []*Worker

	err := scanTables(raw, required, func(table *Table) bool {
		slots = make([]*Worker, 0, len(table.Rows))

		for _, row := range table.Rows {
			if w, ok := rowWorker(row); ok {
				slots = append(slots, w)
			}
		}

		return len(slots) > 0
	})
	if err != nil {
		return nil, err
	}

	return slots, nil
}

// Workers drops the empty slots, keeping only records with a process behind them.
func Workers(slots []*Worker) []*Worker {
	workers := make([]*Worker, 0, len(slots))

	for _, w := range slots {
		if w.HasPID && !w.IsEmptySlot() {
			workers = append(workers, w)
		}
	}

	return workers
}

// rowWorker builds a Worker from a table row. A pid cell that holds something other
// than an integer, or a missing pid on a slot that is not open, rejects the row.
func rowWorker(row Row) (*Worker, bool) {
	raw := cell(row, ColumnPID)
	if !isAbsentPID(raw) {
		if _, err := strconv.Atoi(raw); err != nil {
			return nil, false
		}
	}

	w := NewWorker(row)
	if !w.HasPID && !w.IsEmptySlot() {
		return nil, false
	}

	return w, true
}
