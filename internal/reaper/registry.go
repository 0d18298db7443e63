package reaper

import (
	"context"
	"slices"

	"github.com/robalyx/apachemgr/internal/process"
	"github.com/robalyx/apachemgr/internal/status"
)

// Resolver looks up the memory usage of a process.
type Resolver interface {
	Resolve(ctx context.Context, pid int) (process.Info, bool)
}

// Registry is the set of killable workers of one poll, unique by pid and sorted
// ascending by pid. It is rebuilt for every poll and never modified.
type Registry []Killable

// Build merges the status page workers with the foreign processes of the process tree.
// Foreign processes whose pid is on the status page are dropped. Status rows sharing a
// pid (threaded servers) become one native worker carrying every row.
func Build(ctx context.Context, records []*status.Worker, foreign []process.Process, resolver Resolver) Registry {
	natives := make(map[int][]*status.Worker, len(records))
	order := make([]int, 0, len(records))

	for _, w := range records {
		if !w.HasPID || w.IsEmptySlot() {
			continue
		}

		if _, seen := natives[w.PID]; !seen {
			order = append(order, w.PID)
		}
		natives[w.PID] = append(natives[w.PID], w)
	}

	registry := make(Registry, 0, len(order)+len(foreign))

	for _, pid := range order {
		info, ok := resolver.Resolve(ctx, pid)
		rows := natives[pid]
		registry = append(registry, NewNative(rows[0], info, ok, rows[1:]...))
	}

	seenForeign := make(map[int]struct{}, len(foreign))
	for _, p := range foreign {
		if _, ok := natives[p.PID]; ok {
			continue
		}
		if _, ok := seenForeign[p.PID]; ok {
			continue
		}
		seenForeign[p.PID] = struct{}{}

		info, ok := resolver.Resolve(ctx, p.PID)
		registry = append(registry, NewForeign(p, info, ok))
	}

	slices.SortStableFunc(registry, func(a, b Killable) int {
		return a.PID() - b.PID()
	})

	return registry
}

// PIDs returns the pids of the registry in order.
func (r Registry) PIDs() []int {
	pids := make([]int, len(r))
	for i, w := range r {
		pids[i] = w.PID()
	}

	return pids
}
