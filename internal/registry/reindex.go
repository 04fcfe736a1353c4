package registry

import "github.com/jaekwang-park/weekplan/internal/model"

// Pure ordering transforms for one day partition. No I/O; the registry
// applies the result to its view and commits it to the backing store.

// moveBefore returns a copy of seq with the element at from relocated to
// sit at to's position, and every Order field rewritten to 0..n-1 by the
// new sequence position. Out-of-range indices return seq unchanged.
func moveBefore(seq []model.Task, from, to int) []model.Task {
	if from < 0 || from >= len(seq) || to < 0 || to >= len(seq) {
		return seq
	}

	out := make([]model.Task, 0, len(seq))
	out = append(out, seq[:from]...)
	out = append(out, seq[from+1:]...)

	moved := seq[from]
	out = append(out[:to], append([]model.Task{moved}, out[to:]...)...)

	return renumber(out)
}

// renumber returns a copy of seq with Order set to the sequence position,
// restoring the gap-free 0..n-1 invariant.
func renumber(seq []model.Task) []model.Task {
	out := make([]model.Task, len(seq))
	for i, t := range seq {
		t.Order = i
		out[i] = t
	}
	return out
}
