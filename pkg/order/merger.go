// Package order implements a partial-order merger: it linearizes a set of
// adjacency hints ("a < b < c") declared by catorder and dominance
// statements into a single total order.
package order

import "github.com/pkg/errors"

// ErrConflict is returned when a hint contradicts an already-merged chain.
var ErrConflict = errors.New("order conflict")

// ErrIncomplete is returned when, after merging every hint, more than one
// chain remains.
var ErrIncomplete = errors.New("incomplete order")

// ErrMissing is returned when a declared item never appeared in any hint.
var ErrMissing = errors.New("missing in order")

// chain is a contiguous run of items in increasing order.
type chain struct{ items []string }

// Merger accumulates adjacency hints and produces a single total order.
type Merger struct {
	chains   []*chain
	declared map[string]bool
	// index remembers the position of every item within whichever chain
	// currently holds it, so contradiction checks are O(1) rather than
	// O(chain length).
	index map[string]int
	owner map[string]*chain
}

// NewMerger returns an empty merger.
func NewMerger() *Merger {
	return &Merger{declared: make(map[string]bool), index: make(map[string]int), owner: make(map[string]*chain)}
}

// Declare registers an item that must appear somewhere in the final order
// even if no hint ever mentions it adjacent to anything (used so a lone
// category/sensitivity declaration with no catorder/dominance entry can
// still be validated against MissingInOrder).
func (m *Merger) Declare(item string) { m.declared[item] = true }

// AddHint folds one adjacency sequence (a < b < c < ...) into the merger's
// chain set.
//
//   - If an endpoint of the hint matches an endpoint of an existing chain,
//     the hint extends that chain.
//   - If both ends of the hint match distinct chains' endpoints, the chains
//     splice together through the hint.
//   - If the hint requires two items to be adjacent that already exist
//     non-adjacently (or adjacently but in the opposite order) in some
//     chain, AddHint fails with ErrConflict.
func (m *Merger) AddHint(seq []string) error {
	if len(seq) == 0 {
		return nil
	}
	for _, item := range seq {
		m.declared[item] = true
	}
	if len(seq) == 1 {
		m.ensureChain(seq[0])
		return nil
	}

	for i := 0; i < len(seq)-1; i++ {
		if err := m.addAdjacency(seq[i], seq[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Merger) ensureChain(item string) *chain {
	if c, ok := m.owner[item]; ok {
		return c
	}
	c := &chain{items: []string{item}}
	m.chains = append(m.chains, c)
	m.owner[item] = c
	m.index[item] = 0
	return c
}

// addAdjacency folds the single constraint "a immediately precedes b".
func (m *Merger) addAdjacency(a, b string) error {
	ca, aOK := m.owner[a]
	cb, bOK := m.owner[b]

	switch {
	case !aOK && !bOK:
		c := &chain{items: []string{a, b}}
		m.chains = append(m.chains, c)
		m.owner[a], m.owner[b] = c, c
		m.index[a], m.index[b] = 0, 1
		return nil

	case aOK && !bOK:
		if m.index[a] != len(ca.items)-1 {
			return errors.Wrapf(ErrConflict, "%q is not at the end of its chain", a)
		}
		ca.items = append(ca.items, b)
		m.owner[b] = ca
		m.index[b] = len(ca.items) - 1
		return nil

	case !aOK && bOK:
		if m.index[b] != 0 {
			return errors.Wrapf(ErrConflict, "%q is not at the start of its chain", b)
		}
		cb.items = append([]string{a}, cb.items...)
		m.owner[a] = cb
		m.reindex(cb)
		return nil

	default: // both already placed
		if ca == cb {
			if m.index[b]-m.index[a] != 1 {
				return errors.Wrapf(ErrConflict, "%q and %q are not adjacent in the required order", a, b)
			}
			return nil
		}
		if m.index[a] != len(ca.items)-1 || m.index[b] != 0 {
			return errors.Wrapf(ErrConflict, "cannot splice chains at %q/%q", a, b)
		}
		ca.items = append(ca.items, cb.items...)
		for _, it := range cb.items {
			m.owner[it] = ca
		}
		m.reindex(ca)
		m.removeChain(cb)
		return nil
	}
}

func (m *Merger) reindex(c *chain) {
	for i, it := range c.items {
		m.index[it] = i
	}
}

func (m *Merger) removeChain(target *chain) {
	out := m.chains[:0]
	for _, c := range m.chains {
		if c != target {
			out = append(out, c)
		}
	}
	m.chains = out
}

// Resolve finalizes the merge: exactly one chain must remain, and every
// declared item must appear in it.
func (m *Merger) Resolve() ([]string, error) {
	if len(m.chains) == 0 {
		if len(m.declared) == 0 {
			return nil, nil
		}
		return nil, errors.Wrap(ErrIncomplete, "no adjacency hints were ever declared")
	}
	if len(m.chains) > 1 {
		return nil, errors.Wrapf(ErrIncomplete, "%d disjoint chains remain", len(m.chains))
	}

	total := m.chains[0].items
	seen := make(map[string]bool, len(total))
	for _, it := range total {
		seen[it] = true
	}
	for item := range m.declared {
		if !seen[item] {
			return nil, errors.Wrapf(ErrMissing, "%q", item)
		}
	}

	out := make([]string, len(total))
	copy(out, total)
	return out, nil
}
