package tiered_selector

import "github.com/vulpemventures/utxoprep/internal/core/domain"

const (
	unreachable = -2
	emptySet    = -1
)

// node is a link of an immutable list of utxos. Lists share their common
// prefixes, so a new candidate set costs a single node.
type node struct {
	utxo   int
	parent int
}

// findExactMatch looks for the subset of utxos whose values sum up exactly to
// the target amount, made of as less utxos as possible.
// This is a 0/1 knapsack over every sum in [0, targetAmount]: for each utxo,
// sums are scanned downwards so that the utxo is used at most once, and the
// list for a sum is replaced only by a strictly shorter one. Among lists of
// the same length, the first one found (by utxo order) is kept.
// Time is O(len(utxos) * targetAmount), so it grows with the value of the
// target rather than with the number of utxos.
func findExactMatch(utxos []*domain.Utxo, targetAmount uint64) []*domain.Utxo {
	total := uint64(0)
	for _, u := range utxos {
		total += u.Value
	}
	if total < targetAmount {
		return nil
	}

	target := int(targetAmount)
	// best[s] is the last node of the shortest list summing up to s, size[s]
	// is its length.
	best := make([]int, target+1)
	size := make([]int, target+1)
	for i := range best {
		best[i] = unreachable
	}
	best[0] = emptySet

	nodes := make([]node, 0, len(utxos))
	for i, u := range utxos {
		if u.Value == 0 || u.Value > targetAmount {
			continue
		}
		v := int(u.Value)
		for s := target; s >= v; s-- {
			prev := best[s-v]
			if prev == unreachable {
				continue
			}
			if best[s] != unreachable && size[s-v]+1 >= size[s] {
				continue
			}
			nodes = append(nodes, node{utxo: i, parent: prev})
			best[s] = len(nodes) - 1
			size[s] = size[s-v] + 1
		}
	}

	if best[target] == unreachable {
		return nil
	}

	list := make([]*domain.Utxo, size[target])
	k := len(list) - 1
	for n := best[target]; n != emptySet; n = nodes[n].parent {
		list[k] = utxos[nodes[n].utxo]
		k--
	}
	return list
}
