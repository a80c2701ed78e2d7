package smallestsubset_selector

import (
	"fmt"
	"sort"

	"github.com/vulpemventures/utxoprep/internal/core/domain"
	"github.com/vulpemventures/utxoprep/internal/core/ports"
)

var (
	ErrTargetAmountNotReached = fmt.Errorf("not found enough utxos to cover target amount")
)

// maxChangeFactor bounds the total of an acceptable combination to this many
// times the target amount.
const maxChangeFactor = 10

type selector struct{}

func NewSmallestSubsetCoinSelector() ports.CoinSelector {
	return &selector{}
}

func (s *selector) SelectUtxos(
	utxos []*domain.Utxo, targetAmount uint64,
) ([]*domain.Utxo, uint64, domain.Strategy, error) {
	if targetAmount == 0 {
		return nil, 0, domain.StrategyNone, ErrTargetAmountNotReached
	}

	sorted := make([]*domain.Utxo, len(utxos))
	copy(sorted, utxos)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})

	values := make([]uint64, 0, len(sorted))
	for _, u := range sorted {
		values = append(values, u.Value)
	}

	indexes := getBestCombination(values, targetAmount)
	if len(indexes) <= 0 {
		return nil, 0, domain.StrategyNone, ErrTargetAmountNotReached
	}

	selectedUtxos := make([]*domain.Utxo, 0, len(indexes))
	totalAmount := uint64(0)
	for _, i := range indexes {
		totalAmount += sorted[i].Value
		selectedUtxos = append(selectedUtxos, sorted[i])
	}

	change := totalAmount - targetAmount
	return selectedUtxos, change, domain.StrategySmallestSubset, nil
}

// getBestCombination attempts to select as less items as possible
// covering the given target amount, and returns their indexes.
// The strategy here is to try finding exactly 1 item covering the given target
// amount or, otherwise, progressively increase the number of items until
// finding a combination that satisfies the criteria.
// A combination exceeding the target amount is returned straightaway if its
// total amount is lower than 10 times the target one.
// Otherwise, if no combination satisfies this last criteria, the very first
// one covering the target amount is returned.
func getBestCombination(items []uint64, target uint64) []int {
	var fallback []int
	for size := 1; size <= len(items); size++ {
		combo := make([]int, size)
		for i := range combo {
			combo[i] = i
		}

		for {
			total := sum(items, combo)
			if total >= target {
				if total <= target*maxChangeFactor {
					return combo
				}
				if fallback == nil {
					fallback = append([]int{}, combo...)
				}
			}
			if !nextCombination(combo, len(items)) {
				break
			}
		}
	}

	if fallback != nil {
		return fallback
	}
	return []int{}
}

// nextCombination moves combo to the next combination of its size of the
// indexes [0, n) in lexicographic order. Returns false if combo is the last
// one.
func nextCombination(combo []int, n int) bool {
	size := len(combo)
	i := size - 1
	for i >= 0 && combo[i] == n-size+i {
		i--
	}
	if i < 0 {
		return false
	}
	combo[i]++
	for j := i + 1; j < size; j++ {
		combo[j] = combo[j-1] + 1
	}
	return true
}

func sum(items []uint64, indexes []int) uint64 {
	var total uint64
	for _, i := range indexes {
		total += items[i]
	}
	return total
}
