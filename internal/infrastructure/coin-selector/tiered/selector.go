package tiered_selector

import (
	"fmt"

	"github.com/vulpemventures/utxoprep/internal/core/domain"
	"github.com/vulpemventures/utxoprep/internal/core/ports"
)

var (
	ErrTargetAmountNotReached = fmt.Errorf("not found enough utxos to cover target amount")
)

// Result is the outcome of a selection. It is either Selected or Insufficient.
type Result interface {
	isResult()
}

// Selected holds the utxos chosen to cover the target amount, in selection
// order, along with their total value and the strategy that found them.
type Selected struct {
	Utxos    []*domain.Utxo
	Total    uint64
	Strategy domain.Strategy
}

// Insufficient means that no strategy could cover the target amount.
type Insufficient struct{}

func (Selected) isResult()     {}
func (Insufficient) isResult() {}

// Option customizes the behavior of the selector returned by
// NewTieredCoinSelector.
type Option func(*selector)

// WithMaxExactTarget makes the selector skip the exact match strategy for
// target amounts greater than max. A zero max means no limit.
func WithMaxExactTarget(max uint64) Option {
	return func(s *selector) {
		s.maxExactTarget = max
	}
}

type selector struct {
	maxExactTarget uint64
}

func NewTieredCoinSelector(opts ...Option) ports.CoinSelector {
	s := &selector{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *selector) SelectUtxos(
	utxos []*domain.Utxo, targetAmount uint64,
) ([]*domain.Utxo, uint64, domain.Strategy, error) {
	var res Result
	if s.maxExactTarget > 0 && targetAmount > s.maxExactTarget {
		// Only single utxo exact matches are looked for above the limit.
		if u := findEqualUtxo(utxos, targetAmount); u != nil {
			res = newSelected([]*domain.Utxo{u}, domain.StrategyExactMatch)
		} else {
			res = selectWithoutExactMatch(utxos, targetAmount)
		}
	} else {
		res = Select(utxos, targetAmount)
	}

	selected, ok := res.(Selected)
	if !ok {
		return nil, 0, domain.StrategyNone, ErrTargetAmountNotReached
	}
	return selected.Utxos, selected.Total - targetAmount, selected.Strategy, nil
}

// Select returns the set of utxos to spend to cover the target amount by
// trying, in order:
//  1. a subset of utxos whose values sum up exactly to the target, with as
//     less utxos as possible.
//  2. the shortest run of utxos smaller than the target, taken from the
//     smallest one, whose total covers the target.
//  3. the smallest utxo whose value is greater than the target.
//
// The given utxos must be sorted by ascending value. They are never modified.
func Select(utxos []*domain.Utxo, targetAmount uint64) Result {
	if targetAmount == 0 || len(utxos) == 0 {
		return Insufficient{}
	}

	if list := findExactMatch(utxos, targetAmount); list != nil {
		return newSelected(list, domain.StrategyExactMatch)
	}
	return selectWithoutExactMatch(utxos, targetAmount)
}

func selectWithoutExactMatch(utxos []*domain.Utxo, targetAmount uint64) Result {
	if targetAmount == 0 {
		return Insufficient{}
	}
	if list := findSmallestUtxos(utxos, targetAmount); list != nil {
		return newSelected(list, domain.StrategySmallestFirst)
	}
	if list := findLargerUtxo(utxos, targetAmount); list != nil {
		return newSelected(list, domain.StrategySingleLarger)
	}
	return Insufficient{}
}

func newSelected(utxos []*domain.Utxo, strategy domain.Strategy) Selected {
	total := uint64(0)
	for _, u := range utxos {
		total += u.Value
	}
	return Selected{utxos, total, strategy}
}

// findSmallestUtxos accumulates, from the smallest one, the utxos with value
// strictly lower than the target until their total covers it.
func findSmallestUtxos(utxos []*domain.Utxo, targetAmount uint64) []*domain.Utxo {
	selected := make([]*domain.Utxo, 0)
	totalAmount := uint64(0)
	for _, u := range utxos {
		if u.Value >= targetAmount {
			continue
		}
		selected = append(selected, u)
		totalAmount += u.Value
		if totalAmount >= targetAmount {
			return selected
		}
	}
	return nil
}

// findLargerUtxo returns the first utxo with value strictly greater than the
// target. An utxo with value equal to the target is always found by
// findExactMatch.
func findLargerUtxo(utxos []*domain.Utxo, targetAmount uint64) []*domain.Utxo {
	for _, u := range utxos {
		if u.Value > targetAmount {
			return []*domain.Utxo{u}
		}
	}
	return nil
}

func findEqualUtxo(utxos []*domain.Utxo, targetAmount uint64) *domain.Utxo {
	for _, u := range utxos {
		if u.Value == targetAmount {
			return u
		}
	}
	return nil
}
