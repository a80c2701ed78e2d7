package domain

import (
	"fmt"
	"time"
)

const (
	StrategyNone Strategy = iota
	StrategyExactMatch
	StrategySmallestFirst
	StrategySingleLarger
	StrategySmallestSubset
)

var (
	strategyString = map[Strategy]string{
		StrategyNone:           "None",
		StrategyExactMatch:     "ExactMatch",
		StrategySmallestFirst:  "SmallestFirst",
		StrategySingleLarger:   "SingleLarger",
		StrategySmallestSubset: "SmallestSubset",
	}
)

// Strategy identifies the coin selection strategy that produced a set of
// utxos.
type Strategy int

func (s Strategy) String() string {
	if str, ok := strategyString[s]; ok {
		return str
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Selection is the record of a set of utxos prepared to cover a target amount
// for a certain address.
type Selection struct {
	ID           string
	Address      string
	TargetAmount uint64
	Strategy     Strategy
	Utxos        []UtxoKey
	Total        uint64
	CreatedAt    int64
}

// NewSelection returns a new Selection for the given address and target
// amount, made of the given utxos.
func NewSelection(
	id, address string, targetAmount uint64, strategy Strategy, utxos []*Utxo,
) (*Selection, error) {
	if id == "" {
		return nil, fmt.Errorf("missing selection id")
	}
	if address == "" {
		return nil, fmt.Errorf("missing address")
	}
	if len(utxos) == 0 {
		return nil, fmt.Errorf("missing utxos")
	}

	keys := make([]UtxoKey, 0, len(utxos))
	total := uint64(0)
	for _, u := range utxos {
		keys = append(keys, u.Key())
		total += u.Value
	}
	if total < targetAmount {
		return nil, fmt.Errorf(
			"utxos total %d does not cover target amount %d", total, targetAmount,
		)
	}

	return &Selection{
		ID:           id,
		Address:      address,
		TargetAmount: targetAmount,
		Strategy:     strategy,
		Utxos:        keys,
		Total:        total,
		CreatedAt:    time.Now().Unix(),
	}, nil
}

// Change returns the amount exceeding the target one.
func (s *Selection) Change() uint64 {
	return s.Total - s.TargetAmount
}

// IsExact returns whether the selected utxos cover exactly the target amount.
func (s *Selection) IsExact() bool {
	return s.Total == s.TargetAmount
}
