package application_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vulpemventures/utxoprep/internal/core/domain"
)

// ports.LedgerService
type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Start() error { return nil }
func (m *mockLedger) Stop()        {}

func (m *mockLedger) GetUtxos(
	ctx context.Context, address string,
) ([]*domain.Utxo, error) {
	args := m.Called(ctx, address)

	var res []*domain.Utxo
	if a := args.Get(0); a != nil {
		res = a.([]*domain.Utxo)
	}
	return res, args.Error(1)
}

// ports.CoinSelector
type mockCoinSelector struct {
	mock.Mock
}

func (m *mockCoinSelector) SelectUtxos(
	utxos []*domain.Utxo, targetAmount uint64,
) ([]*domain.Utxo, uint64, domain.Strategy, error) {
	args := m.Called(utxos, targetAmount)

	var res []*domain.Utxo
	if a := args.Get(0); a != nil {
		res = a.([]*domain.Utxo)
	}
	return res, args.Get(1).(uint64), args.Get(2).(domain.Strategy), args.Error(3)
}

// ports.MetricsCollector
type fakeMetrics struct {
	lock       *sync.Mutex
	outcomes   map[string]int
	strategies map[domain.Strategy]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		lock:       &sync.Mutex{},
		outcomes:   make(map[string]int),
		strategies: make(map[domain.Strategy]int),
	}
}

func (m *fakeMetrics) ObserveRequest(outcome string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.outcomes[outcome]++
}

func (m *fakeMetrics) ObserveSelection(
	strategy domain.Strategy, _ int, _ time.Duration,
) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.strategies[strategy]++
}
