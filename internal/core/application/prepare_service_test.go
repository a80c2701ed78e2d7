package application_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/utxoprep/internal/core/application"
	"github.com/vulpemventures/utxoprep/internal/core/domain"
	"github.com/vulpemventures/utxoprep/internal/infrastructure/storage/db/inmemory"
)

var (
	ctx     = context.Background()
	address = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	txid    = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"
)

func TestPrepareUnspentOutputs(t *testing.T) {
	type args struct {
		address string
		amount  string
	}
	tests := []struct {
		name             string
		ledgerUtxos      []uint64
		args             args
		expected         []uint64
		expectedStrategy domain.Strategy
		expectedChange   uint64
	}{
		{
			name:             "exact match",
			ledgerUtxos:      []uint64{50, 30, 40},
			args:             args{address, "80"},
			expected:         []uint64{30, 50},
			expectedStrategy: domain.StrategyExactMatch,
		},
		{
			name:             "smallest first",
			ledgerUtxos:      []uint64{100, 6, 4, 3},
			args:             args{address, "12"},
			expected:         []uint64{3, 4, 6},
			expectedStrategy: domain.StrategySmallestFirst,
			expectedChange:   1,
		},
		{
			name:             "single larger",
			ledgerUtxos:      []uint64{60, 5},
			args:             args{address, "50"},
			expected:         []uint64{60},
			expectedStrategy: domain.StrategySingleLarger,
			expectedChange:   10,
		},
		{
			name:             "amount in exponential form",
			ledgerUtxos:      []uint64{1000, 500},
			args:             args{address, "1e3"},
			expected:         []uint64{1000},
			expectedStrategy: domain.StrategyExactMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &mockLedger{}
			ledger.On("GetUtxos", mock.Anything, tt.args.address).
				Return(newUtxos(tt.ledgerUtxos...), nil)
			metrics := newFakeMetrics()
			svc := newPrepareService(t, ledger, metrics)

			res, err := svc.PrepareUnspentOutputs(ctx, tt.args.address, tt.args.amount)
			require.NoError(t, err)
			require.NotNil(t, res)
			require.Equal(t, tt.expected, values(res.Utxos))
			require.Equal(t, tt.expectedStrategy, res.Strategy)
			require.Equal(t, tt.expectedChange, res.Change)
			require.NotEmpty(t, res.SelectionID)
			require.Equal(t, 1, metrics.outcomes[application.OutcomeOk])
			require.Equal(t, 1, metrics.strategies[tt.expectedStrategy])

			selection, err := svc.GetSelection(ctx, res.SelectionID)
			require.NoError(t, err)
			require.Equal(t, tt.args.address, selection.Address)
			require.Equal(t, res.Utxos.Keys(), selection.Utxos)
		})
	}
}

func TestPrepareUnspentOutputsFailures(t *testing.T) {
	type args struct {
		address string
		amount  string
	}
	tests := []struct {
		name            string
		ledgerUtxos     []uint64
		ledgerErr       error
		args            args
		expectedErr     error
		expectedOutcome string
	}{
		{
			name:            "missing address",
			args:            args{"", "100"},
			expectedErr:     application.ErrMissingParams,
			expectedOutcome: application.OutcomeMissingParams,
		},
		{
			name:            "missing amount",
			args:            args{address, ""},
			expectedErr:     application.ErrMissingParams,
			expectedOutcome: application.OutcomeMissingParams,
		},
		{
			name:            "non numeric amount",
			args:            args{address, "abc"},
			expectedErr:     application.ErrInvalidRequest,
			expectedOutcome: application.OutcomeInvalidAmount,
		},
		{
			name:            "zero amount",
			args:            args{address, "0"},
			expectedErr:     application.ErrInvalidRequest,
			expectedOutcome: application.OutcomeInvalidAmount,
		},
		{
			name:            "negative amount",
			args:            args{address, "-10"},
			expectedErr:     application.ErrInvalidRequest,
			expectedOutcome: application.OutcomeInvalidAmount,
		},
		{
			name:            "fractional amount",
			args:            args{address, "10.5"},
			expectedErr:     application.ErrInvalidRequest,
			expectedOutcome: application.OutcomeInvalidAmount,
		},
		{
			name:            "ledger failure",
			ledgerErr:       fmt.Errorf("connection refused"),
			args:            args{address, "100"},
			expectedErr:     application.ErrLedgerUnavailable,
			expectedOutcome: application.OutcomeLedgerError,
		},
		{
			name:            "no unspent outputs",
			ledgerUtxos:     []uint64{},
			args:            args{address, "100"},
			expectedErr:     application.ErrNoUnspentOutputs,
			expectedOutcome: application.OutcomeNoUtxos,
		},
		{
			name:            "not enough funds",
			ledgerUtxos:     []uint64{10, 20, 25},
			args:            args{address, "100"},
			expectedErr:     application.ErrInsufficientFunds,
			expectedOutcome: application.OutcomeInsufficientFunds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &mockLedger{}
			var utxos []*domain.Utxo
			if tt.ledgerUtxos != nil {
				utxos = newUtxos(tt.ledgerUtxos...)
			}
			ledger.On("GetUtxos", mock.Anything, mock.Anything).Return(utxos, tt.ledgerErr)
			metrics := newFakeMetrics()
			svc := newPrepareService(t, ledger, metrics)

			res, err := svc.PrepareUnspentOutputs(ctx, tt.args.address, tt.args.amount)
			require.ErrorIs(t, err, tt.expectedErr)
			require.Nil(t, res)
			require.Equal(t, 1, metrics.outcomes[tt.expectedOutcome])

			isClientErr := tt.expectedOutcome == application.OutcomeMissingParams ||
				tt.expectedOutcome == application.OutcomeInvalidAmount
			require.Equal(t, isClientErr, application.IsClientError(err))
			if isClientErr {
				ledger.AssertNotCalled(t, "GetUtxos", mock.Anything, mock.Anything)
			}

			selections, err := svc.ListSelections(ctx, "")
			require.NoError(t, err)
			require.Empty(t, selections)
		})
	}
}

func TestPrepareUnspentOutputsSortsUtxos(t *testing.T) {
	ledgerUtxos := newUtxos(40, 10, 40, 20)
	ledger := &mockLedger{}
	ledger.On("GetUtxos", mock.Anything, address).Return(ledgerUtxos, nil)

	selector := &mockCoinSelector{}
	selector.On("SelectUtxos", mock.Anything, uint64(10)).
		Return(ledgerUtxos[1:2], uint64(0), domain.StrategyExactMatch, nil)

	rm := inmemory.NewRepoManager()
	defer rm.Close()
	svc := application.NewPrepareService(rm, ledger, selector, nil)

	_, err := svc.PrepareUnspentOutputs(ctx, address, "10")
	require.NoError(t, err)

	sorted := selector.Calls[0].Arguments.Get(0).([]*domain.Utxo)
	require.Equal(t, []uint64{10, 20, 40, 40}, values(sorted))
	// Ties keep the order given by the ledger.
	require.Equal(t, uint32(0), sorted[2].VOut)
	require.Equal(t, uint32(2), sorted[3].VOut)
	// The list returned by the ledger is left untouched.
	require.Equal(t, []uint64{40, 10, 40, 20}, values(ledgerUtxos))
}

func TestListSelections(t *testing.T) {
	otherAddress := "12c6DSiU4Rq3P4ZxziKxzrGuvqqt5Vy7Ht"
	ledger := &mockLedger{}
	ledger.On("GetUtxos", mock.Anything, mock.Anything).
		Return(newUtxos(10, 20, 30), nil)
	svc := newPrepareService(t, ledger, nil)

	for _, addr := range []string{address, address, otherAddress} {
		_, err := svc.PrepareUnspentOutputs(ctx, addr, "30")
		require.NoError(t, err)
	}

	selections, err := svc.ListSelections(ctx, address)
	require.NoError(t, err)
	require.Len(t, selections, 2)

	selections, err = svc.ListSelections(ctx, otherAddress)
	require.NoError(t, err)
	require.Len(t, selections, 1)

	selections, err = svc.ListSelections(ctx, "")
	require.NoError(t, err)
	require.Len(t, selections, 3)

	_, err = svc.GetSelection(ctx, "unknown")
	require.ErrorIs(t, err, domain.ErrSelectionNotFound)
}

func newPrepareService(
	t *testing.T, ledger *mockLedger, metrics *fakeMetrics,
) *application.PrepareService {
	rm := inmemory.NewRepoManager()
	t.Cleanup(rm.Close)

	selector, err := application.NewCoinSelector(
		application.CoinSelectionStrategyTiered, 0,
	)
	require.NoError(t, err)

	if metrics == nil {
		return application.NewPrepareService(rm, ledger, selector, nil)
	}
	return application.NewPrepareService(rm, ledger, selector, metrics)
}

func newUtxos(values ...uint64) []*domain.Utxo {
	utxos := make([]*domain.Utxo, 0, len(values))
	for i, v := range values {
		utxos = append(utxos, &domain.Utxo{
			UtxoKey:       domain.UtxoKey{TxID: txid, VOut: uint32(i)},
			Value:         v,
			Confirmations: 1,
		})
	}
	return utxos
}

func values(utxos []*domain.Utxo) []uint64 {
	vals := make([]uint64, 0, len(utxos))
	for _, u := range utxos {
		vals = append(vals, u.Value)
	}
	return vals
}
