package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/utxoprep/internal/core/domain"
	"github.com/vulpemventures/utxoprep/internal/core/ports"
)

var maxAmount = decimal.NewFromInt(math.MaxInt64)

// PrepareService is responsible for preparing the set of unspent outputs of
// an address that best covers a target amount:
//   - Fetch the utxos of the address from the ledger.
//   - Sort them by ascending value and let the coin selector pick the ones to spend.
//   - Keep track of every selection made in the selection repository.
//
// The service registers 1 handler for the following selection event:
//   - domain.SelectionAdded - logs the newly stored selection.
type PrepareService struct {
	repoManager  ports.RepoManager
	ledger       ports.LedgerService
	coinSelector ports.CoinSelector
	metrics      ports.MetricsCollector

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func NewPrepareService(
	repoManager ports.RepoManager, ledger ports.LedgerService,
	coinSelector ports.CoinSelector, metrics ports.MetricsCollector,
) *PrepareService {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("prepare service: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("prepare service: %s", format)
		log.WithError(err).Warnf(format, a...)
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	svc := &PrepareService{
		repoManager, ledger, coinSelector, metrics, logFn, warnFn,
	}
	svc.registerHandlerForSelectionEvents()

	return svc
}

// PrepareUnspentOutputs returns the utxos of the given address to spend to
// cover the given amount.
// Both params are mandatory and the amount must be a positive integer.
// The returned error, if any, wraps one of ErrMissingParams, ErrInvalidRequest,
// ErrLedgerUnavailable, ErrNoUnspentOutputs or ErrInsufficientFunds, except
// for unexpected failures.
func (s *PrepareService) PrepareUnspentOutputs(
	ctx context.Context, address, amount string,
) (*PreparedUtxos, error) {
	res, outcome, err := s.prepareUnspentOutputs(ctx, address, amount)
	s.metrics.ObserveRequest(outcome)
	return res, err
}

func (s *PrepareService) GetSelection(
	ctx context.Context, id string,
) (*SelectionInfo, error) {
	selection, err := s.repoManager.SelectionRepository().GetSelection(ctx, id)
	if err != nil {
		return nil, err
	}
	return (*SelectionInfo)(selection), nil
}

// ListSelections returns the history of selections made for the given
// address, or all of them if no address is given.
func (s *PrepareService) ListSelections(
	ctx context.Context, address string,
) ([]*SelectionInfo, error) {
	repo := s.repoManager.SelectionRepository()

	var selections []*domain.Selection
	var err error
	if address = strings.TrimSpace(address); address != "" {
		selections, err = repo.GetSelectionsForAddress(ctx, address)
	} else {
		selections, err = repo.GetAllSelections(ctx)
	}
	if err != nil {
		return nil, err
	}

	info := make([]*SelectionInfo, 0, len(selections))
	for _, selection := range selections {
		info = append(info, (*SelectionInfo)(selection))
	}
	return info, nil
}

func (s *PrepareService) prepareUnspentOutputs(
	ctx context.Context, address, amount string,
) (*PreparedUtxos, string, error) {
	req := prepareRequest{address, amount}
	if err := req.validate(); err != nil {
		return nil, OutcomeMissingParams, fmt.Errorf("%w: %s", ErrMissingParams, err)
	}

	targetAmount, err := parseAmount(amount)
	if err != nil {
		return nil, OutcomeInvalidAmount, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}

	list, err := s.ledger.GetUtxos(ctx, address)
	if err != nil {
		s.warn(err, "failed to fetch utxos for address %s", address)
		return nil, OutcomeLedgerError, fmt.Errorf("%w: %s", ErrLedgerUnavailable, err)
	}
	if len(list) <= 0 {
		return nil, OutcomeNoUtxos, ErrNoUnspentOutputs
	}

	utxos := make([]*domain.Utxo, len(list))
	copy(utxos, list)
	sort.SliceStable(utxos, func(i, j int) bool {
		return utxos[i].Value < utxos[j].Value
	})

	start := time.Now()
	selected, change, strategy, err := s.coinSelector.SelectUtxos(utxos, targetAmount)
	elapsed := time.Since(start)
	if err != nil {
		s.log(
			"%d utxo(s) of address %s do not cover amount %d",
			len(utxos), address, targetAmount,
		)
		return nil, OutcomeInsufficientFunds, fmt.Errorf("%w: %s", ErrInsufficientFunds, err)
	}
	s.metrics.ObserveSelection(strategy, len(selected), elapsed)

	selection, err := domain.NewSelection(
		uuid.New().String(), address, targetAmount, strategy, selected,
	)
	if err != nil {
		return nil, OutcomeError, err
	}
	if _, err := s.repoManager.SelectionRepository().AddSelection(
		ctx, selection,
	); err != nil {
		s.warn(err, "failed to store selection %s", selection.ID)
	}

	s.log(
		"selected %d utxo(s) for address %s with strategy %s in %s: %s",
		len(selected), address, strategy, elapsed, UtxoKeys(selection.Utxos),
	)

	return &PreparedUtxos{
		SelectionID: selection.ID,
		Strategy:    strategy,
		Utxos:       selected,
		Change:      change,
	}, OutcomeOk, nil
}

func (s *PrepareService) registerHandlerForSelectionEvents() {
	s.repoManager.RegisterHandlerForSelectionEvent(
		domain.SelectionAdded, func(event domain.SelectionEvent) {
			s.log(
				"stored selection %s for address %s (target %d, total %d)",
				event.Selection.ID, event.Selection.Address,
				event.Selection.TargetAmount, event.Selection.Total,
			)
		},
	)
}

type prepareRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

func (r prepareRequest) validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Address, validation.Required),
		validation.Field(&r.Amount, validation.Required),
	)
}

// parseAmount parses the given string as a positive integer amount of
// satoshis. Any numeric form is accepted as long as its value is integral,
// eg. 1000, 1e3 or 1000.0.
func parseAmount(amount string) (uint64, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0, fmt.Errorf("amount must be a number")
	}
	if !value.IsPositive() {
		return 0, fmt.Errorf("amount must be positive")
	}
	if !value.IsInteger() {
		return 0, fmt.Errorf("amount must be an integer")
	}
	if value.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("amount too large")
	}
	return uint64(value.IntPart()), nil
}

// IsClientError returns whether the given error is caused by an invalid
// request.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingParams) || errors.Is(err, ErrInvalidRequest)
}
