package domain

import (
	"context"
	"fmt"
)

const (
	SelectionAdded SelectionEventType = iota
)

var (
	ErrSelectionNotFound = fmt.Errorf("selection not found")

	selectionTypeString = map[SelectionEventType]string{
		SelectionAdded: "SelectionAdded",
	}
)

type SelectionEventType int

func (t SelectionEventType) String() string {
	return selectionTypeString[t]
}

// SelectionEvent holds info about an event occured within the repository.
type SelectionEvent struct {
	EventType SelectionEventType
	Selection Selection
}

// SelectionRepository is the abstraction for any kind of database intended to
// persist the history of prepared Selections.
type SelectionRepository interface {
	// AddSelection adds the provided selection to the repository by preventing
	// duplicates.
	// Generates a SelectionAdded event if successful.
	AddSelection(ctx context.Context, selection *Selection) (bool, error)
	// GetSelection returns the selection identified by the given id, or
	// ErrSelectionNotFound.
	GetSelection(ctx context.Context, id string) (*Selection, error)
	// GetSelectionsForAddress returns the selections prepared for the given
	// address, sorted by creation time.
	GetSelectionsForAddress(
		ctx context.Context, address string,
	) ([]*Selection, error)
	// GetAllSelections returns the entire history of selections.
	GetAllSelections(ctx context.Context) ([]*Selection, error)
	// GetEventChannel returns the channel of SelectionEvents.
	GetEventChannel() chan SelectionEvent
}
