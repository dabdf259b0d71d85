package rooms

import (
	"context"
	"errors"

	"github.com/charmbracelet/huh"
)

// Prompter asks the operator to pick one of labels and returns its index.
type Prompter interface {
	Choose(ctx context.Context, title string, labels []string) (int, error)
}

type HuhPrompter struct{}

func (HuhPrompter) Choose(ctx context.Context, title string, labels []string) (int, error) {
	options := make([]huh.Option[int], 0, len(labels)+1)
	for i, label := range labels {
		options = append(options, huh.NewOption(label, i))
	}
	options = append(options, huh.NewOption("Quit", -1))

	choice := -1

	selectField := huh.NewSelect[int]().
		Title(title).
		Options(options...).
		Value(&choice)

	err := huh.NewForm(huh.NewGroup(selectField)).RunWithContext(ctx)
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return -1, ErrNoRoomSelected
		}
		return -1, err
	}

	return choice, nil
}
