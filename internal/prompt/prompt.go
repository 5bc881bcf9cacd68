// Package prompt asks the user to pick a capsule and confirm destructive steps.
package prompt

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/Ghasak/nvimTimeMachine.v2/internal/errors"
)

// Selector chooses one item from a list and answers yes/no questions.
type Selector interface {
	// ChooseIndex returns the 0-based index of the chosen item.
	ChooseIndex(title string, items []string) (int, error)
	// Confirm returns the user's answer; def is preselected.
	Confirm(title string, def bool) (bool, error)
}

// Terminal prompts on the controlling terminal.
type Terminal struct {
	in *os.File
}

// NewTerminal returns a Terminal reading from stdin.
func NewTerminal() *Terminal {
	return &Terminal{in: os.Stdin}
}

func (t *Terminal) interactive() bool {
	fd := t.in.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (t *Terminal) ChooseIndex(title string, items []string) (int, error) {
	if len(items) == 0 {
		return 0, errors.NewInvalidRequest("nothing to choose from")
	}
	if !t.interactive() {
		return 0, errors.NewInput("selection needs an interactive terminal", nil)
	}

	options := make([]huh.Option[int], len(items))
	for i, item := range items {
		options[i] = huh.NewOption(item, i)
	}

	var choice int
	err := huh.NewSelect[int]().
		Title(title).
		Options(options...).
		Value(&choice).
		Run()
	if err != nil {
		return 0, inputError("selection", err)
	}
	return choice, nil
}

func (t *Terminal) Confirm(title string, def bool) (bool, error) {
	if !t.interactive() {
		return false, errors.NewInput("confirmation needs an interactive terminal", nil)
	}

	answer := def
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&answer).
		Run()
	if err != nil {
		return false, inputError("confirmation", err)
	}
	return answer, nil
}

func inputError(what string, err error) error {
	if stderrors.Is(err, huh.ErrUserAborted) {
		return errors.NewInput(what+" aborted", nil)
	}
	return errors.NewInput(what+" failed", err)
}

// Scripted answers prompts from fixed values. It backs tests and
// non-interactive callers such as the MCP server.
type Scripted struct {
	Choice int
	Answer bool
	Err    error

	// Asked records every prompt title in order.
	Asked []string
}

func (s *Scripted) ChooseIndex(title string, items []string) (int, error) {
	s.Asked = append(s.Asked, title)
	if s.Err != nil {
		return 0, s.Err
	}
	if s.Choice < 0 || s.Choice >= len(items) {
		return 0, errors.NewInvalidRequest(fmt.Sprintf("index %d out of range (%d capsules)", s.Choice+1, len(items)))
	}
	return s.Choice, nil
}

func (s *Scripted) Confirm(title string, _ bool) (bool, error) {
	s.Asked = append(s.Asked, title)
	if s.Err != nil {
		return false, s.Err
	}
	return s.Answer, nil
}
