package cleanup

import (
	"bufio"
	"fmt"
	"io"

	"github.com/manifoldco/promptui"

	"github.com/substantialcattle5/dupefiles/util"
)

// Decision is the answer to a confirmation request
type Decision int

const (
	DecisionNo Decision = iota
	DecisionYes
	// DecisionYesToAll approves this action and every later one in the run
	DecisionYesToAll
)

// Action describes one pending change
type Action struct {
	Policy Policy
	Path   string
	Target string // Destination path for moves and placeholders
	Size   uint64
}

func (a Action) String() string {
	switch a.Policy {
	case PolicyMove:
		return fmt.Sprintf("move %s -> %s", a.Path, a.Target)
	case PolicyPlaceholder:
		return fmt.Sprintf("replace %s with placeholder %s", a.Path, a.Target)
	default:
		return fmt.Sprintf("delete %s", a.Path)
	}
}

// Confirmer approves or declines actions
type Confirmer interface {
	Confirm(action Action) (Decision, error)
}

// AutoConfirmer approves everything, for batch runs
type AutoConfirmer struct{}

func (AutoConfirmer) Confirm(Action) (Decision, error) {
	return DecisionYesToAll, nil
}

// ReaderConfirmer asks line by line on a reader/writer pair
type ReaderConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

// NewReaderConfirmer reads answers from in and writes prompts to out
func NewReaderConfirmer(in io.Reader, out io.Writer) *ReaderConfirmer {
	return &ReaderConfirmer{in: bufio.NewReader(in), out: out}
}

func (c *ReaderConfirmer) Confirm(action Action) (Decision, error) {
	choice, err := util.ReadChoice(fmt.Sprintf("%s (%s)?", capitalize(action.String()), util.HumanReadableSizeU(action.Size)), c.in, c.out)
	if err != nil {
		return DecisionNo, err
	}
	switch choice {
	case util.ChoiceYes:
		return DecisionYes, nil
	case util.ChoiceAll:
		return DecisionYesToAll, nil
	default:
		return DecisionNo, nil
	}
}

const (
	answerYes      = "Yes"
	answerNo       = "No"
	answerYesToAll = "Yes to all"
)

// PromptConfirmer asks through an interactive terminal menu
type PromptConfirmer struct{}

func (PromptConfirmer) Confirm(action Action) (Decision, error) {
	prompt := promptui.Select{
		Label: capitalize(action.String()),
		Items: []string{answerYes, answerNo, answerYesToAll},
		Templates: &promptui.SelectTemplates{
			Selected: "{{ . }}",
			Active:   "▸ {{ . }}",
			Inactive: "  {{ . }}",
			Details: fmt.Sprintf(`
{{ "Details:" | faint }}
{{ if eq . %q }}Apply this and every remaining action without asking again{{ end }}
size: %s`, answerYesToAll, util.HumanReadableSizeU(action.Size)),
		},
	}

	_, result, err := prompt.Run()
	if err != nil {
		return DecisionNo, fmt.Errorf("prompt failed: %w", err)
	}

	switch result {
	case answerYes:
		return DecisionYes, nil
	case answerYesToAll:
		return DecisionYesToAll, nil
	default:
		return DecisionNo, nil
	}
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
