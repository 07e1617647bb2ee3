package util

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Choice is an answer read from a line-based confirmation prompt
type Choice int

const (
	ChoiceNo Choice = iota
	ChoiceYes
	ChoiceAll
)

// ConfirmOverwrite asks a yes/no question; anything but y/yes is a no.
func ConfirmOverwrite(prompt string, in io.Reader, out io.Writer) (bool, error) {
	fmt.Fprintf(out, "%s (y/N): ", prompt)
	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

// ReadChoice prints prompt and reads one y/n/a answer from r. The reader is
// shared across calls so buffered input is not lost between prompts.
func ReadChoice(prompt string, r *bufio.Reader, out io.Writer) (Choice, error) {
	fmt.Fprintf(out, "%s [y]es/[N]o/[a]ll: ", prompt)
	response, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || response == "") {
		return ChoiceNo, err
	}
	return ParseChoice(response), nil
}

// ParseChoice maps a typed answer onto a Choice
func ParseChoice(response string) Choice {
	switch strings.TrimSpace(strings.ToLower(response)) {
	case "y", "yes":
		return ChoiceYes
	case "a", "all", "yes to all", "yes-to-all":
		return ChoiceAll
	default:
		return ChoiceNo
	}
}
