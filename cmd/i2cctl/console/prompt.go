package console

import (
	"strings"

	"github.com/chzyer/readline"
)

const (
	Yes = "y"
	No  = "n"
)

// YesOrNo asks a question defaulting to no.
func YesOrNo(question string) (string, error) {
	return Prompt(question, No, Yes)
}

// Prompt reads one line. With constraints the answer is normalized to one
// of them, the first being the default.
func Prompt(question string, constraints ...string) (string, error) {
	if len(constraints) == 0 {
		rl, err := readline.New(question)
		if err != nil {
			return "", err
		}
		defer func() { _ = rl.Close() }()
		return rl.Readline()
	}
	rl, err := readline.New(promptText(question, constraints))
	if err != nil {
		return "", err
	}
	defer func() { _ = rl.Close() }()
	response, err := rl.Readline()
	if err != nil {
		return "", err
	}
	return normalize(response, constraints), nil
}

func promptText(question string, constraints []string) string {
	var prompt strings.Builder
	prompt.WriteString(question)
	prompt.WriteString(" [")
	prompt.WriteString(strings.ToUpper(constraints[0]))
	for i := 1; i < len(constraints); i++ {
		prompt.WriteString("/")
		prompt.WriteString(constraints[i])
	}
	prompt.WriteString("]: ")
	return prompt.String()
}

func normalize(response string, constraints []string) string {
	normalized := strings.ToLower(strings.TrimSpace(response))
	for _, c := range constraints {
		if normalized == c {
			return normalized
		}
	}
	// empty or unknown answers get the default
	return constraints[0]
}
