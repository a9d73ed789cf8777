package cases

import (
	"fmt"
	"strings"
)

// StagePrompt renders a stage submission as the evaluation prompt sent
// to the tutor agent. Answers are matched to questions by position;
// missing answers render empty, extras are ignored.
func StagePrompt(c *Case, stage int, answers []string) (string, error) {
	questions, err := c.Stage(stage)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Stage %d \n", stage)
	for i, qa := range questions {
		answer := ""
		if i < len(answers) {
			answer = answers[i]
		}
		fmt.Fprintf(&b, "Question %d: %s\nCorrect answer: %s\nUser answer: %s\n\n", i+1, qa.Question, qa.Answer, answer)
	}
	fmt.Fprintf(&b, "Evaluate the above questions as instructed in system message, with reference to context from case %d.", c.CaseNum)

	return b.String(), nil
}
