package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BMO568/vscode-cordova/internal/devices"
)

// consoleChooser satisfies the interactive chooser collaborator by prompting
// on the terminal. An empty answer cancels.
type consoleChooser struct{}

func (consoleChooser) Choose(ctx context.Context, prompt string, labels []string) (int, bool, error) {
	fmt.Println(prompt + ":")
	for i, label := range labels {
		fmt.Printf("  %d) %s\n", i+1, label)
	}
	fmt.Print("> ")

	type answer struct {
		text string
		err  error
	}
	answerCh := make(chan answer, 1)
	go func() {
		text, err := bufio.NewReader(os.Stdin).ReadString('\n')
		answerCh <- answer{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return 0, false, ctx.Err()
	case a := <-answerCh:
		if a.err != nil {
			return 0, false, a.err
		}
		text := strings.TrimSpace(a.text)
		if text == "" {
			return 0, false, nil
		}
		choice, err := strconv.Atoi(text)
		if err != nil || choice < 1 || choice > len(labels) {
			return 0, false, fmt.Errorf("'%s' is not a valid choice", text)
		}
		return choice - 1, true, nil
	}
}

var _ devices.Chooser = consoleChooser{}
