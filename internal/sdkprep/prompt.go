package sdkprep

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// askForConfirmation reads a yes/no answer from in; an empty answer is yes
// and end of input is no.
func askForConfirmation(in io.Reader, p colorPrinter, format string, a ...any) bool {
	reader := bufio.NewReader(in)
	prompt := fmt.Sprintf("%s [Y/n]: ", fmt.Sprintf(format, a...))

	for {
		cPrintf(p, "%s", prompt)
		response, err := reader.ReadString('\n')
		response = strings.ToLower(strings.TrimSpace(response))
		if err != nil && response == "" {
			return false
		}
		switch response {
		case "", "y", "yes":
			return true
		case "n", "no":
			return false
		}
		if err != nil {
			return false
		}
		cPrintln(colWarn, "Invalid input.")
	}
}
