package sdkprep

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"golang.org/x/term"
)

// RunPager shows lines in a scrollable view when stdout is a terminal too
// small to hold them; otherwise the lines are printed as they are.
func RunPager(title string, lines []string) error {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return printLines(os.Stdout, lines)
	}
	// two rows for the border
	if _, height, err := term.GetSize(fd); err == nil && len(lines) <= height-2 {
		return printLines(os.Stdout, lines)
	}

	app := tview.NewApplication()
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	textView.SetBorder(true).SetTitle(" " + title + " ")

	// cmake output carries ANSI colors
	fmt.Fprint(tview.ANSIWriter(textView), strings.Join(lines, "\n"))
	textView.ScrollToEnd()

	footer := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[gray]↑/↓ PgUp/PgDn Home/End to scroll, 'q' or Esc to quit[white]")

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(textView, 0, 1, true).
		AddItem(footer, 1, 0, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc, tcell.KeyCtrlQ:
			app.Stop()
			return nil
		case tcell.KeyRune:
			if event.Rune() == 'q' {
				app.Stop()
				return nil
			}
		}
		return event
	})

	if err := app.SetRoot(flex, true).SetFocus(textView).Run(); err != nil {
		return fmt.Errorf("pager execution failed: %w", err)
	}
	return nil
}

func printLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// readBuildLog returns the lines of an architecture's last build log.
func readBuildLog(r *Registry, arch string) ([]string, error) {
	t, err := r.Lookup(arch)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(r.Layout().abs(t.BuildLog()))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no build log for %s (run sdkprep %s first)", arch, arch)
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
