package recorder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"skmotion/internal/media"
)

// Chooser asks the operator which display to record.
type Chooser interface {
	Choose(displays []media.DisplayInfo) (int, error)
}

// selectDisplay resolves the display to record. A negative configured index
// means ask when several displays exist, or take the only one.
func selectDisplay(displays []media.DisplayInfo, configured int, chooser Chooser) (media.DisplayInfo, error) {
	index := configured
	if index < 0 {
		index = displays[0].Index
		if len(displays) > 1 && chooser != nil {
			chosen, err := chooser.Choose(displays)
			if err != nil {
				return media.DisplayInfo{}, fmt.Errorf("choose display: %w", err)
			}
			index = chosen
		}
	}
	for _, d := range displays {
		if d.Index == index {
			return d, nil
		}
	}
	return media.DisplayInfo{}, fmt.Errorf("invalid display index %d (%d displays found)", index, len(displays))
}

// LineChooser prints the display list and reads an index, repeating on
// invalid input.
type LineChooser struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLineChooser reuses in when it is already a *bufio.Reader, so callers can
// share one buffer between prompts and later readers.
func NewLineChooser(in io.Reader, out io.Writer) *LineChooser {
	return &LineChooser{in: bufio.NewReader(in), out: out}
}

func (c *LineChooser) Choose(displays []media.DisplayInfo) (int, error) {
	fmt.Fprintln(c.out, "Displays:")
	for _, d := range displays {
		fmt.Fprintf(c.out, "  %d: %dx%d\n", d.Index, d.Width, d.Height)
	}
	for {
		fmt.Fprintf(c.out, "Which display do you want to record? [%d-%d]: ", displays[0].Index, displays[len(displays)-1].Index)
		line, err := c.in.ReadString('\n')
		answer := strings.TrimSpace(line)
		if answer != "" {
			if n, convErr := strconv.Atoi(answer); convErr == nil {
				for _, d := range displays {
					if d.Index == n {
						return n, nil
					}
				}
			}
			fmt.Fprintf(c.out, "%q is not a listed display.\n", answer)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, errors.New("no display chosen")
			}
			return 0, err
		}
	}
}
