// Package setup implements the interactive first-run wizard that writes the
// possync config file and optionally installs the daemon as a user service.
package setup

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Prompter provides terminal prompts backed by an io.Reader/Writer pair. In
// production these are os.Stdin and os.Stdout; tests inject buffers.
type Prompter struct {
	scanner *bufio.Scanner
	w       io.Writer
}

// NewPrompter creates a Prompter wired to the given reader and writer.
func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(r), w: w}
}

// String prompts for a text value. Enter alone returns defaultVal. An empty
// defaultVal makes the field required and the prompt repeats until a value
// is given or input ends.
func (p *Prompter) String(label, defaultVal string) string {
	for {
		if defaultVal != "" {
			_, _ = fmt.Fprintf(p.w, "  %s [%s]: ", label, defaultVal)
		} else {
			_, _ = fmt.Fprintf(p.w, "  %s: ", label)
		}

		if !p.scanner.Scan() {
			return defaultVal
		}

		val := strings.TrimSpace(p.scanner.Text())
		if val == "" {
			if defaultVal != "" {
				return defaultVal
			}
			_, _ = fmt.Fprintf(p.w, "  (required, please enter a value)\n")
			continue
		}
		return val
	}
}

// Secret prompts for a sensitive value such as an API token. The input is
// not masked. An empty currentVal makes the value required; otherwise Enter
// keeps it.
func (p *Prompter) Secret(label, currentVal string) string {
	for {
		if currentVal != "" {
			_, _ = fmt.Fprintf(p.w, "  %s [keep current]: ", label)
		} else {
			_, _ = fmt.Fprintf(p.w, "  %s: ", label)
		}

		if !p.scanner.Scan() {
			return currentVal
		}

		val := strings.TrimSpace(p.scanner.Text())
		if val == "" {
			if currentVal != "" {
				return currentVal
			}
			_, _ = fmt.Fprintf(p.w, "  (required, please enter a value)\n")
			continue
		}
		return val
	}
}

// Confirm asks a yes/no question. defaultYes decides what Enter means.
func (p *Prompter) Confirm(label string, defaultYes bool) bool {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}

	_, _ = fmt.Fprintf(p.w, "  %s %s: ", label, hint)

	if !p.scanner.Scan() {
		return defaultYes
	}

	answer := strings.TrimSpace(strings.ToLower(p.scanner.Text()))
	if answer == "" {
		return defaultYes
	}
	return answer == "y" || answer == "yes"
}

// Int prompts for an integer in [lo, hi], repeating on invalid input. Enter
// or end of input returns defaultVal.
func (p *Prompter) Int(label string, defaultVal, lo, hi int) int {
	for {
		_, _ = fmt.Fprintf(p.w, "  %s (%d-%d) [%d]: ", label, lo, hi, defaultVal)

		if !p.scanner.Scan() {
			return defaultVal
		}

		val := strings.TrimSpace(p.scanner.Text())
		if val == "" {
			return defaultVal
		}
		n, err := strconv.Atoi(val)
		if err != nil || n < lo || n > hi {
			_, _ = fmt.Fprintf(p.w, "  (enter a number between %d and %d)\n", lo, hi)
			continue
		}
		return n
	}
}

// Duration prompts for a Go duration string such as "30s" or "2m" in
// [lo, hi], repeating on invalid input.
func (p *Prompter) Duration(label string, defaultVal, lo, hi time.Duration) time.Duration {
	for {
		_, _ = fmt.Fprintf(p.w, "  %s (%s-%s) [%s]: ", label, lo, hi, defaultVal)

		if !p.scanner.Scan() {
			return defaultVal
		}

		val := strings.TrimSpace(p.scanner.Text())
		if val == "" {
			return defaultVal
		}
		d, err := time.ParseDuration(val)
		if err != nil || d < lo || d > hi {
			_, _ = fmt.Fprintf(p.w, "  (enter a duration between %s and %s, e.g. 1m)\n", lo, hi)
			continue
		}
		return d
	}
}
