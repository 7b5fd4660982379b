package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/memberdesk/memberdesk/internal/models"
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// confirm asks before a review decision. --yes skips the prompt, and without
// a terminal the flag is required.
func confirm(env *Env, label string, yes bool) error {
	if yes {
		return nil
	}
	if !env.Interactive {
		return errors.New("confirmation required in non-interactive mode (use --yes)")
	}

	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return errors.New("cancelled")
		}
		return fmt.Errorf("confirmation failed: %w", err)
	}
	return nil
}

func newTable(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	rules := make([]string, len(headers))
	for i, h := range headers {
		rules[i] = strings.Repeat("─", len([]rune(h)))
	}
	fmt.Fprintln(tw, strings.Join(rules, "\t"))
	return tw
}

func printPageFooter(w io.Writer, meta models.PaginationMeta) {
	if meta.LastPage == 0 {
		return
	}
	fmt.Fprintf(w, "\nPage %d of %d (%d total)\n", meta.CurrentPage, meta.LastPage, meta.Total)
	if meta.CurrentPage < meta.LastPage {
		fmt.Fprintf(w, "Next page: --page %d\n", meta.CurrentPage+1)
	}
}

// printFields writes label/value pairs as an aligned block
func printFields(w io.Writer, pairs ...string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(tw, "%s:\t%s\n", pairs[i], pairs[i+1])
	}
	tw.Flush()
}

func str(p *string) string {
	if p == nil || *p == "" {
		return "-"
	}
	return *p
}

func date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func timestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func money(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

func intOrDash(p *int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}
