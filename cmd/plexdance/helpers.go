package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"plexdance/internal/ledger"
)

var titleCaser = cases.Title(language.English)

// humanState renders a ledger state for table output ("staged_out" becomes
// "Staged Out").
func humanState(state ledger.State) string {
	return titleCaser.String(strings.ReplaceAll(string(state), "_", " "))
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// confirmProceed asks the operator before physical moves begin. Without a
// terminal on stdin the answer must come from --yes.
func confirmProceed(cmd *cobra.Command, assumeYes bool, prompt string) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return false, errors.New("refusing to move directories without confirmation; re-run with --yes")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func truncatePath(path string, max int) string {
	if len(path) <= max {
		return path
	}
	return "..." + path[len(path)-max+3:]
}
