package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

// PromptForInstruction asks for a custom style description on out and reads
// one line from in. Returns "" when nothing usable was entered.
func PromptForInstruction(in io.Reader, out io.Writer) string {
	fmt.Fprint(out, "Describe your style: ")

	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		log.Warn().Err(err).Msg("Failed to read custom instruction")
		return ""
	}

	return strings.TrimSpace(input)
}
