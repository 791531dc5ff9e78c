package agent

import (
	"fmt"
	"strings"
)

// noCodeTurn is sent when a reply contained no code block.
const noCodeTurn = "Error: We could not extract code because you may not have used repl block!"

// bootstrapTurn is the first user turn: the probe and what it printed.
func bootstrapTurn(truncateLen int, probe, output string) string {
	return fmt.Sprintf("Outputs will always be truncated to last %d characters.\ncode:\n```repl\n%s\n```\n\nOutput:\n%s",
		truncateLen, probe, output)
}

// outputTurn feeds the (already truncated) output of a step back.
func outputTurn(truncated string) string {
	return "Output: \n" + truncated
}

// hasErrorMarker reports whether output looks like a failure.
func hasErrorMarker(output string) bool {
	return strings.Contains(output, "Error") || strings.Contains(output, "panic:")
}
