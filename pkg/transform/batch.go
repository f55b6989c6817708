package transform

import (
	"regexp"
	"strconv"
	"strings"
)

// batchSeparatorLine matches a line consisting solely of the GO batch
// separator, optionally followed by a repeat count and/or a trailing line
// comment, matching the reference sqlcmd behavior.
var batchSeparatorLine = regexp.MustCompile(`(?i)^\s*GO(?:\s+(\d+))?\s*(?:--.*)?$`)

// SplitBatches splits unit text on GO separator lines into independently
// executable batches. A repeat count after GO duplicates the preceding
// batch that many times. Batches are trimmed; empty batches are dropped.
//
// Per-batch autonomy is deliberate: batches run in order within the same
// transaction-less session, and a later batch's failure does not roll back
// an earlier one.
func SplitBatches(text string) []string {
	var (
		batches []string
		current []string
	)

	flush := func(repeat int) {
		batch := strings.TrimSpace(strings.Join(current, "\n"))
		current = current[:0]
		if batch == "" {
			return
		}
		for i := 0; i < repeat; i++ {
			batches = append(batches, batch)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		m := batchSeparatorLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			current = append(current, strings.TrimRight(line, "\r"))
			continue
		}

		repeat := 1
		if m[1] != "" {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				repeat = n
			}
		}
		flush(repeat)
	}

	flush(1)
	return batches
}
