package transform

import "regexp"

var (
	// filestreamOnClause matches the FILESTREAM_ON storage clause of a
	// table or index definition.
	filestreamOnClause = regexp.MustCompile(`(?i)\s*FILESTREAM_ON\s+\[[^\]]+\]`)

	// filestreamColumnModifier matches the FILESTREAM keyword as a column
	// modifier (e.g. "[Blob] VARBINARY(MAX) FILESTREAM NULL"). Matched
	// after FILESTREAM_ON so the clause form is already gone.
	filestreamColumnModifier = regexp.MustCompile(`(?i)\s+FILESTREAM\b`)

	// encryptedWithClause matches an Always Encrypted column clause,
	// including its parenthesised key/algorithm options.
	encryptedWithClause = regexp.MustCompile(`(?i)\s*ENCRYPTED\s+WITH\s*\([^)]*\)`)
)

// stripFeatureClauses removes clause-level traces of optional features the
// target server does not support. Whole-statement drops (FILESTREAM-only
// filegroups, encryption key creation) happen at batch granularity in
// dropBatch.
func (t *Transformer) stripFeatureClauses(text string) string {
	if t.ctx.StripFilestream {
		text = filestreamOnClause.ReplaceAllString(text, "")
		text = filestreamColumnModifier.ReplaceAllString(text, "")
	}

	if t.ctx.StripAlwaysEncrypted {
		text = encryptedWithClause.ReplaceAllString(text, "")
	}

	return text
}
