// Package transform rewrites a unit's SQL text before execution.
//
// Transformation is an ordered, idempotent pipeline of pure text rewrites:
// variable substitution, database-name fix-up, filegroup strategy, feature
// stripping, login-to-contained-user conversion, secret injection, and
// batch splitting. Every stage operates on controlled, template-shaped SQL
// text with a documented pattern contract; none of them parse SQL.
package transform

type (
	// FileGroupStrategy selects how filegroup references in generated
	// scripts are adapted to the target server's physical storage.
	FileGroupStrategy string

	// Context carries the configuration-derived inputs of the pipeline. It
	// is built once per import run and passed by reference to every
	// transformation; it is never mutated after construction.
	Context struct {
		// Database is the target database name substituted for the
		// generated scripts' database-name placeholder.
		Database string

		// Variables maps SQLCMD-style $(NAME) tokens to their values.
		// Unmapped tokens are left as-is so execution fails with a clear
		// server-side error instead of a silent blank.
		Variables map[string]string

		// Secrets maps secret keys to plaintext values for password
		// placeholders. Values are never logged.
		Secrets map[string]string

		// DataPath is the server's default data directory, used by the
		// auto-remap filegroup strategy to synthesize file paths.
		DataPath string

		// FileGroups selects the filegroup rewrite strategy.
		FileGroups FileGroupStrategy

		// StripFilestream removes FILESTREAM clauses and drops statements
		// that exclusively target FILESTREAM storage.
		StripFilestream bool

		// StripAlwaysEncrypted removes ENCRYPTED WITH column clauses and
		// drops column key creation statements.
		StripAlwaysEncrypted bool

		// ContainedUsers converts FOR LOGIN principals to contained
		// (WITHOUT LOGIN) users.
		ContainedUsers bool
	}

	// Result is the outcome of transforming one unit: the executable
	// batches plus the warnings a dry run enumerates.
	Result struct {
		// Batches are the unit's batches in execution order. Each batch is
		// executed independently; a later batch's failure does not roll
		// back an earlier one.
		Batches []string

		// MissingSecrets lists secret keys referenced by the unit that the
		// context could not resolve. A missing secret is a warning, not an
		// abort, so one pass can enumerate all of them.
		MissingSecrets []string

		// Unresolved lists $(NAME) tokens with no mapping in the context.
		Unresolved []string
	}
)

const (
	// FileGroupExplicit substitutes pre-resolved path/size/growth variables
	// from the context's variable map.
	FileGroupExplicit FileGroupStrategy = "explicit"

	// FileGroupAutoRemap synthesizes per-database file paths under the
	// server's default data directory with safe minimal sizes.
	FileGroupAutoRemap FileGroupStrategy = "auto"

	// FileGroupRemoveToPrimary rewrites filegroup references to the primary
	// filegroup, except memory-optimized filegroups which cannot be
	// remapped and are created verbatim.
	FileGroupRemoveToPrimary FileGroupStrategy = "remove"
)
