package consts

import "os"

const (
	// ModeDir is the standard file mode for creating directories
	ModeDir = os.FileMode(0o755)

	// ModeFile is the standard file mode for creating files
	ModeFile = os.FileMode(0o644)

	// BatchSeparator is the keyword that splits a unit into independently
	// executed batches when it appears alone on a line.
	BatchSeparator = "GO"

	// DatabaseNamePlaceholder is the token generated scripts carry in place of
	// the target database name. The transformer replaces it with the escaped
	// identifier of the database being imported into.
	DatabaseNamePlaceholder = "$(DatabaseName)"

	// SecretTokenPrefix marks substitution tokens that resolve from the secret
	// table rather than the variable map. Resolved values are never logged.
	SecretTokenPrefix = "SECRET_"

	// DefaultConfigFile is the project configuration file looked up in the
	// working directory.
	DefaultConfigFile = "sqlport.yaml"

	// DefaultErrorLog is where terminal failures are written when the run
	// ends with failures and no explicit path is configured.
	DefaultErrorLog = "sqlport-errors.log"
)
