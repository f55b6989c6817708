package transform

import (
	"regexp"
	"strings"

	"github.com/sqlport/sqlport/pkg/consts"
	"github.com/sqlport/sqlport/pkg/utils"
)

// Transformer applies the rewrite pipeline to unit text. Safe for reuse
// across units within a run; all state lives in the immutable Context.
type Transformer struct {
	ctx *Context
}

// New creates a transformer bound to the given context.
func New(ctx *Context) *Transformer {
	return &Transformer{ctx: ctx}
}

// variableToken matches SQLCMD-style $(NAME) substitution tokens.
var variableToken = regexp.MustCompile(`\$\(([A-Za-z0-9_]+)\)`)

// Transform runs the full pipeline over one unit's text and returns the
// executable batches. Stage order is fixed: variable substitution,
// database-name fix-up, filegroup strategy, login conversion, secret
// injection, batch splitting, feature stripping. Feature stripping runs per
// batch so that whole-statement drops (FILESTREAM-only filegroups,
// encryption key creation) can be decided before clause-level rewrites
// erase the markers they key on; generated scripts carry one statement per
// batch.
func (t *Transformer) Transform(text string) *Result {
	result := &Result{}

	text = t.substituteVariables(text, result)
	text = t.fixDatabaseName(text)
	text = t.applyFileGroupStrategy(text)
	text = t.convertLogins(text)
	text = t.injectSecrets(text, result)

	filestreamGroups := t.filestreamFilegroups(text)

	for _, batch := range SplitBatches(text) {
		if t.dropBatch(batch, filestreamGroups) {
			continue
		}
		result.Batches = append(result.Batches, t.stripFeatureClauses(batch))
	}

	return result
}

// substituteVariables replaces every mapped $(NAME) token with its value.
// Unmapped tokens are left in place and recorded; the reserved DatabaseName
// token and SECRET_-prefixed tokens belong to later stages.
func (t *Transformer) substituteVariables(text string, result *Result) string {
	seen := make(map[string]bool)

	return variableToken.ReplaceAllStringFunc(text, func(token string) string {
		name := variableToken.FindStringSubmatch(token)[1]

		if name == "DatabaseName" || strings.HasPrefix(name, consts.SecretTokenPrefix) {
			return token
		}

		if value, ok := t.ctx.Variables[name]; ok {
			return value
		}

		// Filegroup variables are synthesized by the auto-remap stage, not
		// resolved from the variable map.
		if t.ctx.FileGroups == FileGroupAutoRemap && filegroupVarToken.MatchString(token) {
			return token
		}

		if !seen[name] {
			seen[name] = true
			result.Unresolved = append(result.Unresolved, name)
		}
		return token
	})
}

// fixDatabaseName replaces the well-known current-database placeholder with
// the escaped target database identifier. Closing brackets in the database
// name are doubled so a name containing "]" cannot break out of a bracketed
// identifier in the surrounding script.
func (t *Transformer) fixDatabaseName(text string) string {
	return strings.ReplaceAll(text, consts.DatabaseNamePlaceholder, utils.EscapeIdentifier(t.ctx.Database))
}

// secretToken matches $(SECRET_KEY) password placeholders.
var secretToken = regexp.MustCompile(`\$\(` + consts.SecretTokenPrefix + `([A-Za-z0-9_]+)\)`)

// injectSecrets resolves password placeholders in master key, symmetric
// key, certificate, and application role statements from the context's
// secret table. A missing secret leaves the token in place and records the
// key, so a dry run can enumerate every missing secret in one pass.
func (t *Transformer) injectSecrets(text string, result *Result) string {
	seen := make(map[string]bool)

	return secretToken.ReplaceAllStringFunc(text, func(token string) string {
		key := secretToken.FindStringSubmatch(token)[1]

		if value, ok := t.ctx.Secrets[key]; ok {
			return value
		}

		if !seen[key] {
			seen[key] = true
			result.MissingSecrets = append(result.MissingSecrets, key)
		}
		return token
	})
}

var (
	forLoginClause = regexp.MustCompile(`(?i)FOR\s+LOGIN\s+\[[^\]]+\]`)

	// implicitWindowsUser matches CREATE USER for a domain-qualified
	// principal with no explicit FOR LOGIN clause; such a statement binds
	// to a Windows login implicitly.
	implicitWindowsUser = regexp.MustCompile(`(?im)^(\s*CREATE\s+USER\s+\[[^\]]*\\[^\]]*\])\s*(;?)\s*$`)
)

// convertLogins rewrites login-bound principals to contained users: every
// FOR LOGIN [x] clause becomes WITHOUT LOGIN, and implicit domain-qualified
// CREATE USER statements gain an explicit WITHOUT LOGIN.
func (t *Transformer) convertLogins(text string) string {
	if !t.ctx.ContainedUsers {
		return text
	}

	text = forLoginClause.ReplaceAllString(text, "WITHOUT LOGIN")
	return implicitWindowsUser.ReplaceAllString(text, "$1 WITHOUT LOGIN$2")
}

// filestreamFilegroupDecl matches the declaration of a FILESTREAM-only
// filegroup within a unit, capturing its name so file-placement statements
// targeting it can be dropped too.
var filestreamFilegroupDecl = regexp.MustCompile(`(?i)ADD\s+FILEGROUP\s+\[([^\]]+)\]\s+CONTAINS\s+FILESTREAM`)

// filestreamFilegroups collects the names of FILESTREAM-only filegroups
// declared anywhere in the unit. Declarations and their ADD FILE statements
// are scripted into the same unit, so unit scope is sufficient.
func (t *Transformer) filestreamFilegroups(text string) []string {
	if !t.ctx.StripFilestream {
		return nil
	}

	var names []string
	for _, m := range filestreamFilegroupDecl.FindAllStringSubmatch(text, -1) {
		names = append(names, m[1])
	}
	return names
}

// dropBatch decides whether a whole batch is removed by a feature strip:
// FILESTREAM-only filegroup creation (and files placed into one) and column
// encryption key creation cannot be rewritten clause-by-clause and are
// dropped as statements.
func (t *Transformer) dropBatch(batch string, filestreamGroups []string) bool {
	upper := strings.ToUpper(batch)

	if t.ctx.StripFilestream {
		if strings.Contains(upper, "CONTAINS FILESTREAM") {
			return true
		}
		for _, fg := range filestreamGroups {
			if strings.Contains(upper, "TO FILEGROUP ["+strings.ToUpper(fg)+"]") {
				return true
			}
		}
	}

	if t.ctx.StripAlwaysEncrypted {
		if strings.Contains(upper, "CREATE COLUMN MASTER KEY") || strings.Contains(upper, "CREATE COLUMN ENCRYPTION KEY") {
			return true
		}
	}

	return false
}
