package transform

import (
	"regexp"
	"strings"
)

// Auto-remap size defaults. Developer machines import many databases; the
// smallest allocation the server accepts keeps disks from filling up.
const (
	autoRemapSize   = "1024KB"
	autoRemapGrowth = "1024KB"
)

// filegroupVarToken matches the generated filegroup variable triplet:
// $(FG_<NAME>_PATH_FILE), $(FG_<NAME>_SIZE), $(FG_<NAME>_FILEGROWTH).
var filegroupVarToken = regexp.MustCompile(`\$\(FG_([A-Za-z0-9_]+?)_(PATH_FILE|SIZE|FILEGROWTH)\)`)

var (
	// onFilegroupClause matches a storage clause "... ) ON [fg]" optionally
	// carrying a partition column list "ON [scheme]([col])". The leading
	// closing paren distinguishes it from "ON [schema].[table]" in index
	// creation, which follows an identifier rather than a paren.
	onFilegroupClause = regexp.MustCompile(`(?i)\)(\s*)ON\s+\[[^\]]+\](\s*\(\s*\[[^\]]+\]\s*\))?`)

	textimageClause = regexp.MustCompile(`(?i)TEXTIMAGE_ON\s+\[[^\]]+\]`)

	// partitionSchemeTargets matches the filegroup list of a CREATE
	// PARTITION SCHEME "TO ([fg1], [fg2], ...)" clause.
	partitionSchemeTargets = regexp.MustCompile(`(?i)TO\s*\(\s*\[[^)]*\]\s*\)`)
)

// applyFileGroupStrategy rewrites filegroup references per the configured
// strategy. Explicit mapping needs no rewriting here: its variables were
// already substituted by the variable stage.
func (t *Transformer) applyFileGroupStrategy(text string) string {
	switch t.ctx.FileGroups {
	case FileGroupAutoRemap:
		return t.autoRemapFileGroups(text)
	case FileGroupRemoveToPrimary:
		return t.removeFileGroupsToPrimary(text)
	default:
		return text
	}
}

// autoRemapFileGroups synthesizes physical file values for every filegroup
// variable: a unique per-database file path under the server's default data
// directory, and safe minimal size and growth.
func (t *Transformer) autoRemapFileGroups(text string) string {
	return filegroupVarToken.ReplaceAllStringFunc(text, func(token string) string {
		m := filegroupVarToken.FindStringSubmatch(token)
		name, kind := m[1], m[2]

		switch kind {
		case "PATH_FILE":
			return t.dataFilePath(name)
		case "SIZE":
			return autoRemapSize
		default:
			return autoRemapGrowth
		}
	})
}

func (t *Transformer) dataFilePath(filegroup string) string {
	dir := t.ctx.DataPath
	if dir != "" && !strings.HasSuffix(dir, "\\") && !strings.HasSuffix(dir, "/") {
		if strings.Contains(dir, "\\") {
			dir += "\\"
		} else {
			dir += "/"
		}
	}
	return dir + t.ctx.Database + "_" + filegroup + ".ndf"
}

// removeFileGroupsToPrimary rewrites every storage clause to the primary
// filegroup: table/index ON clauses (including partition schemes with their
// column list), TEXTIMAGE_ON clauses, and partition scheme target lists.
// Memory-optimized filegroups cannot live on PRIMARY; text creating them is
// returned verbatim.
func (t *Transformer) removeFileGroupsToPrimary(text string) string {
	if strings.Contains(strings.ToUpper(text), "MEMORY_OPTIMIZED_DATA") {
		return text
	}

	text = onFilegroupClause.ReplaceAllString(text, ")${1}ON [PRIMARY]")
	text = textimageClause.ReplaceAllString(text, "TEXTIMAGE_ON [PRIMARY]")

	text = partitionSchemeTargets.ReplaceAllStringFunc(text, func(clause string) string {
		// Keep the partition arity: one PRIMARY entry per original target.
		count := strings.Count(clause, ",") + 1
		targets := make([]string, count)
		for i := range targets {
			targets[i] = "[PRIMARY]"
		}
		return "TO (" + strings.Join(targets, ", ") + ")"
	})

	return text
}
