package catalog

import (
	"io/fs"
	"path"
	"strings"

	"github.com/pkg/errors"
)

type (
	// Filter narrows the unit set by object type and schema name. Type
	// filters override the mode's default folder gating; schema exclusion
	// only applies to schema-bound object folders so a security principal
	// whose name happens to contain a matching dot-segment is never dropped.
	Filter struct {
		// IncludeTypes, when non-empty, keeps only units of the listed types.
		// Requesting any security sub-type implicitly keeps the whole
		// Security class (users are unusable without their roles).
		IncludeTypes []ObjectType

		// ExcludeTypes drops units of the listed types. User sub-types are
		// matched against the content-derived classification, so e.g.
		// WindowsUser can be excluded while SqlUser files survive.
		ExcludeTypes []ObjectType

		// ExcludeSchemas drops schema-bound units whose file name is
		// qualified with one of the listed schemas.
		ExcludeSchemas []string
	}

	// Builder walks a source tree and produces the ordered unit catalog.
	Builder struct {
		// Mode gates folder inclusion (dev vs prod defaults).
		Mode Mode

		// Filter holds the optional include/exclude lists.
		Filter Filter

		// IncludeData enumerates the Data folder so bulk data is imported
		// after the schema.
		IncludeData bool
	}

	// Catalog is the ordered result of a build: every unit that passed
	// gating plus the folders skipped by mode settings.
	Catalog struct {
		Units          []*Unit
		SkippedFolders []string
	}

	folderSpec struct {
		name        string
		category    Category
		objType     ObjectType
		prodOnly    bool
		schemaBound bool
	}
)

// folders lists the known source folders in their on-disk naming. Slice
// order is irrelevant to execution order, which the orchestrator fixes per
// category; it only determines enumeration order inside the catalog.
var folders = []folderSpec{
	{name: "Security", category: CategorySecurity, objType: TypeRole},
	{name: "FileGroups", category: CategoryDatabaseConfig, objType: TypeFileGroup, prodOnly: true},
	{name: "DatabaseConfiguration", category: CategoryDatabaseConfig, objType: TypeDatabaseSetting, prodOnly: true},
	{name: "ExternalData", category: CategoryDatabaseConfig, objType: TypeExternalDataSource, prodOnly: true},
	{name: "Sequences", category: CategorySchema, objType: TypeSequence, schemaBound: true},
	{name: "Tables", category: CategorySchema, objType: TypeTable, schemaBound: true},
	{name: "Indexes", category: CategorySchema, objType: TypeIndex, schemaBound: true},
	{name: "Synonyms", category: CategorySchema, objType: TypeSynonym, schemaBound: true},
	{name: "Views", category: CategoryProgrammable, objType: TypeView, schemaBound: true},
	{name: "Functions", category: CategoryProgrammable, objType: TypeFunction, schemaBound: true},
	{name: "StoredProcedures", category: CategoryProgrammable, objType: TypeStoredProcedure, schemaBound: true},
	{name: "Triggers", category: CategoryProgrammable, objType: TypeTrigger, schemaBound: true},
	{name: "SecurityPolicies", category: CategorySecurityPolicy, objType: TypeSecurityPolicy, prodOnly: true, schemaBound: true},
	{name: "Data", category: CategoryData, objType: TypeTableData, schemaBound: true},
}

var securityTypes = []ObjectType{
	TypeRole, TypeSchema, TypeWindowsUser, TypeSQLUser, TypeExternalUser, TypeCertificateUser,
}

// Build enumerates the source tree and returns the filtered, ordered
// catalog. Within each folder, units are ordered lexicographically by full
// path (fs.WalkDir walks in lexical order). An empty result is a hard
// failure surfaced as ErrEmptyCatalog.
func (b *Builder) Build(fsys fs.FS) (*Catalog, error) {
	cat := &Catalog{}

	for _, spec := range folders {
		if !b.folderIncluded(spec) {
			if b.folderGatedByMode(spec) {
				cat.SkippedFolders = append(cat.SkippedFolders, spec.name)
			}
			continue
		}

		units, err := b.walkFolder(fsys, spec)
		if err != nil {
			return nil, err
		}
		cat.Units = append(cat.Units, units...)
	}

	if len(cat.Units) == 0 {
		return nil, ErrEmptyCatalog
	}

	return cat, nil
}

// folderIncluded applies mode defaults and type-filter overrides to decide
// whether a folder is enumerated at all.
func (b *Builder) folderIncluded(spec folderSpec) bool {
	if spec.category == CategoryData && !b.IncludeData {
		return false
	}

	if len(b.Filter.IncludeTypes) > 0 {
		return b.typeRequested(spec)
	}

	if spec.prodOnly && b.Mode != ModeProd {
		return false
	}

	// A folder whose every unit would be excluded by type is skipped
	// outright, except Security where sub-types are content-derived.
	if spec.category != CategorySecurity && containsType(b.Filter.ExcludeTypes, spec.objType) {
		return false
	}

	return true
}

func (b *Builder) folderGatedByMode(spec folderSpec) bool {
	return spec.prodOnly && b.Mode != ModeProd && len(b.Filter.IncludeTypes) == 0
}

// typeRequested reports whether an explicit include list pulls this folder
// in. Any requested security sub-type keeps the whole Security folder.
func (b *Builder) typeRequested(spec folderSpec) bool {
	if spec.category == CategoryData {
		return b.IncludeData
	}

	if spec.category == CategorySecurity {
		for _, st := range securityTypes {
			if containsType(b.Filter.IncludeTypes, st) {
				return true
			}
		}
		return false
	}

	return containsType(b.Filter.IncludeTypes, spec.objType)
}

func (b *Builder) walkFolder(fsys fs.FS, spec folderSpec) ([]*Unit, error) {
	if _, err := fs.Stat(fsys, spec.name); err != nil {
		// Missing folders are simply absent from the tree, not an error.
		return nil, nil
	}

	var units []*Unit

	err := fs.WalkDir(fsys, spec.name, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(path.Ext(p), ".sql") {
			return nil
		}

		unit := &Unit{
			Path:     p,
			Folder:   spec.name,
			Category: spec.category,
			Type:     spec.objType,
			fsys:     fsys,
		}

		if spec.category == CategorySecurity {
			if err := classifySecurityUnit(unit); err != nil {
				return err
			}
		}

		if b.excluded(unit, spec) {
			return nil
		}

		units = append(units, unit)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to enumerate folder: %s", spec.name)
	}

	return units, nil
}

func (b *Builder) excluded(unit *Unit, spec folderSpec) bool {
	if containsType(b.Filter.ExcludeTypes, unit.Type) {
		return true
	}

	if len(b.Filter.IncludeTypes) > 0 && spec.category != CategorySecurity {
		if !containsType(b.Filter.IncludeTypes, unit.Type) {
			return true
		}
	}

	if spec.schemaBound {
		schema := unit.SchemaName()
		for _, excluded := range b.Filter.ExcludeSchemas {
			if strings.EqualFold(schema, excluded) {
				return true
			}
		}
	}

	return false
}

// classifySecurityUnit refines a security principal's object type by
// inspecting file content rather than file name. Marker contract (first
// match wins, case-insensitive):
//
//   - FOR CERTIFICATE / FOR ASYMMETRIC KEY  => certificate-mapped user
//   - EXTERNAL PROVIDER                     => external (AAD) user
//   - FOR LOGIN containing a backslash      => Windows user
//   - FOR LOGIN without backslash,
//     or WITHOUT LOGIN                      => SQL user
//   - CREATE SCHEMA                         => schema
//   - anything else                         => role
func classifySecurityUnit(unit *Unit) error {
	text, err := unit.Text()
	if err != nil {
		return err
	}
	upper := strings.ToUpper(text)

	switch {
	case strings.Contains(upper, "FOR CERTIFICATE"), strings.Contains(upper, "FOR ASYMMETRIC KEY"):
		unit.Type = TypeCertificateUser
	case strings.Contains(upper, "EXTERNAL PROVIDER"):
		unit.Type = TypeExternalUser
	case strings.Contains(upper, "FOR LOGIN"):
		if forLoginHasBackslash(upper) {
			unit.Type = TypeWindowsUser
		} else {
			unit.Type = TypeSQLUser
		}
	case strings.Contains(upper, "WITHOUT LOGIN"):
		unit.Type = TypeSQLUser
	case strings.Contains(upper, "CREATE SCHEMA"):
		unit.Type = TypeSchema
	default:
		unit.Type = TypeRole
	}

	return nil
}

// forLoginHasBackslash checks for a domain-qualified login name in the
// clause following FOR LOGIN.
func forLoginHasBackslash(upper string) bool {
	i := strings.Index(upper, "FOR LOGIN")
	rest := upper[i+len("FOR LOGIN"):]
	if end := strings.IndexAny(rest, "\r\n;"); end >= 0 {
		rest = rest[:end]
	}
	return strings.Contains(rest, "\\")
}

func containsType(types []ObjectType, t ObjectType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// ByCategory returns the catalog's units of one execution class, in
// enumeration order.
func (c *Catalog) ByCategory(category Category) []*Unit {
	var units []*Unit
	for _, u := range c.Units {
		if u.Category == category {
			units = append(units, u)
		}
	}
	return units
}

// DataTables returns the schema.table identities of the data units being
// loaded, for restricting the dependency graph to in-scope tables.
func (c *Catalog) DataTables() []string {
	var tables []string
	for _, u := range c.ByCategory(CategoryData) {
		if id, ok := u.TableID(); ok {
			tables = append(tables, id)
		}
	}
	return tables
}
