// Package catalog enumerates the SQL unit files of a scripted database
// source tree and partitions them into ordered execution classes.
//
// A source tree is laid out as one folder per object class (Tables, Views,
// StoredProcedures, ...). The builder walks each folder in lexical order,
// applies mode and filter gating, and produces the ordered unit list the
// import orchestrator executes stage by stage.
package catalog

import (
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

type (
	// Category is the logical execution class a unit belongs to. Ordering
	// across categories is owned by the import orchestrator; the catalog only
	// orders units within a category.
	Category string

	// ObjectType tags the database object kind a unit creates.
	ObjectType string

	// Mode selects which folders are included by default. Dev skips the
	// physical-storage and policy folders that only make sense on a
	// production-shaped server.
	Mode string

	// Unit is one SQL file to apply. Immutable once enumerated; its text is
	// loaded lazily on first use and cached.
	Unit struct {
		// Path is the path of the file within the source tree.
		Path string

		// Folder is the top-level source folder the unit came from.
		Folder string

		// Category is the execution class of the unit.
		Category Category

		// Type is the object-type tag, refined by content inspection for
		// security principal files.
		Type ObjectType

		fsys fs.FS

		once sync.Once
		text string
		err  error
	}
)

const (
	CategorySecurity       Category = "Security"
	CategoryDatabaseConfig Category = "DatabaseConfig"
	CategorySchema         Category = "Schema"
	CategoryProgrammable   Category = "Programmability"
	CategorySecurityPolicy Category = "SecurityPolicy"
	CategoryData           Category = "Data"
)

const (
	TypeRole               ObjectType = "Role"
	TypeSchema             ObjectType = "Schema"
	TypeWindowsUser        ObjectType = "WindowsUser"
	TypeSQLUser            ObjectType = "SqlUser"
	TypeExternalUser       ObjectType = "ExternalUser"
	TypeCertificateUser    ObjectType = "CertificateUser"
	TypeFileGroup          ObjectType = "FileGroup"
	TypeDatabaseSetting    ObjectType = "DatabaseSetting"
	TypeExternalDataSource ObjectType = "ExternalDataSource"
	TypeSequence           ObjectType = "Sequence"
	TypeTable              ObjectType = "Table"
	TypeIndex              ObjectType = "Index"
	TypeSynonym            ObjectType = "Synonym"
	TypeView               ObjectType = "View"
	TypeFunction           ObjectType = "Function"
	TypeStoredProcedure    ObjectType = "StoredProcedure"
	TypeTrigger            ObjectType = "Trigger"
	TypeSecurityPolicy     ObjectType = "SecurityPolicy"
	TypeTableData          ObjectType = "TableData"
)

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

// ErrEmptyCatalog is returned when filtering leaves no units to apply. An
// import with nothing to do is a configuration error, not a no-op.
var ErrEmptyCatalog = errors.New("catalog contains no units to apply")

// Name returns the unit's file name without the .sql extension.
func (u *Unit) Name() string {
	base := path.Base(u.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Text returns the unit's raw SQL text, loading it from the source tree on
// first call.
func (u *Unit) Text() (string, error) {
	u.once.Do(func() {
		f, err := u.fsys.Open(u.Path)
		if err != nil {
			u.err = errors.Wrapf(err, "failed to open unit: %s", u.Path)
			return
		}
		defer func() { _ = f.Close() }()

		content, err := io.ReadAll(f)
		if err != nil {
			u.err = errors.Wrapf(err, "failed to read unit: %s", u.Path)
			return
		}
		u.text = string(content)
	})

	return u.text, u.err
}

// SchemaName returns the schema part of a schema-qualified file name
// (dbo.Orders.sql -> "dbo"). Files without a dot-qualified name return "".
func (u *Unit) SchemaName() string {
	schema, _, ok := splitQualifiedName(u.Name())
	if !ok {
		return ""
	}
	return schema
}

// TableID returns the schema.table identity of a data unit, derived from its
// file name. ok is false for units that are not schema-qualified.
func (u *Unit) TableID() (string, bool) {
	schema, object, ok := splitQualifiedName(u.Name())
	if !ok {
		return "", false
	}
	return schema + "." + object, true
}

func splitQualifiedName(name string) (schema, object string, ok bool) {
	i := strings.Index(name, ".")
	if i <= 0 || i == len(name)-1 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}
