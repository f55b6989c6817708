package importer

import (
	"github.com/pkg/errors"
	"github.com/sqlport/sqlport/pkg/catalog"
	"github.com/sqlport/sqlport/pkg/transform"
)

// Issue reports what a dry run found wrong with one unit.
type Issue struct {
	Unit           string
	Folder         string
	MissingSecrets []string
	Unresolved     []string
}

// Validate runs every catalog unit through the transformer without a
// connection and collects all missing secrets and unresolved variables in
// a single pass, so the operator can fix the whole set at once instead of
// discovering them one failed run at a time.
func Validate(cat *catalog.Catalog, transformer *transform.Transformer) ([]Issue, error) {
	var issues []Issue

	for _, unit := range cat.Units {
		text, err := unit.Text()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read unit %s", unit.Path)
		}

		result := transformer.Transform(text)
		if len(result.MissingSecrets) == 0 && len(result.Unresolved) == 0 {
			continue
		}

		issues = append(issues, Issue{
			Unit:           unit.Name(),
			Folder:         unit.Folder,
			MissingSecrets: result.MissingSecrets,
			Unresolved:     result.Unresolved,
		})
	}

	return issues, nil
}
