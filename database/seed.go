package database

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"yatube/domain"
)

// LoadGroups reads the groups to seed from a json file holding an array of
// {"title", "slug", "description"} objects. An empty path means no groups.
func LoadGroups(path string) ([]domain.Group, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening groups file %s", path)
	}
	defer f.Close()

	var groups []domain.Group
	if err := json.NewDecoder(f).Decode(&groups); err != nil {
		return nil, errors.Wrapf(err, "decoding groups file %s", path)
	}
	return groups, nil
}
