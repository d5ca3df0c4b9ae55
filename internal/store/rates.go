package store

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/africycle/africycle/internal/reward"
	"github.com/africycle/africycle/pkg/db"
)

var ratesKey = []byte{prefixRates}

// GetRates loads the persisted rate tables. found is false when no tables
// have ever been stored, in which case the caller seeds the defaults.
func (s *Store) GetRates() (tables reward.Tables, found bool, err error) {
	raw, err := s.db.Get(ratesKey)
	if err != nil {
		if isNotFound(err) {
			return reward.Tables{}, false, nil
		}
		return reward.Tables{}, false, fmt.Errorf("get rates: %w", err)
	}
	if err := cbor.Unmarshal(raw, &tables); err != nil {
		return reward.Tables{}, false, fmt.Errorf("unmarshal rates: %w", err)
	}
	return tables, true, nil
}

// PutRates stages the rate tables on w.
func (s *Store) PutRates(w db.Writer, tables reward.Tables) error {
	raw, err := cbor.Marshal(tables)
	if err != nil {
		return fmt.Errorf("marshal rates: %w", err)
	}
	if err := w.Put(ratesKey, raw); err != nil {
		return fmt.Errorf("put rates: %w", err)
	}
	return nil
}
