package cart

import (
	"encoding/json"
	"fmt"
)

// envelope is the persisted layout: a named, versioned state blob.
type envelope struct {
	Name    string          `json:"name"`
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
}

type state struct {
	Items  []LineItem `json:"items"`
	IsOpen bool       `json:"isOpen"`
}

// Migration rewrites a state blob from version N to N+1.
type Migration func(state json.RawMessage) (json.RawMessage, error)

// migrations is keyed by the version a migration upgrades from.
var migrations = map[int]Migration{
	0: migrateV0,
}

// Snapshot encodes the cart in the current schema version.
func (c *Cart) Snapshot() ([]byte, error) {
	st, err := json.Marshal(state{Items: c.items, IsOpen: c.open})
	if err != nil {
		return nil, fmt.Errorf("marshal cart state: %w", err)
	}
	data, err := json.Marshal(envelope{Name: StorageName, Version: CurrentVersion, State: st})
	if err != nil {
		return nil, fmt.Errorf("marshal cart snapshot: %w", err)
	}
	return data, nil
}

// Restore replaces the cart contents with a stored snapshot, migrating older
// versions forward. Snapshots that cannot be read, carry a foreign name, are
// newer than this build, or lack a migration path leave the cart empty and
// return ErrSnapshotReset.
func (c *Cart) Restore(data []byte) error {
	c.items = []LineItem{}
	c.open = false

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ErrSnapshotReset
	}
	if env.Name != StorageName || env.Version > CurrentVersion || env.Version < 0 {
		return ErrSnapshotReset
	}

	raw := env.State
	for v := env.Version; v < CurrentVersion; v++ {
		m, ok := migrations[v]
		if !ok {
			return ErrSnapshotReset
		}
		next, err := m(raw)
		if err != nil {
			return ErrSnapshotReset
		}
		raw = next
	}

	var st state
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &st); err != nil {
			return ErrSnapshotReset
		}
	}

	// Lines for the same variant collapse into the first one, keeping its
	// ID and ceiling.
restore:
	for _, li := range st.Items {
		if li.ID == "" || li.Quantity <= 0 || li.MaxQuantity <= 0 {
			continue
		}
		for i := range c.items {
			if c.items[i].sameVariant(li) {
				c.items[i].Quantity = min(c.items[i].Quantity+li.Quantity, c.items[i].MaxQuantity)
				continue restore
			}
		}
		li.Quantity = min(li.Quantity, li.MaxQuantity)
		c.items = append(c.items, li)
	}
	c.open = st.IsOpen
	return nil
}

// migrateV0 upgrades unversioned carts, which did not record a stock ceiling,
// by pinning maxQuantity to the stored quantity.
func migrateV0(raw json.RawMessage) (json.RawMessage, error) {
	var st struct {
		Items  []map[string]interface{} `json:"items"`
		IsOpen bool                     `json:"isOpen"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &st); err != nil {
			return nil, err
		}
	}
	for _, it := range st.Items {
		if mq, ok := it["maxQuantity"].(float64); ok && mq > 0 {
			continue
		}
		it["maxQuantity"] = it["quantity"]
	}
	return json.Marshal(st)
}
