package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/colorfulnotion/raid6/common"
)

const manifestPrefix = "manifest/"

// Manifest records what the caller needs to read an object back: the
// unpadded payload size, the layout and field it was written with, and a
// digest of the payload. Blocks live on each disk under BlockName(Name, Gen)
// and every accepted write gets a new Gen. Stale lists disks that missed the
// last write and must not be trusted until repaired.
type Manifest struct {
	Name       string    `json:"name"`
	Gen        uint64    `json:"gen"`
	Size       int       `json:"size"`
	BlockSize  int       `json:"block_size"`
	Unit       int       `json:"unit"`
	Disks      int       `json:"disks"`
	Polynomial uint16    `json:"polynomial"`
	Generator  byte      `json:"generator"`
	Digest     string    `json:"digest"`
	Stale      []int     `json:"stale,omitempty"`
	Written    time.Time `json:"written"`
}

// Digest returns the hex BLAKE2b-256 of payload.
func Digest(payload []byte) string {
	return common.HexHash(payload)
}

type ManifestStore struct {
	store *PersistenceStore
}

func NewManifestStore(store *PersistenceStore) *ManifestStore {
	return &ManifestStore{store: store}
}

func (m *ManifestStore) Put(mf Manifest) error {
	if err := CheckObjectName(mf.Name); err != nil {
		return err
	}
	value, err := json.Marshal(mf)
	if err != nil {
		return err
	}
	return m.store.Put([]byte(manifestPrefix+mf.Name), value)
}

// Get returns the manifest for name; found is false when none exists.
func (m *ManifestStore) Get(name string) (mf Manifest, found bool, err error) {
	value, found, err := m.store.Get([]byte(manifestPrefix + name))
	if err != nil || !found {
		return mf, found, err
	}
	if err := json.Unmarshal(value, &mf); err != nil {
		return mf, false, fmt.Errorf("manifest %s: %w", name, err)
	}
	return mf, true, nil
}

func (m *ManifestStore) Delete(name string) error {
	return m.store.Delete([]byte(manifestPrefix + name))
}

// List returns every manifest ordered by name.
func (m *ManifestStore) List() ([]Manifest, error) {
	kvs, err := m.store.GetWithPrefix([]byte(manifestPrefix))
	if err != nil {
		return nil, err
	}
	out := make([]Manifest, 0, len(kvs))
	for _, kv := range kvs {
		var mf Manifest
		if err := json.Unmarshal(kv[1], &mf); err != nil {
			return nil, fmt.Errorf("manifest %s: %w", kv[0], err)
		}
		out = append(out, mf)
	}
	return out, nil
}
