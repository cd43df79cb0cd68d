package array

import (
	"context"
	"slices"

	"github.com/colorfulnotion/raid6/storage"
)

type DiskStatus struct {
	Disk      int    `json:"disk"`
	Role      string `json:"role"`
	Available bool   `json:"available"`
	Stale     bool   `json:"stale,omitempty"`
	Err       string `json:"err,omitempty"`
}

type Status struct {
	Manifest storage.Manifest `json:"manifest"`
	Disks    []DiskStatus     `json:"disks"`
	Health   Health           `json:"health"`
}

// Status probes every disk's block of name. A disk is available when its
// whole block can be read and it is not stale.
func (a *Array) Status(ctx context.Context, name string) (st Status, err error) {
	ctx, span := a.span(ctx, "Status", name)
	defer func() { endSpan(span, err) }()

	mf, err := a.manifest(name)
	if err != nil {
		return st, err
	}
	_, failed, err := a.readShards(ctx, mf)
	if err != nil {
		return st, err
	}
	st.Manifest = mf
	st.Disks = make([]DiskStatus, a.set.Len())
	for i := range st.Disks {
		ds := DiskStatus{Disk: i, Role: a.Role(i), Available: true, Stale: slices.Contains(mf.Stale, i)}
		if err, ok := failed.errs[i]; ok {
			ds.Available = false
			ds.Err = err.Error()
		}
		st.Disks[i] = ds
	}
	st.Health = HealthFor(len(failed.errs))
	return st, nil
}
