package main

import (
	"fmt"

	"github.com/colorfulnotion/raid6/array"
	"github.com/colorfulnotion/raid6/common"
	"github.com/xlab/treeprint"
)

func colorHealth(h array.Health) string {
	color := common.ColorGreen
	switch h {
	case array.Degraded1, array.Degraded2:
		color = common.ColorYellow
	case array.Failed:
		color = common.ColorRed
	}
	return color + h.String() + common.ColorReset
}

// statusTree renders an object and its disks as a tree.
func statusTree(st array.Status) treeprint.Tree {
	mf := st.Manifest
	tree := treeprint.New()
	tree.SetValue(fmt.Sprintf("%s%s%s (%d bytes, block %d, unit %d) %s",
		common.ColorBlue, mf.Name, common.ColorReset, mf.Size, mf.BlockSize, mf.Unit, colorHealth(st.Health)))
	for _, d := range st.Disks {
		state := common.ColorGreen + "ok" + common.ColorReset
		switch {
		case d.Stale:
			state = common.ColorYellow + "stale" + common.ColorReset
		case !d.Available:
			state = common.ColorRed + "unavailable" + common.ColorReset
		}
		branch := tree.AddMetaBranch(d.Role, fmt.Sprintf("disk %d %s", d.Disk, state))
		if d.Err != "" && !d.Stale {
			branch.AddNode(common.ColorGray + d.Err + common.ColorReset)
		}
	}
	return tree
}
