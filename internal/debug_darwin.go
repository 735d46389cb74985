package internal

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mutagen-io/fsevents"
)

var fsEventsFlagNames = []struct {
	n string
	m fsevents.EventFlags
}{
	{"MustScanSubDirs", fsevents.MustScanSubDirs},
	{"UserDropped", fsevents.UserDropped},
	{"KernelDropped", fsevents.KernelDropped},
	{"RootChanged", fsevents.RootChanged},
	{"Mount", fsevents.Mount},
	{"Unmount", fsevents.Unmount},
	{"ItemCreated", fsevents.ItemCreated},
	{"ItemRemoved", fsevents.ItemRemoved},
	{"ItemInodeMetaMod", fsevents.ItemInodeMetaMod},
	{"ItemRenamed", fsevents.ItemRenamed},
	{"ItemModified", fsevents.ItemModified},
	{"ItemFinderInfoMod", fsevents.ItemFinderInfoMod},
	{"ItemChangeOwner", fsevents.ItemChangeOwner},
	{"ItemXattrMod", fsevents.ItemXattrMod},
	{"ItemIsFile", fsevents.ItemIsFile},
	{"ItemIsDir", fsevents.ItemIsDir},
	{"ItemIsSymlink", fsevents.ItemIsSymlink},
}

// Debug traces a raw FSEvents flag set to stderr; enabled the same way as
// the Linux and Windows backends, via FSWATCH_DEBUG.
func Debug(name string, flags fsevents.EventFlags) {
	var l []string
	for _, n := range fsEventsFlagNames {
		if flags&n.m == n.m {
			l = append(l, n.n)
		}
	}
	fmt.Fprintf(os.Stderr, "%s  %-40s → %s\n", time.Now().Format("15:04:05.0000"), strings.Join(l, " | "), name)
}
