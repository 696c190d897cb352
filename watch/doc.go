// Package watch is the public surface of the filewatch engine.
//
// A Session watches one file or one directory and invokes a callback once
// per observed change, normalized into a small portable vocabulary: Added,
// Removed, Modified, RenamedOld, RenamedNew.
//
//	// Watch a directory
//	session, err := watch.New("/tmp/w", func(path string, kind watch.EventKind) {
//		fmt.Printf("%s: %s\n", kind, path)
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer session.Close()
//
//	// Watch a single file: the containing directory is registered and
//	// events are filtered down to the one name.
//	session, err := watch.New("/etc/hosts", onChange)
//
//	// With a structured logger
//	session, err := watch.NewWithOptions(dir, onChange, watch.Options{Logger: logger})
//
// Callbacks run on a dedicated dispatch goroutine, strictly in the order
// the OS reported the underlying changes, never concurrently with each
// other. Close blocks until already-queued events have been delivered and
// the OS handle is released.
//
// A rename arrives as two independent events, RenamedOld then RenamedNew,
// with no pairing metadata beyond arrival order. Bursts larger than the
// fixed receive buffer are truncated by the OS; delivery under event storms
// is lossy by contract.
package watch
