package main

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// watchFile polls filename's mtime and reruns compile whenever it
// changes, replacing the teacher's watchFile stub (cmd/ailang/main.go,
// which just TODOs file watching and runs once) with a real poll
// loop. Uses unix.Stat directly for nanosecond mtime resolution rather
// than os.Stat's truncated ModTime, since two saves within the same
// second are common from an editor's autosave.
func watchFile(filename string, compile func() error) error {
	fmt.Printf("%s watching %s for changes (ctrl-c to stop)\n", cyan("→"), filename)

	var lastSec, lastNsec int64
	poll := func() (int64, int64, error) {
		var st unix.Stat_t
		if err := unix.Stat(filename, &st); err != nil {
			return 0, 0, err
		}
		return int64(st.Mtim.Sec), int64(st.Mtim.Nsec), nil
	}

	sec, nsec, err := poll()
	if err != nil {
		return fmt.Errorf("cannot stat %s: %w", filename, err)
	}
	lastSec, lastNsec = sec, nsec

	if err := compile(); err != nil {
		fmt.Printf("%s %v\n", red("error"), err)
	}

	for {
		time.Sleep(300 * time.Millisecond)
		sec, nsec, err := poll()
		if err != nil {
			continue
		}
		if sec == lastSec && nsec == lastNsec {
			continue
		}
		lastSec, lastNsec = sec, nsec

		fmt.Printf("%s change detected, recompiling %s\n", yellow("→"), filename)
		if err := compile(); err != nil {
			fmt.Printf("%s %v\n", red("error"), err)
		}
	}
}
