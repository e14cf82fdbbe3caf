package fiberrt

import "os"

// osExit is a package-level indirection over os.Exit so sysmon's deadlock
// abort path can be swapped out in tests without terminating the test
// binary (SPEC_FULL.md §10 REDESIGN FLAG on testability).
var osExit = os.Exit
