// Package logs reads the daemon log file for `scribe logs`.
//
// Last returns the trailing lines of the file with bounded memory; Follow
// polls for lines appended after an offset until its context ends. Only
// complete lines are returned, so a record the daemon is still writing is
// picked up on the next poll rather than split in two.
package logs
