// Command scribe is the command-line client for the scribed daemon.
//
// It submits jobs, inspects and cancels them, downloads exports and QA
// reports, and manages the configuration file. Every job command talks to the
// daemon's HTTP API at paths.api_bind (override with --api); `scribe logs`
// reads the daemon log file directly.
package main
