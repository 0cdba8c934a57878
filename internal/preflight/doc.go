// Package preflight provides readiness checks for the filesystem paths,
// binaries and external services scribe depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs every failed check; the
//     /api/status endpoint reports CheckSystemDeps and the staging free space.
//   - The CLI "scribe daemon status" command renders the same results.
//
// Each check is gated by its config: the engine API probe only runs for the
// whisper_api engine and the redis probe only for the redis cache backend.
package preflight
