// Package staging owns the per-job scratch directories under paths.staging_dir.
//
// Workers create one directory per job attempt with NewJobDir and remove it
// when the attempt ends. A daemon that crashed mid-job leaves its directory
// behind; CleanJobDirs reclaims those at the next start.
package staging
