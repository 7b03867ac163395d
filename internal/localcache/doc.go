// Package localcache implements the local persisted tier: one payload file
// plus one sidecar metadata file per dataset id. Writes go through a temp
// file + rename so readers never observe partial entries, with an in-process
// entry lock and a per-id lock file guarding against concurrent writers from
// other processes. Loads apply a freshness threshold and report stale or
// unreadable entries as misses, never as successes.
package localcache
