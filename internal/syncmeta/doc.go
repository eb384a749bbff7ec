// Package syncmeta persists the watermark metadata that makes sync runs
// incremental: a mapping from dataset id to the last_modified timestamp
// of the version most recently downloaded.
//
// A single Store instance is shared by every concurrent sync task. All
// reads and writes serialize on one mutex, and MarkSynced persists the
// file inside the same critical section as the in-memory update, so
// concurrent tasks can never clobber each other's watermarks. Writes
// land via temp-file rename and are atomic.
package syncmeta
