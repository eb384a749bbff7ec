// Package history persists sync run records in a local SQLite database:
// one row per run plus one row per dataset outcome, so past runs can be
// inspected from the CLI.
package history
