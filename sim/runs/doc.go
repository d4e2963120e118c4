// Package runs keeps completed simulation runs in memory.
//
// Runs are identified by a random UUID and looked up case-insensitively. The
// manager holds at most a fixed number of runs; creating one more evicts the
// oldest. CleanupExpired drops runs older than a retention window and is
// meant to be called from a periodic goroutine.
//
// Nothing is written to disk. Restarting the server forgets every run.
package runs
