// Package memory provides in-process storage backends for the ledger,
// transactions, catalogs and reference-number counters.
//
// Every repository guards its maps with a sync.RWMutex, so each call is
// atomic on its own. There are no multi-call transactions: callers pair these
// repositories with tx.Passthrough and rely on saga compensation.
package memory
