// Package syncchan maintains the single logical connection between the
// editing client and the backing store process. The channel owns a websocket
// that it re-establishes after a fixed backoff whenever it drops, correlates
// request/response frames over the intrinsically asynchronous transport, and
// guarantees that at most one save or finish is in flight at a time: save
// requests issued while one is outstanding are coalesced so only the latest
// document travels, never an interleaving that could let an older document
// overwrite a newer one.
package syncchan
