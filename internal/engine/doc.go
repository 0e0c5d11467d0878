// Package engine implements the serializing coordinator: the single owner of
// one engine connection.
//
// ARCHITECTURE:
//
// Single-Owner Worker:
// Each Conn runs one worker goroutine that owns a protocol.Backend. Callers
// from any goroutine submit requests; the worker executes them one at a time
// in arrival order. This ensures:
// - At most one in-flight engine operation per connection
// - Program order for requests issued sequentially by one caller
// - Prepared-statement handles touched only by their owning worker
//
// Request Flow:
// 1. A Conn method synthesizes SQL and bound values (querysql, codec)
// 2. Synthesis errors return immediately; nothing is enqueued
// 3. The request is stamped with a seq from the Clock and enqueued
// 4. The worker dequeues it and calls the Backend
// 5. The single Reply is returned to the waiting caller
//
// LIFECYCLE:
//
// Open -> Closing -> Closed. Close enqueues a final request that releases
// the backend; anything submitted afterwards fails with CONNECTION_CLOSED.
// A panic inside the backend is treated as abnormal termination: the backend
// is closed, every live handle becomes invalid and the connection is Closed.
//
// Distinct connections share nothing and run fully in parallel. Registry
// maps logical names to connections and offers Default for callers that use
// the implicit "default" connection.
package engine
