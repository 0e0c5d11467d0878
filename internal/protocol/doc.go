// Package protocol defines the request/reply contract between the
// serializing coordinator and the engine-owning worker.
//
// A Command is an opcode plus a JSON payload; a Reply is a kind plus a JSON
// payload. On a byte stream each travels as one frame:
//
//	+-----+----------------+-----------------+
//	| tag | length (BE u32)| JSON payload    |
//	+-----+----------------+-----------------+
//
// The tag is the Op for commands and the Kind for replies. Values inside the
// payload use ir's typed envelopes, so integers keep all 64 bits and text and
// blobs stay distinct.
//
// Backend is the in-process form of the same contract. store.Store
// implements it directly; Client implements it over a stream, and Serve
// answers a stream from any Backend.
package protocol
