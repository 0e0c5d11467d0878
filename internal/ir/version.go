package ir

// Version constants reported by the CLI and the protocol server.
const (
	// Version is the esqlite release.
	Version = "0.1.0"

	// ProtocolVersion changes whenever the frame layout or a payload
	// shape changes incompatibly.
	ProtocolVersion = 1
)
