package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/esqlite/internal/ir"
)

// MaxFrameSize bounds a single payload.
const MaxFrameSize = 64 << 20

const headerSize = 5

// WriteCommand writes cmd as one frame.
func WriteCommand(w io.Writer, cmd Command) error {
	if !cmd.Op.Valid() {
		return ir.Errorf(ir.ErrCodeProtocol, "unknown opcode %d", byte(cmd.Op))
	}
	return writeFrame(w, byte(cmd.Op), cmd)
}

// ReadCommand reads one command frame.
//
// A clean end of stream before the header returns io.EOF. A frame that was
// read fully but cannot be decoded returns a PROTOCOL_ERROR and leaves the
// stream positioned at the next frame.
func ReadCommand(r io.Reader) (Command, error) {
	tag, payload, err := readFrame(r)
	if err != nil {
		return Command{}, err
	}

	op := Op(tag)
	if !op.Valid() {
		return Command{}, ir.Errorf(ir.ErrCodeProtocol, "unknown opcode %d", tag)
	}
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return Command{Op: op}, ir.Errorf(ir.ErrCodeProtocol, "decode %s payload: %v", op, err)
	}
	cmd.Op = op
	return cmd, nil
}

// WriteReply writes reply as one frame.
func WriteReply(w io.Writer, reply Reply) error {
	if !reply.Kind.Valid() {
		return ir.Errorf(ir.ErrCodeProtocol, "unknown reply kind %d", byte(reply.Kind))
	}
	return writeFrame(w, byte(reply.Kind), reply)
}

// ReadReply reads one reply frame.
func ReadReply(r io.Reader) (Reply, error) {
	tag, payload, err := readFrame(r)
	if err != nil {
		return Reply{}, err
	}

	kind := Kind(tag)
	if !kind.Valid() {
		return Reply{}, ir.Errorf(ir.ErrCodeProtocol, "unknown reply kind %d", tag)
	}
	var reply Reply
	if err := json.Unmarshal(payload, &reply); err != nil {
		return Reply{}, ir.Errorf(ir.ErrCodeProtocol, "decode %s payload: %v", kind, err)
	}
	reply.Kind = kind
	return reply, nil
}

func writeFrame(w io.Writer, tag byte, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return ir.Errorf(ir.ErrCodeProtocol, "encode payload: %v", err)
	}
	if len(body) > MaxFrameSize {
		return ir.Errorf(ir.ErrCodeProtocol, "payload of %d bytes exceeds %d", len(body), MaxFrameSize)
	}

	// One Write per frame so concurrent writers on a pipe never interleave
	buf := make([]byte, headerSize+len(body))
	buf[0] = tag
	binary.BigEndian.PutUint32(buf[1:headerSize], uint32(len(body)))
	copy(buf[headerSize:], body)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func readFrame(r io.Reader) (byte, []byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil, io.EOF
		}
		return 0, nil, fmt.Errorf("read frame header: %w", err)
	}

	n := binary.BigEndian.Uint32(header[1:])
	if n > MaxFrameSize {
		// The payload cannot be skipped safely; the stream is unusable
		return 0, nil, fmt.Errorf("frame length %d exceeds %d", n, MaxFrameSize)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("read frame payload: %w", err)
	}
	return header[0], payload, nil
}
