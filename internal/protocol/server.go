package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/esqlite/internal/ir"
)

// Serve answers command frames read from r with reply frames written to w,
// one at a time, until a close command or end of input.
//
// Serve owns backend: it is closed when Serve returns. Frames that cannot be
// decoded are answered with a PROTOCOL_ERROR reply and serving continues.
func Serve(ctx context.Context, r io.Reader, w io.Writer, backend Backend) (err error) {
	slog.Info("protocol server starting", "version", ir.ProtocolVersion)
	closed := false
	defer func() {
		if !closed {
			if cerr := backend.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close backend: %w", cerr)
			}
		}
		slog.Info("protocol server stopped")
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cmd, err := ReadCommand(r)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ir.CodeOf(err) != ir.ErrCodeProtocol {
				return err
			}
			slog.Warn("undecodable command frame", "error", err)
			if werr := WriteReply(w, ErrorReply(err)); werr != nil {
				return werr
			}
			continue
		}

		slog.Debug("serving command", "op", cmd.Op, "handle", cmd.Handle)

		var reply Reply
		if cmd.Op == OpClose {
			closed = true
			reply = Ack()
			if cerr := backend.Close(); cerr != nil {
				reply = ErrorReply(cerr)
			}
		} else {
			reply = backend.Call(ctx, cmd)
		}
		if reply.Kind == KindError {
			slog.Debug("command failed", "op", cmd.Op, "error", reply.Error)
		}

		if err := WriteReply(w, reply); err != nil {
			return err
		}
		if closed {
			return nil
		}
	}
}
