package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/gosuda/passage/internal/adapter/status"
	"github.com/gosuda/passage/internal/protocol"
)

// isRejectedByAdapter reports whether err originates from a Supplier
// declining to answer (spec.md §4.9 "reject connection"), which is an
// ordinary outcome rather than a failure worth reporting.
func isRejectedByAdapter(err error) bool {
	return errors.Is(err, status.ErrReject)
}

func handleStatus(ctx context.Context, deps *Deps, fc *frameConn, cc *connContext) error {
	for i := 0; i < 2; i++ {
		frame, err := protocol.ReadPacketFrame(fc, deps.MaxFrameSize)
		if err != nil {
			return err
		}

		switch frame.PacketID {
		case protocol.IDStatusRequest:
			if err := respondStatus(ctx, deps, fc, cc); err != nil {
				return err
			}
		case protocol.IDPingPong:
			ping, err := protocol.DecodePing(protocol.NewReader(frame.Payload))
			if err != nil {
				return err
			}
			return sendFrame(fc, protocol.IDPingPong, func(w *protocol.Writer) error {
				ping.Encode(w)
				return nil
			})
		default:
			return fmt.Errorf("session: unexpected packet id %d in status", frame.PacketID)
		}
	}
	return nil
}

func respondStatus(ctx context.Context, deps *Deps, fc *frameConn, cc *connContext) error {
	out, err := deps.Status.Status(ctx, status.Input{
		ClientAddr:      cc.clientAddr,
		ServerAddr:      cc.serverAddress,
		ProtocolVersion: cc.protocolVersion,
	})
	if err != nil {
		return err
	}
	out = status.RewriteProtocol(out, cc.protocolVersion)

	body, err := status.MarshalJSON(out)
	if err != nil {
		return err
	}
	return sendFrame(fc, protocol.IDStatusResponse, func(w *protocol.Writer) error {
		return protocol.StatusResponse{JSON: body}.Encode(w)
	})
}
