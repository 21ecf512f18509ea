package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gosuda/passage/internal/adapter/discovery"
	"github.com/gosuda/passage/internal/adapter/strategy"
	"github.com/gosuda/passage/internal/cookie"
	"github.com/gosuda/passage/internal/localization"
	"github.com/gosuda/passage/internal/protocol"
)

func handleConfiguration(ctx context.Context, deps *Deps, fc *frameConn, cc *connContext, logger zerolog.Logger) error {
	ciFrame, err := protocol.ReadPacketFrame(fc, deps.MaxFrameSize)
	if err != nil {
		return fmt.Errorf("session: read client information: %w", err)
	}
	if ciFrame.PacketID != protocol.IDClientInformation {
		return fmt.Errorf("session: unexpected packet id %d in configuration", ciFrame.PacketID)
	}
	ci, err := protocol.DecodeClientInformation(protocol.NewReader(ciFrame.Payload))
	if err != nil {
		return fmt.Errorf("session: decode client information: %w", err)
	}
	cc.locale = ci.Locale

	sessionPayload, err := exchangeSessionCookie(deps, fc, cc)
	if err != nil {
		return err
	}

	if err := runResourcePackExchange(ctx, deps, fc, cc); err != nil {
		return err
	}

	targets, err := deps.Discovery.Targets(ctx, discovery.Input{
		ClientAddr: cc.clientAddr,
		ServerAddr: cc.serverAddress,
		Protocol:   cc.protocolVersion,
		Username:   cc.username,
		UserID:     cc.userID,
	})
	if err != nil {
		disconnectNoTarget(deps, fc, cc)
		return fmt.Errorf("session: target discovery: %w", err)
	}

	target, err := deps.Strategy.Select(ctx, strategy.Input{
		ServerAddress: cc.serverAddress,
		Username:      cc.username,
		UserID:        cc.userID,
	}, targets)
	if err != nil {
		disconnectNoTarget(deps, fc, cc)
		return fmt.Errorf("session: target strategy: %w", err)
	}
	if target == nil {
		disconnectNoTarget(deps, fc, cc)
		return nil
	}
	cc.target = target

	if err := reissueCookies(deps, fc, cc, sessionPayload); err != nil {
		return err
	}

	deps.Metrics.TransfersTotal.Inc()
	return sendFrame(fc, protocol.IDTransfer, func(w *protocol.Writer) error {
		return protocol.Transfer{Host: target.Host, Port: int32(target.Port)}.Encode(w)
	})
}

// disconnectNoTarget sends the localized "no target" Configuration
// Disconnect (spec.md §7 "Adapter unreachable (discovery/strategy)" and
// "target == nil"). Errors writing the packet are ignored: the connection
// is being torn down regardless.
func disconnectNoTarget(deps *Deps, fc *frameConn, cc *connContext) {
	msg := localizedDisconnect(deps, cc, localization.KeyDisconnectNoTarget, nil)
	_ = sendFrame(fc, protocol.IDConfigDisconnect, func(w *protocol.Writer) error {
		return protocol.Disconnect{ReasonJSON: msg}.Encode(w)
	})
}

// exchangeSessionCookie asks for the unsigned session cookie and returns
// either the client's existing one or a freshly minted one (spec.md §4.7,
// §4.10 Configuration step 2).
func exchangeSessionCookie(deps *Deps, fc *frameConn, cc *connContext) (cookie.SessionPayload, error) {
	err := sendFrame(fc, protocol.IDConfigCookieRequest, func(w *protocol.Writer) error {
		return protocol.CookieRequest{Key: protocol.CookieSession}.Encode(w)
	})
	if err != nil {
		return cookie.SessionPayload{}, fmt.Errorf("session: send session cookie request: %w", err)
	}

	frame, err := protocol.ReadPacketFrame(fc, deps.MaxFrameSize)
	if err != nil {
		return cookie.SessionPayload{}, fmt.Errorf("session: read session cookie response: %w", err)
	}
	if frame.PacketID != protocol.IDConfigCookieResponse {
		return cookie.SessionPayload{}, fmt.Errorf("session: unexpected packet id %d waiting for session cookie response", frame.PacketID)
	}
	resp, err := protocol.DecodeCookieResponse(protocol.NewReader(frame.Payload))
	if err != nil {
		return cookie.SessionPayload{}, fmt.Errorf("session: decode session cookie response: %w", err)
	}

	if resp.Present && resp.Key == protocol.CookieSession {
		if payload, err := cookie.DecodeSession(resp.Payload); err == nil {
			return payload, nil
		}
	}
	return cookie.NewSession(cc.serverAddress, cc.serverPort), nil
}

// runResourcePackExchange offers every configured pack and blocks until a
// terminal outcome is seen for each forced pack (spec.md §4.10
// Configuration step 3).
func runResourcePackExchange(ctx context.Context, deps *Deps, fc *frameConn, cc *connContext) error {
	if deps.ResourcePack == nil {
		return nil
	}
	packs, err := deps.ResourcePack.Packs(ctx, cc.clientContext())
	if err != nil {
		return fmt.Errorf("session: resource pack policy: %w", err)
	}
	if len(packs) == 0 {
		return nil
	}

	pending := make(map[[16]byte]bool, len(packs))
	for _, pack := range packs {
		id := uuid.New()
		var rawID [16]byte
		copy(rawID[:], id[:])

		if pack.Forced {
			pending[rawID] = true
		}

		err := sendFrame(fc, protocol.IDAddResourcePack, func(w *protocol.Writer) error {
			return protocol.AddResourcePack{
				UUID:      rawID,
				URL:       pack.URL,
				Hash:      pack.Hash,
				Forced:    pack.Forced,
				Prompt:    pack.Prompt,
				HasPrompt: pack.HasPrompt,
			}.Encode(w)
		})
		if err != nil {
			return fmt.Errorf("session: send add resource pack: %w", err)
		}
	}

	for len(pending) > 0 {
		frame, err := protocol.ReadPacketFrame(fc, deps.MaxFrameSize)
		if err != nil {
			return fmt.Errorf("session: read resource pack response: %w", err)
		}
		if frame.PacketID != protocol.IDResourcePackResponse {
			return fmt.Errorf("session: unexpected packet id %d during resource pack exchange", frame.PacketID)
		}
		resp, err := protocol.DecodeResourcePackResponse(protocol.NewReader(frame.Payload))
		if err != nil {
			return fmt.Errorf("session: decode resource pack response: %w", err)
		}
		if !resp.Outcome.Terminal() {
			continue
		}
		if _, forced := pending[resp.UUID]; !forced {
			continue
		}
		if !resp.Outcome.Successful() {
			msg := localizedDisconnect(deps, cc, localization.KeyDisconnectFailedResourcePack, nil)
			_ = sendFrame(fc, protocol.IDConfigDisconnect, func(w *protocol.Writer) error {
				return protocol.Disconnect{ReasonJSON: msg}.Encode(w)
			})
			return fmt.Errorf("session: forced resource pack failed with outcome %d", resp.Outcome)
		}
		delete(pending, resp.UUID)
	}
	return nil
}

// reissueCookies re-seals the authentication cookie with the current
// timestamp and the chosen target's identifier, and re-stores the session
// cookie so its freshness is settled before Transfer (spec.md §4.10
// Configuration step 5).
func reissueCookies(deps *Deps, fc *frameConn, cc *connContext, sessionPayload cookie.SessionPayload) error {
	authPayload := cookie.AuthPayload{
		ClientAddr:        cc.clientAddr,
		UserName:          cc.profile.Name,
		UserID:            cc.profile.UUID,
		ProfileProperties: cc.profile.Properties,
		Extra:             cc.cookieExtra,
	}
	sealed := deps.CookieSigner.Reseal(authPayload, time.Now(), cc.target.ID)

	if err := sendFrame(fc, protocol.IDConfigStoreCookie, func(w *protocol.Writer) error {
		return protocol.StoreCookie{Key: protocol.CookieAuthentication, Payload: sealed}.Encode(w)
	}); err != nil {
		return fmt.Errorf("session: store authentication cookie: %w", err)
	}

	sessionPayload.ServerAddress = cc.serverAddress
	sessionPayload.ServerPort = cc.serverPort
	sessionBytes := cookie.EncodeSession(sessionPayload)
	if err := sendFrame(fc, protocol.IDConfigStoreCookie, func(w *protocol.Writer) error {
		return protocol.StoreCookie{Key: protocol.CookieSession, Payload: sessionBytes}.Encode(w)
	}); err != nil {
		return fmt.Errorf("session: store session cookie: %w", err)
	}
	return nil
}
