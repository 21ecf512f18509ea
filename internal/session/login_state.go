package session

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gosuda/passage/internal/auth"
	"github.com/gosuda/passage/internal/cipher"
	"github.com/gosuda/passage/internal/localization"
	"github.com/gosuda/passage/internal/protocol"
	"github.com/gosuda/passage/internal/randutil"
)

const verifyTokenLength = 8

func handleLogin(ctx context.Context, deps *Deps, fc *frameConn, cc *connContext, logger zerolog.Logger) error {
	startFrame, err := protocol.ReadPacketFrame(fc, deps.MaxFrameSize)
	if err != nil {
		return fmt.Errorf("session: read login start: %w", err)
	}
	if startFrame.PacketID != protocol.IDLoginStart {
		return fmt.Errorf("session: unexpected packet id %d in login", startFrame.PacketID)
	}
	loginStart, err := protocol.DecodeLoginStart(protocol.NewReader(startFrame.Payload))
	if err != nil {
		return fmt.Errorf("session: decode login start: %w", err)
	}
	cc.username = loginStart.Name
	cc.userID = loginStart.PlayerUUID

	// Step 2: optional authentication-cookie short circuit (spec.md §4.10
	// Login step 2). The identity-provider call, not the encryption
	// handshake, is what a valid cookie bypasses.
	if err := tryCookieShortCircuit(deps, fc, cc); err != nil {
		return err
	}

	cc.verifyToken = randutil.VerifyToken(verifyTokenLength)
	err = sendFrame(fc, protocol.IDEncryptionRequest, func(w *protocol.Writer) error {
		return protocol.EncryptionRequest{
			ServerID:           "",
			PublicKeyDER:       deps.KeyPair.PublicKeyDER,
			VerifyToken:        cc.verifyToken,
			ShouldAuthenticate: true,
		}.Encode(w)
	})
	if err != nil {
		return fmt.Errorf("session: send encryption request: %w", err)
	}

	encFrame, err := protocol.ReadPacketFrame(fc, deps.MaxFrameSize)
	if err != nil {
		return fmt.Errorf("session: read encryption response: %w", err)
	}
	if encFrame.PacketID != protocol.IDEncryptionResponse {
		return fmt.Errorf("session: unexpected packet id %d in login", encFrame.PacketID)
	}
	encResp, err := protocol.DecodeEncryptionResponse(protocol.NewReader(encFrame.Payload))
	if err != nil {
		return fmt.Errorf("session: decode encryption response: %w", err)
	}

	sharedSecret, err := deps.KeyPair.DecryptPKCS1v15(encResp.EncryptedSharedSecret)
	if err != nil {
		return fmt.Errorf("session: decrypt shared secret: %w", err)
	}
	decryptedToken, err := deps.KeyPair.DecryptPKCS1v15(encResp.EncryptedVerifyToken)
	if err != nil {
		return fmt.Errorf("session: decrypt verify token: %w", err)
	}
	if len(decryptedToken) != len(cc.verifyToken) || subtle.ConstantTimeCompare(decryptedToken, cc.verifyToken) != 1 {
		return fmt.Errorf("session: verify token mismatch")
	}

	stream, err := cipher.New(sharedSecret)
	if err != nil {
		return fmt.Errorf("session: install cipher: %w", err)
	}
	fc.installCipher(stream)

	if !cc.profileSealed {
		joinHash := auth.JoinHash(sharedSecret, deps.KeyPair.PublicKeyDER)
		peerIP := ""
		if cc.proxyRecovered {
			peerIP = hostOnly(cc.clientAddr)
		}
		profile, err := deps.AuthClient.HasJoined(ctx, cc.username, joinHash, peerIP)
		if err != nil {
			deps.Metrics.AuthFailuresTotal.Inc()
			msg := localizedDisconnect(deps, cc, localization.KeyDisconnectFailedAuth, nil)
			_ = sendFrame(fc, protocol.IDLoginDisconnect, func(w *protocol.Writer) error {
				return protocol.Disconnect{ReasonJSON: msg}.Encode(w)
			})
			return fmt.Errorf("session: identity provider rejected login: %w", err)
		}
		cc.profile = profile
	}

	if err := sendFrame(fc, protocol.IDLoginSuccess, func(w *protocol.Writer) error {
		return protocol.LoginSuccess{Profile: cc.profile}.Encode(w)
	}); err != nil {
		return fmt.Errorf("session: send login success: %w", err)
	}

	ackFrame, err := protocol.ReadPacketFrame(fc, deps.MaxFrameSize)
	if err != nil {
		return fmt.Errorf("session: read login acknowledged: %w", err)
	}
	if ackFrame.PacketID != protocol.IDLoginAcknowledged {
		return fmt.Errorf("session: unexpected packet id %d waiting for login acknowledged", ackFrame.PacketID)
	}

	cc.inConfiguration = true
	return handleConfiguration(ctx, deps, fc, cc, logger)
}

// tryCookieShortCircuit requests the authentication cookie and, if the
// client presents one that verifies, populates cc.profile without an
// identity-provider round trip.
func tryCookieShortCircuit(deps *Deps, fc *frameConn, cc *connContext) error {
	err := sendFrame(fc, protocol.IDLoginCookieRequest, func(w *protocol.Writer) error {
		return protocol.CookieRequest{Key: protocol.CookieAuthentication}.Encode(w)
	})
	if err != nil {
		return fmt.Errorf("session: send cookie request: %w", err)
	}

	frame, err := protocol.ReadPacketFrame(fc, deps.MaxFrameSize)
	if err != nil {
		return fmt.Errorf("session: read cookie response: %w", err)
	}
	if frame.PacketID != protocol.IDLoginCookieResponse {
		return fmt.Errorf("session: unexpected packet id %d waiting for cookie response", frame.PacketID)
	}
	resp, err := protocol.DecodeCookieResponse(protocol.NewReader(frame.Payload))
	if err != nil {
		return fmt.Errorf("session: decode cookie response: %w", err)
	}
	if !resp.Present || resp.Key != protocol.CookieAuthentication {
		return nil
	}

	payload, err := deps.CookieSigner.Verify(resp.Payload, cc.clientAddr, time.Now())
	if err != nil {
		// An invalid or expired cookie is not fatal: fall through to a
		// normal identity-provider login.
		return nil
	}

	cc.profile = protocol.Profile{
		UUID:       payload.UserID,
		Name:       payload.UserName,
		Properties: payload.ProfileProperties,
	}
	cc.profileSealed = true
	cc.cookieExtra = payload.Extra
	return nil
}
