package protocol

// Packet IDs for the subset of the catalog the core needs (spec.md §6).
// Client-to-server and server-to-client IDs are tracked separately per
// state, matching the real wire protocol's per-direction numbering.
const (
	IDHandshake int32 = 0x00

	IDStatusRequest  int32 = 0x00
	IDStatusResponse int32 = 0x00
	IDPingPong       int32 = 0x01

	IDLoginStart          int32 = 0x00
	IDEncryptionRequest   int32 = 0x01
	IDEncryptionResponse  int32 = 0x01
	IDLoginSuccess        int32 = 0x02
	IDLoginDisconnect     int32 = 0x00
	IDLoginAcknowledged   int32 = 0x03
	IDLoginCookieRequest  int32 = 0x05
	IDLoginCookieResponse int32 = 0x04

	IDClientInformation       int32 = 0x00
	IDConfigCookieRequest     int32 = 0x04
	IDConfigCookieResponse    int32 = 0x01
	IDConfigStoreCookie       int32 = 0x0A
	IDAddResourcePack         int32 = 0x0F
	IDResourcePackResponse    int32 = 0x06
	IDTransfer                int32 = 0x0B
	IDConfigDisconnect        int32 = 0x02
)

// Handshake is the first packet on any connection.
type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	NextState       NextState
}

// Encode serializes h the same way a real client would when opening a
// connection; Passage itself only decodes Handshake, but tests construct
// one to drive the server end-to-end.
func (h Handshake) Encode(w *Writer) error {
	if err := w.VarInt(h.ProtocolVersion); err != nil {
		return err
	}
	if err := w.String(h.ServerAddress); err != nil {
		return err
	}
	w.U16(h.ServerPort)
	return w.VarInt(int32(h.NextState))
}

func DecodeHandshake(r *Reader) (Handshake, error) {
	var h Handshake
	v, err := r.VarInt()
	if err != nil {
		return h, err
	}
	h.ProtocolVersion = v
	addr, err := r.String(255)
	if err != nil {
		return h, err
	}
	h.ServerAddress = addr
	port, err := r.U16()
	if err != nil {
		return h, err
	}
	h.ServerPort = port
	next, err := r.VarInt()
	if err != nil {
		return h, err
	}
	h.NextState = NextState(next)
	return h, nil
}

// PingPongPayload is the 8-byte payload shared by c->s Ping and s->c Pong.
type PingPongPayload struct {
	Payload int64
}

func DecodePing(r *Reader) (PingPongPayload, error) {
	v, err := r.I64()
	return PingPongPayload{Payload: v}, err
}

func (p PingPongPayload) Encode(w *Writer) { w.I64(p.Payload) }

// StatusResponse carries the JSON status body verbatim; construction of the
// JSON itself lives in the status adapter (spec.md §4.9).
type StatusResponse struct {
	JSON string
}

func (s StatusResponse) Encode(w *Writer) error { return w.String(s.JSON) }

// DecodeStatusResponse is only exercised by tests driving a fake client
// against the real server; production code never needs to decode its own
// outbound packet.
func DecodeStatusResponse(r *Reader) (StatusResponse, error) {
	body, err := r.String(1 << 20)
	return StatusResponse{JSON: body}, err
}

// LoginStart is read at the top of the Login state.
type LoginStart struct {
	Name       string
	PlayerUUID [16]byte
}

// Encode is only exercised by tests driving a fake client against the real
// server; production code never sends its own inbound packet.
func (l LoginStart) Encode(w *Writer) error {
	if err := w.String(l.Name); err != nil {
		return err
	}
	w.UUID(l.PlayerUUID)
	return nil
}

func DecodeLoginStart(r *Reader) (LoginStart, error) {
	var ls LoginStart
	name, err := r.String(16)
	if err != nil {
		return ls, err
	}
	ls.Name = name
	id, err := r.UUID()
	if err != nil {
		return ls, err
	}
	ls.PlayerUUID = id
	return ls, nil
}

// EncryptionRequest is sent by the server to start the RSA/AES handshake.
type EncryptionRequest struct {
	ServerID          string
	PublicKeyDER      []byte
	VerifyToken       []byte
	ShouldAuthenticate bool
}

func (e EncryptionRequest) Encode(w *Writer) error {
	if err := w.String(e.ServerID); err != nil {
		return err
	}
	if err := w.ByteArray(e.PublicKeyDER); err != nil {
		return err
	}
	if err := w.ByteArray(e.VerifyToken); err != nil {
		return err
	}
	return w.Bool(e.ShouldAuthenticate)
}

// DecodeEncryptionRequest is only exercised by tests driving a fake client
// against the real server; production code never decodes its own outbound
// packet.
func DecodeEncryptionRequest(r *Reader) (EncryptionRequest, error) {
	var e EncryptionRequest
	serverID, err := r.String(20)
	if err != nil {
		return e, err
	}
	e.ServerID = serverID
	pub, err := r.ByteArray()
	if err != nil {
		return e, err
	}
	e.PublicKeyDER = pub
	token, err := r.ByteArray()
	if err != nil {
		return e, err
	}
	e.VerifyToken = token
	shouldAuth, err := r.Bool()
	if err != nil {
		return e, err
	}
	e.ShouldAuthenticate = shouldAuth
	return e, nil
}

// EncryptionResponse is the client's answer, both fields RSA-encrypted.
type EncryptionResponse struct {
	EncryptedSharedSecret []byte
	EncryptedVerifyToken  []byte
}

// Encode is only exercised by tests driving a fake client against the real
// server.
func (e EncryptionResponse) Encode(w *Writer) error {
	if err := w.ByteArray(e.EncryptedSharedSecret); err != nil {
		return err
	}
	return w.ByteArray(e.EncryptedVerifyToken)
}

func DecodeEncryptionResponse(r *Reader) (EncryptionResponse, error) {
	var e EncryptionResponse
	secret, err := r.ByteArray()
	if err != nil {
		return e, err
	}
	e.EncryptedSharedSecret = secret
	token, err := r.ByteArray()
	if err != nil {
		return e, err
	}
	e.EncryptedVerifyToken = token
	return e, nil
}

// ProfileProperty is one signed property triple on a Profile.
type ProfileProperty struct {
	Name      string
	Value     string
	Signature string // empty if absent
	HasSig    bool
}

// Profile is the verified player identity, either fetched from the identity
// provider or recovered from a trusted authentication cookie.
type Profile struct {
	UUID       [16]byte
	Name       string
	Properties []ProfileProperty
}

func (p Profile) Encode(w *Writer) error {
	w.UUID(p.UUID)
	if err := w.String(p.Name); err != nil {
		return err
	}
	if err := w.VarInt(int32(len(p.Properties))); err != nil {
		return err
	}
	for _, prop := range p.Properties {
		if err := w.String(prop.Name); err != nil {
			return err
		}
		if err := w.String(prop.Value); err != nil {
			return err
		}
		if err := w.Bool(prop.HasSig); err != nil {
			return err
		}
		if prop.HasSig {
			if err := w.String(prop.Signature); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoginSuccess carries the resolved Profile.
type LoginSuccess struct {
	Profile Profile
}

func (l LoginSuccess) Encode(w *Writer) error { return l.Profile.Encode(w) }

// DecodeLoginSuccess is only exercised by tests driving a fake client
// against the real server; production code never decodes its own outbound
// packet.
func DecodeLoginSuccess(r *Reader) (LoginSuccess, error) {
	profile, err := DecodeProfile(r)
	return LoginSuccess{Profile: profile}, err
}

// DecodeProfile is only exercised by tests driving a fake client against
// the real server.
func DecodeProfile(r *Reader) (Profile, error) {
	var p Profile
	id, err := r.UUID()
	if err != nil {
		return p, err
	}
	p.UUID = id
	name, err := r.String(16)
	if err != nil {
		return p, err
	}
	p.Name = name
	n, err := r.VarInt()
	if err != nil {
		return p, err
	}
	for i := int32(0); i < n; i++ {
		var prop ProfileProperty
		propName, err := r.String(0)
		if err != nil {
			return p, err
		}
		prop.Name = propName
		value, err := r.String(0)
		if err != nil {
			return p, err
		}
		prop.Value = value
		hasSig, err := r.Bool()
		if err != nil {
			return p, err
		}
		prop.HasSig = hasSig
		if hasSig {
			sig, err := r.String(0)
			if err != nil {
				return p, err
			}
			prop.Signature = sig
		}
		p.Properties = append(p.Properties, prop)
	}
	return p, nil
}

// Disconnect carries a localized chat-JSON reason, used for both the Login
// and Configuration state variants.
type Disconnect struct {
	ReasonJSON string
}

func (d Disconnect) Encode(w *Writer) error { return w.String(d.ReasonJSON) }

// ClientInformation carries the client's locale (and other preferences the
// core does not act on).
type ClientInformation struct {
	Locale string
}

func DecodeClientInformation(r *Reader) (ClientInformation, error) {
	locale, err := r.String(16)
	return ClientInformation{Locale: locale}, err
}

// Encode is only exercised by tests driving a fake client against the real
// server; production code never sends its own inbound packet.
func (c ClientInformation) Encode(w *Writer) error {
	return w.String(c.Locale)
}

// CookieKey identifies one of the two cookie-storage slots Passage uses.
type CookieKey string

const (
	CookieAuthentication CookieKey = "passage:authentication"
	CookieSession        CookieKey = "passage:session"
)

// CookieRequest asks the client for a previously stored cookie.
type CookieRequest struct {
	Key CookieKey
}

func (c CookieRequest) Encode(w *Writer) error { return w.String(string(c.Key)) }

// DecodeCookieRequest is only exercised by tests driving a fake client
// against the real server; production code never decodes its own outbound
// packet.
func DecodeCookieRequest(r *Reader) (CookieRequest, error) {
	key, err := r.String(255)
	return CookieRequest{Key: CookieKey(key)}, err
}

// CookieResponse is the client's answer; Payload is nil if the client has
// no cookie stored under Key.
type CookieResponse struct {
	Key     CookieKey
	Payload []byte
	Present bool
}

func DecodeCookieResponse(r *Reader) (CookieResponse, error) {
	var c CookieResponse
	key, err := r.String(255)
	if err != nil {
		return c, err
	}
	c.Key = CookieKey(key)
	present, err := r.Bool()
	if err != nil {
		return c, err
	}
	c.Present = present
	if present {
		payload, err := r.ByteArray()
		if err != nil {
			return c, err
		}
		c.Payload = payload
	}
	return c, nil
}

// Encode is only exercised by tests driving a fake client against the real
// server; production code never sends its own inbound packet.
func (c CookieResponse) Encode(w *Writer) error {
	if err := w.String(string(c.Key)); err != nil {
		return err
	}
	if err := w.Bool(c.Present); err != nil {
		return err
	}
	if c.Present {
		return w.ByteArray(c.Payload)
	}
	return nil
}

// StoreCookie asks the client to persist Payload under Key for the next
// connection.
type StoreCookie struct {
	Key     CookieKey
	Payload []byte
}

func (s StoreCookie) Encode(w *Writer) error {
	if err := w.String(string(s.Key)); err != nil {
		return err
	}
	return w.ByteArray(s.Payload)
}

// DecodeStoreCookie is only exercised by tests driving a fake client against
// the real server; production code never decodes its own outbound packet.
func DecodeStoreCookie(r *Reader) (StoreCookie, error) {
	var s StoreCookie
	key, err := r.String(255)
	if err != nil {
		return s, err
	}
	s.Key = CookieKey(key)
	payload, err := r.ByteArray()
	if err != nil {
		return s, err
	}
	s.Payload = payload
	return s, nil
}

// ResourcePackOutcome enumerates the client's terminal and in-flight
// responses to AddResourcePack.
type ResourcePackOutcome int32

const (
	ResourcePackSuccessfullyLoaded ResourcePackOutcome = iota
	ResourcePackDeclined
	ResourcePackFailedToDownload
	ResourcePackAccepted
	ResourcePackDownloaded
	ResourcePackInvalidURL
	ResourcePackFailedToReload
	ResourcePackDiscarded
)

// Terminal reports whether outcome ends the pack's lifecycle (vs. an
// intermediate progress notification like Accepted/Downloaded).
func (o ResourcePackOutcome) Terminal() bool {
	switch o {
	case ResourcePackSuccessfullyLoaded, ResourcePackDeclined, ResourcePackFailedToDownload,
		ResourcePackInvalidURL, ResourcePackFailedToReload, ResourcePackDiscarded:
		return true
	default:
		return false
	}
}

func (o ResourcePackOutcome) Successful() bool {
	return o == ResourcePackSuccessfullyLoaded
}

// AddResourcePack is sent by the server to offer one resource pack.
type AddResourcePack struct {
	UUID    [16]byte
	URL     string
	Hash    string
	Forced  bool
	Prompt  string
	HasPrompt bool
}

func (a AddResourcePack) Encode(w *Writer) error {
	w.UUID(a.UUID)
	if err := w.String(a.URL); err != nil {
		return err
	}
	if err := w.String(a.Hash); err != nil {
		return err
	}
	if err := w.Bool(a.Forced); err != nil {
		return err
	}
	if err := w.Bool(a.HasPrompt); err != nil {
		return err
	}
	if a.HasPrompt {
		return w.String(a.Prompt)
	}
	return nil
}

// ResourcePackResponse is the client's (possibly repeated) answer for one
// pack UUID.
type ResourcePackResponse struct {
	UUID    [16]byte
	Outcome ResourcePackOutcome
}

func DecodeResourcePackResponse(r *Reader) (ResourcePackResponse, error) {
	var resp ResourcePackResponse
	id, err := r.UUID()
	if err != nil {
		return resp, err
	}
	resp.UUID = id
	outcome, err := r.VarInt()
	if err != nil {
		return resp, err
	}
	resp.Outcome = ResourcePackOutcome(outcome)
	return resp, nil
}

// Transfer instructs the client to reconnect elsewhere without a visible
// reconnect screen, then the server closes the TCP connection.
type Transfer struct {
	Host string
	Port int32
}

func (t Transfer) Encode(w *Writer) error {
	if err := w.String(t.Host); err != nil {
		return err
	}
	return w.VarInt(t.Port)
}

// DecodeTransfer is only exercised by tests driving a fake client against
// the real server; production code never decodes its own outbound packet.
func DecodeTransfer(r *Reader) (Transfer, error) {
	var t Transfer
	host, err := r.String(0)
	if err != nil {
		return t, err
	}
	t.Host = host
	port, err := r.VarInt()
	if err != nil {
		return t, err
	}
	t.Port = port
	return t, nil
}

// DecodeDisconnect is only exercised by tests driving a fake client against
// the real server; production code never decodes its own outbound packet.
func DecodeDisconnect(r *Reader) (Disconnect, error) {
	reason, err := r.String(0)
	return Disconnect{ReasonJSON: reason}, err
}
