package sasl

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// scramStep tracks which message a SCRAM mechanism is about to produce.
type scramStep int

const (
	scramClientFirst scramStep = iota
	scramClientFinal
	scramDone
)

// Scram implements the SCRAM-SHA-1 (RFC 5802) and SCRAM-SHA-256/512
// (RFC 7677) mechanisms. No channel binding is offered ("n,,") since this
// module terminates SASL on a single TCP/TLS connection without a
// multiplexing transport.
type Scram struct {
	name          string
	newH          func() hash.Hash
	size          int
	creds         Credentials
	step          scramStep
	nonce         string
	gs2           string
	firstC        string // client-first-message-bare
	firstS        string // server-first-message, stored for the final signature
	combinedNonce string
	salted        []byte

	minIterations  int
	warnIterations int
	logf           func(string, ...interface{})
}

// SetIterationPolicy overrides the default iteration floor (4096, the RFC
// 5802 minimum) and warning threshold (600000, the OWASP 2023 advisory for
// PBKDF2-HMAC-SHA-256) this mechanism enforces against the server's
// advertised count, and the sink warnings are logged to (spec §4.4, §9). A
// zero floor/warn argument keeps the built-in default; a nil logf discards
// warnings.
func (s *Scram) SetIterationPolicy(floor, warn int, logf func(string, ...interface{})) {
	if floor > 0 {
		s.minIterations = floor
	}
	if warn > 0 {
		s.warnIterations = warn
	}
	s.logf = logf
}

// NewScramSHA1 returns a SCRAM-SHA-1 mechanism.
func NewScramSHA1(creds Credentials) *Scram {
	return newScram("SCRAM-SHA-1", sha1.New, sha1.Size, creds)
}

// NewScramSHA256 returns a SCRAM-SHA-256 mechanism.
func NewScramSHA256(creds Credentials) *Scram {
	return newScram("SCRAM-SHA-256", sha256.New, sha256.Size, creds)
}

// NewScramSHA512 returns a SCRAM-SHA-512 mechanism.
func NewScramSHA512(creds Credentials) *Scram {
	return newScram("SCRAM-SHA-512", sha512.New, sha512.Size, creds)
}

func newScram(name string, newH func() hash.Hash, size int, creds Credentials) *Scram {
	return &Scram{name: name, newH: newH, size: size, creds: creds}
}

// Name returns the mechanism name, e.g. "SCRAM-SHA-256".
func (s *Scram) Name() string { return s.name }

// HasInitialResponse is true: SCRAM always begins with a client-first
// message.
func (s *Scram) HasInitialResponse() bool { return true }

// Step advances the SCRAM exchange. The first call (challenge == nil)
// produces the client-first message; the second consumes the server-first
// message and produces the client-final message; any call after that fails.
func (s *Scram) Step(challenge []byte) ([]byte, bool, error) {
	switch s.step {
	case scramClientFirst:
		return s.stepClientFirst()
	case scramClientFinal:
		return s.stepClientFinal(challenge)
	default:
		return nil, true, ErrMechanismDone
	}
}

func (s *Scram) stepClientFirst() ([]byte, bool, error) {
	nonce, err := clientNonce()
	if err != nil {
		return nil, false, err
	}
	s.nonce = nonce
	s.gs2 = "n,,"
	s.firstC = "n=" + escapeSaslName(s.creds.Authn) + ",r=" + s.nonce
	s.step = scramClientFinal
	return []byte(s.gs2 + s.firstC), false, nil
}

func (s *Scram) stepClientFinal(challenge []byte) ([]byte, bool, error) {
	s.firstS = string(challenge)
	fields, err := parseScramFields(s.firstS)
	if err != nil {
		return nil, false, err
	}
	serverNonce, ok := fields["r"]
	if !ok || !strings.HasPrefix(serverNonce, s.nonce) {
		return nil, false, fmt.Errorf("sasl: server nonce %q does not extend client nonce", serverNonce)
	}
	saltB64, ok := fields["s"]
	if !ok {
		return nil, false, fmt.Errorf("sasl: server-first message missing salt")
	}
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return nil, false, fmt.Errorf("sasl: invalid salt encoding: %w", err)
	}
	iterStr, ok := fields["i"]
	if !ok {
		return nil, false, fmt.Errorf("sasl: server-first message missing iteration count")
	}
	iterCount, err := strconv.Atoi(iterStr)
	if err != nil || iterCount <= 0 {
		return nil, false, fmt.Errorf("sasl: invalid iteration count %q", iterStr)
	}
	floor := s.minIterations
	if floor == 0 {
		floor = 4096
	}
	if iterCount < floor {
		return nil, false, fmt.Errorf("sasl: server iteration count %d is below the floor of %d", iterCount, floor)
	}
	warnAt := s.warnIterations
	if warnAt == 0 {
		warnAt = 600000
	}
	if iterCount < warnAt && s.logf != nil {
		s.logf("sasl: %s server advertised %d PBKDF2 iterations, below the %d OWASP 2023 advisory", s.name, iterCount, warnAt)
	}

	s.combinedNonce = serverNonce
	channelBinding := base64.StdEncoding.EncodeToString([]byte(s.gs2))
	finalWithoutProof := "c=" + channelBinding + ",r=" + serverNonce

	s.salted = pbkdf2.Key([]byte(s.creds.Password), salt, iterCount, s.size, s.newH)
	clientKey := s.hmac(s.salted, []byte("Client Key"))
	storedKey := s.hash(clientKey)
	authMessage := s.firstC + "," + s.firstS + "," + finalWithoutProof
	clientSignature := s.hmac(storedKey, []byte(authMessage))
	clientProof := xorBytes(clientKey, clientSignature)

	msg := finalWithoutProof + ",p=" + base64.StdEncoding.EncodeToString(clientProof)
	s.step = scramDone
	return []byte(msg), true, nil
}

// VerifyServerSignature checks the v= value in the server-final message
// against the expected ServerSignature, defending against a forged success.
func (s *Scram) VerifyServerSignature(serverFinal []byte) error {
	fields, err := parseScramFields(string(serverFinal))
	if err != nil {
		return err
	}
	v, ok := fields["v"]
	if !ok {
		return fmt.Errorf("sasl: server-final message missing verifier")
	}
	got, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return fmt.Errorf("sasl: invalid server signature encoding: %w", err)
	}
	serverKey := s.hmac(s.salted, []byte("Server Key"))
	channelBinding := base64.StdEncoding.EncodeToString([]byte(s.gs2))
	finalWithoutProof := "c=" + channelBinding + ",r=" + s.combinedNonce
	authMessage := s.firstC + "," + s.firstS + "," + finalWithoutProof
	want := s.hmac(serverKey, []byte(authMessage))
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return fmt.Errorf("sasl: server signature mismatch")
	}
	return nil
}

func (s *Scram) hmac(key, data []byte) []byte {
	h := hmac.New(s.newH, key)
	h.Write(data)
	return h.Sum(nil)
}

func (s *Scram) hash(data []byte) []byte {
	h := s.newH()
	h.Write(data)
	return h.Sum(nil)
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

func clientNonce() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// escapeSaslName escapes ',' and '=' per RFC 5802 §5.1.
func escapeSaslName(s string) string {
	s = strings.ReplaceAll(s, "=", "=3D")
	s = strings.ReplaceAll(s, ",", "=2C")
	return s
}

// parseScramFields splits a comma-separated "k=v" SCRAM message into a map.
func parseScramFields(msg string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, part := range strings.Split(msg, ",") {
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("sasl: malformed SCRAM field %q", part)
		}
		fields[kv[0]] = kv[1]
	}
	return fields, nil
}
