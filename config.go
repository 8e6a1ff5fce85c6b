package xmpp

import (
	"crypto/tls"
	"io"
	"log"
	"net"
	"time"

	"golang.org/x/text/language"
)

// SecurityMode controls whether and how TLS is required (spec §6.1
// Security group).
type SecurityMode int

const (
	// Required demands TLS, either via STARTTLS or Direct TLS; the
	// negotiation state machine fails with TlsError if the server never
	// offers it.
	Required SecurityMode = iota
	// IfPossible upgrades to TLS when offered but proceeds in plaintext
	// otherwise.
	IfPossible
	// Disabled never attempts TLS, even if the server offers STARTTLS.
	Disabled
)

// Config is the frozen, immutable-after-build configuration for one
// connection. Builder is the constructor that validates required fields and
// applies defaults; a Config written as a struct literal skips both.
type Config struct {
	// Connection group.
	ServiceDomain      string
	Host               string
	IPAddress          net.IP
	Port               uint16
	Resource           string
	EnabledMechanisms  []string
	ConnectTimeout     time.Duration
	ReadTimeout        time.Duration
	SendPresence       bool

	// Auth group.
	Username string
	Password *Password
	Authzid  string

	// Security group.
	Mode                 SecurityMode
	TLSConfig            *tls.Config
	DirectTLS            bool
	HostnameVerification bool
	HandshakeTimeout     time.Duration

	// KeepAlive group.
	ReconnectionEnabled   bool
	ReconnectionBaseDelay time.Duration
	ReconnectionMaxDelay  time.Duration
	PingEnabled           bool
	PingInterval          time.Duration

	// Locale group.
	Lang language.Tag

	// SCRAMIterationFloor is the hard minimum PBKDF2 iteration count this
	// connection accepts from a server-first message; below it SCRAM fails
	// with AuthError rather than authenticating with a cheap hash (spec §4.4,
	// RFC 5802's floor is 4096). SCRAMIterationWarn is the threshold below
	// which a count is accepted but logged as a warning (spec §9, the OWASP
	// 2023 advisory of 600 000 for SHA-256).
	SCRAMIterationFloor int
	SCRAMIterationWarn  int

	// Logger receives this connection's diagnostic output: ping-supervisor
	// failures (spec §4.8) and SCRAM iteration-count warnings (spec §9).
	// Defaults to a logger writing to io.Discard.
	Logger *log.Logger
}

// Password is a mutable byte buffer holding a credential, deliberately not
// an interned Go string, so that it can be zeroed in place once it is no
// longer needed (spec §6.1 Auth group, §9 "Password hygiene").
type Password struct {
	buf []byte
}

// NewPassword copies s into a new zeroable buffer.
func NewPassword(s string) *Password {
	return &Password{buf: []byte(s)}
}

// String returns the current buffer contents as a string.
func (p *Password) String() string {
	if p == nil {
		return ""
	}
	return string(p.buf)
}

// Clone copies the password into a fresh buffer, for the mechanism driving
// the current authentication attempt to own independently of the config.
func (p *Password) Clone() *Password {
	if p == nil {
		return nil
	}
	cp := make([]byte, len(p.buf))
	copy(cp, p.buf)
	return &Password{buf: cp}
}

// Zero overwrites the buffer with zero bytes. Safe to call more than once.
func (p *Password) Zero() {
	if p == nil {
		return
	}
	for i := range p.buf {
		p.buf[i] = 0
	}
}

// Builder constructs a Config. Every group has setter methods named after
// its options; NewBuilder applies the documented defaults and Build
// validates required fields (spec §6.1).
type Builder struct {
	cfg Config
	err error
}

// NewBuilder returns a Builder preloaded with the documented defaults.
func NewBuilder() *Builder {
	return &Builder{cfg: Config{
		Port:                  5222,
		ConnectTimeout:        30 * time.Second,
		ReadTimeout:           60 * time.Second,
		SendPresence:          true,
		Mode:                  Required,
		HostnameVerification:  true,
		HandshakeTimeout:      10 * time.Second,
		ReconnectionBaseDelay: 2 * time.Second,
		ReconnectionMaxDelay:  60 * time.Second,
		PingInterval:          60 * time.Second,
		Lang:                  language.Und,
		SCRAMIterationFloor:   4096,
		SCRAMIterationWarn:    600000,
		Logger:                log.New(io.Discard, "", log.LstdFlags),
	}}
}

// ServiceDomain sets the required XMPP service domain.
func (b *Builder) ServiceDomain(domain string) *Builder {
	b.cfg.ServiceDomain = domain
	return b
}

// Host overrides DNS resolution with an explicit hostname.
func (b *Builder) Host(host string) *Builder {
	b.cfg.Host = host
	return b
}

// IPAddress skips DNS entirely and connects directly to ip.
func (b *Builder) IPAddress(ip net.IP) *Builder {
	b.cfg.IPAddress = ip
	return b
}

// Port overrides the connection port.
func (b *Builder) Port(port uint16) *Builder {
	b.cfg.Port = port
	return b
}

// Resource sets the preferred bind resource; the server may override it.
func (b *Builder) Resource(resource string) *Builder {
	b.cfg.Resource = resource
	return b
}

// EnabledMechanisms restricts SASL mechanism selection to this set, in
// addition to the usual server/local-registry intersection.
func (b *Builder) EnabledMechanisms(names ...string) *Builder {
	b.cfg.EnabledMechanisms = names
	return b
}

// ConnectTimeout overrides the per-target TCP connect timeout.
func (b *Builder) ConnectTimeout(d time.Duration) *Builder {
	b.cfg.ConnectTimeout = d
	return b
}

// ReadTimeout overrides the read timeout applied to the transport.
func (b *Builder) ReadTimeout(d time.Duration) *Builder {
	b.cfg.ReadTimeout = d
	return b
}

// SendPresence controls whether an initial <presence/> is sent after bind.
func (b *Builder) SendPresence(send bool) *Builder {
	b.cfg.SendPresence = send
	return b
}

// Credentials sets the username and password used for SASL authentication.
func (b *Builder) Credentials(username, password string) *Builder {
	b.cfg.Username = username
	b.cfg.Password = NewPassword(password)
	return b
}

// Authzid sets the SASL authorization identity.
func (b *Builder) Authzid(authzid string) *Builder {
	b.cfg.Authzid = authzid
	return b
}

// Security sets the TLS requirement mode.
func (b *Builder) Security(mode SecurityMode) *Builder {
	b.cfg.Mode = mode
	return b
}

// TLSConfig supplies custom trust roots, key material, or cipher/protocol
// restrictions for the TLS engine.
func (b *Builder) TLSConfig(cfg *tls.Config) *Builder {
	b.cfg.TLSConfig = cfg
	return b
}

// DirectTLS enables TLS from the first byte instead of in-band STARTTLS.
func (b *Builder) DirectTLS(direct bool) *Builder {
	b.cfg.DirectTLS = direct
	if direct && b.cfg.Port == 5222 {
		b.cfg.Port = 5223
	}
	return b
}

// HostnameVerification toggles TLS certificate verification; when false,
// neither the certificate chain nor the hostname is checked. Disabling it is
// only for testing against servers with unverifiable certificates.
func (b *Builder) HostnameVerification(verify bool) *Builder {
	b.cfg.HostnameVerification = verify
	return b
}

// HandshakeTimeout overrides the TLS handshake timeout.
func (b *Builder) HandshakeTimeout(d time.Duration) *Builder {
	b.cfg.HandshakeTimeout = d
	return b
}

// Reconnection enables automatic reconnection and overrides its backoff
// bounds.
func (b *Builder) Reconnection(enabled bool, base, max time.Duration) *Builder {
	b.cfg.ReconnectionEnabled = enabled
	if base > 0 {
		b.cfg.ReconnectionBaseDelay = base
	}
	if max > 0 {
		b.cfg.ReconnectionMaxDelay = max
	}
	return b
}

// Ping enables the keep-alive ping supervisor and overrides its interval.
func (b *Builder) Ping(enabled bool, interval time.Duration) *Builder {
	b.cfg.PingEnabled = enabled
	if interval > 0 {
		b.cfg.PingInterval = interval
	}
	return b
}

// logf writes a diagnostic message through cfg.Logger, discarding it if no
// Logger was configured (a Config built without Builder leaves it nil).
func (cfg *Config) logf(format string, args ...interface{}) {
	if cfg.Logger == nil {
		return
	}
	cfg.Logger.Printf(format, args...)
}

// Locale sets the default xml:lang emitted on the stream header.
func (b *Builder) Locale(tag language.Tag) *Builder {
	b.cfg.Lang = tag
	return b
}

// SCRAMIterationPolicy overrides the hard iteration floor and the
// advisory-warning threshold a server's SCRAM challenge is checked against
// (spec §4.4, §9). Zero values leave the existing value unchanged.
func (b *Builder) SCRAMIterationPolicy(floor, warn int) *Builder {
	if floor > 0 {
		b.cfg.SCRAMIterationFloor = floor
	}
	if warn > 0 {
		b.cfg.SCRAMIterationWarn = warn
	}
	return b
}

// Logger sets the diagnostic logger for this connection (spec §4.8, §9).
func (b *Builder) Logger(logger *log.Logger) *Builder {
	b.cfg.Logger = logger
	return b
}

// Build validates the accumulated options and returns the frozen Config.
func (b *Builder) Build() (*Config, error) {
	if b.err != nil {
		return nil, newError(ConfigError, b.err)
	}
	if b.cfg.ServiceDomain == "" {
		return nil, newErrorf(ConfigError, "service domain is required")
	}
	if b.cfg.Username == "" {
		return nil, newErrorf(ConfigError, "username is required")
	}
	if b.cfg.Password == nil {
		return nil, newErrorf(ConfigError, "password is required")
	}
	cfg := b.cfg
	return &cfg, nil
}
