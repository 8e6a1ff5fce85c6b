package xmpp

import (
	"context"
	"crypto/tls"
	"net"
	"time"
)

// upgradeTLS performs the TLS handshake on top of conn, honoring the
// configured handshake timeout, custom *tls.Config, and hostname
// verification toggle (spec §4.3 TLS_NEGOTIATING: "SNI MUST use the XMPP
// service domain ... hostname verification SHOULD be enabled unless
// explicitly disabled").
func upgradeTLS(ctx context.Context, conn net.Conn, cfg *Config) (*tls.Conn, error) {
	tlsCfg := cfg.TLSConfig
	if tlsCfg == nil {
		tlsCfg = &tls.Config{}
	} else {
		tlsCfg = tlsCfg.Clone()
	}
	tlsCfg.ServerName = cfg.ServiceDomain
	tlsCfg.InsecureSkipVerify = !cfg.HostnameVerification

	deadline := cfg.HandshakeTimeout
	if deadline <= 0 {
		deadline = 10 * time.Second
	}
	hctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	tlsConn := tls.Client(conn, tlsCfg)
	if err := tlsConn.HandshakeContext(hctx); err != nil {
		return nil, newError(TlsError, err)
	}
	return tlsConn, nil
}
