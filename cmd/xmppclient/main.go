// The xmppclient command connects to an XMPP server, authenticates, and
// waits for the connection to close, logging the lifecycle events it
// receives. Its listener is registered after Dial returns, so the Connected
// and Authenticated events of the first connection, which Dial dispatches
// itself, are not logged; those of later reconnections are. It exists to
// exercise the connection core end to end from the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	xmpp "github.com/lesswhite810/xmpp-client-sub000"
)

const (
	envDomain = "XMPP_DOMAIN"
	envUser   = "XMPP_USER"
	envPass   = "XMPP_PASSWORD"
	envHost   = "XMPP_HOST"
	envPort   = "XMPP_PORT"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <domain> <username> <password>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	domain, username, password, err := resolveCredentials(flag.Args())
	if err != nil {
		logger.Print(err)
		flag.Usage()
		return 1
	}

	builder := xmpp.NewBuilder().
		ServiceDomain(domain).
		Credentials(username, password).
		Reconnection(true, 2*time.Second, 60*time.Second).
		Ping(true, 60*time.Second).
		Logger(logger)

	if host := os.Getenv(envHost); host != "" {
		builder = builder.Host(host)
	}
	if portStr := os.Getenv(envPort); portStr != "" {
		port, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			logger.Printf("invalid %s %q: %v", envPort, portStr, err)
			return 1
		}
		builder = builder.Port(uint16(port))
	}

	cfg, err := builder.Build()
	if err != nil {
		logger.Printf("invalid configuration: %v", err)
		return 1
	}

	closed := make(chan error, 1)
	closeOnce := func(cause error) {
		select {
		case closed <- cause:
		default:
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout+cfg.HandshakeTimeout+10*time.Second)
	defer cancel()

	conn, err := xmpp.Dial(ctx, cfg)
	if err != nil {
		logger.Printf("error connecting: %v", err)
		return 1
	}

	conn.AddListener(func(ev xmpp.Event) {
		switch {
		case ev.IsConnected():
			logger.Print("transport connected")
		case ev.IsAuthenticated():
			logger.Printf("authenticated as %s (resumed=%v)", conn.JID(), ev.Resumed)
		case ev.IsClosed():
			logger.Print("connection closed")
			closeOnce(nil)
		case ev.IsClosedOnError():
			logger.Printf("connection closed on error: %v", ev.Cause)
			closeOnce(ev.Cause)
		}
	})

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case <-sigCtx.Done():
		if err := conn.Disconnect(); err != nil {
			logger.Printf("error disconnecting: %v", err)
		}
		return 0
	case cause := <-closed:
		if cause != nil {
			return 1
		}
		return 0
	}
}

// resolveCredentials takes positional args if present, falling back to the
// documented environment variables (spec §6.3).
func resolveCredentials(args []string) (domain, username, password string, err error) {
	switch len(args) {
	case 3:
		return args[0], args[1], args[2], nil
	case 0:
		domain, username, password = os.Getenv(envDomain), os.Getenv(envUser), os.Getenv(envPass)
		if domain == "" || username == "" || password == "" {
			return "", "", "", fmt.Errorf("missing credentials: pass <domain> <username> <password> or set %s/%s/%s", envDomain, envUser, envPass)
		}
		return domain, username, password, nil
	default:
		return "", "", "", fmt.Errorf("expected 3 positional args (domain username password) or none with environment fallbacks, got %d", len(args))
	}
}
