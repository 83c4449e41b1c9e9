package natsclient

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"
	"golang.org/x/sync/errgroup"

	"github.com/signalgrid/signalgrid-core/internal/infrastructure/config"
)

// tlsMinVersion is the minimum TLS version for secure connections.
const tlsMinVersion = tls.VersionTLS12

// ConnectionOptions is the fully resolved connect-time material for one NATS
// connection. It is assembled once by ResolveOptions and not modified after.
type ConnectionOptions struct {
	Servers        []string
	Name           string
	NoRandomize    bool
	AllowReconnect bool
	MaxReconnects  int // -1 means unlimited
	ReconnectWait  time.Duration
	DrainTimeout   time.Duration

	// Authenticators holds one option per configured credential,
	// in configuration order.
	Authenticators []nats.Option

	TLS               *tls.Config
	TLSHandshakeFirst bool

	Debug         bool
	NoAsyncTraces bool
}

// ResolveOptions turns the declarative NATS configuration into connection
// options ready for Connect.
//
// Credential and certificate material may live on disk, so resolution performs
// local file reads; it never touches the network. Each auth entry resolves
// concurrently, but the resulting slice preserves configuration order. Any
// single failure aborts the whole resolution — a partially resolved credential
// list is never returned. The input config is not modified.
//
// Returns:
//   - *ConnectionOptions: Resolved options ready for Connect
//   - error: Wrapping ErrResolveFailed if any credential or certificate
//     cannot be read or parsed
func ResolveOptions(cfg config.NATSConfig) (*ConnectionOptions, error) {
	opts := &ConnectionOptions{
		Servers:        append([]string(nil), cfg.Servers...),
		Name:           cfg.Name,
		NoRandomize:    cfg.NoRandomize,
		AllowReconnect: cfg.Reconnect.Enabled,
		MaxReconnects:  cfg.Reconnect.MaxAttempts,
		ReconnectWait:  cfg.Reconnect.GetReconnectWait(),
		DrainTimeout:   cfg.GetDrainTimeout(),
		Debug:          cfg.Debug,
		NoAsyncTraces:  cfg.NoAsyncTraces,
	}

	if len(cfg.Auth) > 0 {
		auths := make([]nats.Option, len(cfg.Auth))
		var g errgroup.Group
		for i, spec := range cfg.Auth {
			g.Go(func() error {
				opt, err := resolveAuth(spec)
				if err != nil {
					return err
				}
				auths[i] = opt
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrResolveFailed, err)
		}
		opts.Authenticators = auths
	}

	if cfg.TLS.Enabled {
		tlsCfg, err := resolveTLS(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrResolveFailed, err)
		}
		opts.TLS = tlsCfg
		opts.TLSHandshakeFirst = cfg.TLS.HandshakeFirst
	}

	return opts, nil
}

// resolveAuth builds a single transport authenticator from one credential spec.
func resolveAuth(spec config.AuthConfig) (nats.Option, error) {
	switch strings.ToLower(spec.Type) {
	case config.AuthToken:
		return nats.Token(spec.Token), nil

	case config.AuthUserPass:
		return nats.UserInfo(spec.Username, spec.Password), nil

	case config.AuthNKey:
		kp, err := nkeys.FromSeed([]byte(spec.NkeySeed))
		if err != nil {
			return nil, fmt.Errorf("parsing nkey seed: %w", err)
		}
		pub, err := kp.PublicKey()
		if err != nil {
			return nil, fmt.Errorf("deriving nkey public key: %w", err)
		}
		return nats.Nkey(pub, kp.Sign), nil

	case config.AuthCredsFile:
		data, err := os.ReadFile(spec.CredsFile)
		if err != nil {
			return nil, fmt.Errorf("reading creds file: %w", err)
		}
		return credsOption(data)

	default:
		return nil, fmt.Errorf("unknown auth type %q", spec.Type)
	}
}

// credsOption builds a JWT authenticator from decorated .creds file content.
func credsOption(data []byte) (nats.Option, error) {
	jwt, err := nkeys.ParseDecoratedJWT(data)
	if err != nil {
		return nil, fmt.Errorf("parsing creds jwt: %w", err)
	}
	kp, err := nkeys.ParseDecoratedUserNKey(data)
	if err != nil {
		return nil, fmt.Errorf("parsing creds nkey: %w", err)
	}
	return nats.UserJWT(
		func() (string, error) { return jwt, nil },
		kp.Sign,
	), nil
}

// resolveTLS builds a tls.Config from the TLS configuration, reading any
// file-based material from disk.
func resolveTLS(cfg config.TLSConfig) (*tls.Config, error) {
	cert, err := resolveTLSSlot(cfg.CertFile, cfg.Cert)
	if err != nil {
		return nil, fmt.Errorf("resolving tls cert: %w", err)
	}
	key, err := resolveTLSSlot(cfg.KeyFile, cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("resolving tls key: %w", err)
	}
	ca, err := resolveTLSSlot(cfg.CAFile, cfg.CA)
	if err != nil {
		return nil, fmt.Errorf("resolving tls ca: %w", err)
	}

	tlsCfg := &tls.Config{MinVersion: tlsMinVersion}

	if cert != "" || key != "" {
		if cert == "" || key == "" {
			return nil, fmt.Errorf("tls cert and key must be provided together")
		}
		pair, err := tls.X509KeyPair([]byte(cert), []byte(key))
		if err != nil {
			return nil, fmt.Errorf("loading client keypair: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{pair}
	}

	if ca != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(ca)) {
			return nil, fmt.Errorf("no valid certificates in ca material")
		}
		tlsCfg.RootCAs = pool
	}

	return tlsCfg, nil
}

// resolveTLSSlot resolves one of cert/key/ca. A file path wins over inline
// material; the slot is absent when neither is set.
func resolveTLSSlot(path, inline string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return inline, nil
}

// natsOptions converts the resolved options into the transport's option list.
func (o *ConnectionOptions) natsOptions() []nats.Option {
	opts := []nats.Option{}

	if o.Name != "" {
		opts = append(opts, nats.Name(o.Name))
	}
	if o.NoRandomize {
		opts = append(opts, nats.DontRandomize())
	}

	if o.AllowReconnect {
		opts = append(opts, nats.MaxReconnects(o.MaxReconnects))
		if o.ReconnectWait > 0 {
			opts = append(opts, nats.ReconnectWait(o.ReconnectWait))
		}
	} else {
		opts = append(opts, nats.NoReconnect())
	}

	if o.DrainTimeout > 0 {
		opts = append(opts, nats.DrainTimeout(o.DrainTimeout))
	}

	opts = append(opts, o.Authenticators...)

	if o.TLS != nil {
		opts = append(opts, nats.Secure(o.TLS))
		if o.TLSHandshakeFirst {
			opts = append(opts, nats.TLSHandshakeFirst())
		}
	}

	return opts
}

// serverURL joins the server list into the comma-separated form the
// transport expects.
func (o *ConnectionOptions) serverURL() string {
	return strings.Join(o.Servers, ",")
}
