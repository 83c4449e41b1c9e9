// Package natsclient provides supervised NATS connectivity for Signalgrid Core.
//
// This package manages:
//   - Resolving declarative configuration into connection options
//     (credentials, NKey seeds, .creds files, TLS material)
//   - Connection lifecycle (Start / Stop with graceful drain)
//   - Translating the transport's asynchronous status notifications into
//     structured log entries
//
// # Architecture
//
// The client owns exactly one connection at a time. From the moment Start
// succeeds, a background supervision loop selects over the transport's
// status notifications and its terminal closed signal; the loop ends when
// the connection closes and is never restarted. Reconnection is the
// transport's job, governed by the configured reconnect policy, not ours.
//
//	config.yaml → ResolveOptions → nats.Connect → supervise loop → logs
//
// # Security Considerations
//
//   - Credential material (.creds, seeds, keys) is read from disk only
//     during option resolution and held in memory for the connection's life
//   - TLS 1.2 is the floor for secured connections
//   - Secrets are never written to logs
//
// # Usage
//
//	client := natsclient.New(cfg.NATS, logger)
//	if err := client.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Stop()
package natsclient
