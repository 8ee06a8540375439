// File: api/collaborators.go
// Package api
// Author: momentics <momentics@gmail.com>
//
// Narrow interfaces for the external collaborators the core depends on but
// does not implement: DNS resolution, TLS termination, URI manipulation,
// and cluster payload compression/ciphering. Concrete adapters live in
// their own packages (e.g. cluster's zstd/lz4/AES-GCM adapters); the core
// packages (reactor, client, cluster) only ever see these interfaces.

package api

import "context"

// DNSResolver resolves a domain to an IP for a given address family, caches
// hits, and supports cancellation and blacklisting of bad results.
type DNSResolver interface {
	// Resolve starts an asynchronous lookup and returns a request id usable
	// with Cancel. The continuation is delivered via the registered
	// DNSCallback.
	Resolve(ctx context.Context, domain string, family int) (requestID uint64, err error)
	// Cancel aborts a pending lookup; a no-op if already completed.
	Cancel(requestID uint64)
	// Blacklist marks an IP as unusable for family so future Resolve calls
	// skip it.
	Blacklist(family int, ip string)
	// Flush clears the resolver's cache and blacklist.
	Flush()
}

// DNSCallback is invoked once per Resolve call with the resolved IP (empty
// on failure) and the family actually used.
type DNSCallback func(requestID uint64, ip string, family int)

// TLSEngine wraps a raw socket with TLS/DTLS framing. It has no Read/Write
// of its own: I/O goes through the NetConn returned by Wrap/WrapClient,
// whose Read/Write return (n, err) like any io.Reader/io.Writer.
type TLSEngine interface {
	WrapClient(ctx context.Context, conn NetConn, serverName string) (NetConn, error)
	Wrap(ctx context.Context, conn NetConn, mode TLSMode) (NetConn, error)
	IsTLS(conn NetConn) bool
	SetBuffers(conn NetConn, readBPS, writeBPS int, priority int)
	Clear(conn NetConn)
}

// TLSMode selects client or server handshake orientation for Wrap.
type TLSMode int

const (
	TLSModeClient TLSMode = iota
	TLSModeServer
)

// URIResolver combines and renders URLs; kept narrow so the core never
// parses URIs itself.
type URIResolver interface {
	Combine(baseURL, relativeURL string) (string, error)
	String(u any) string
}

// CompressMethod enumerates the cluster payload compression codecs
// selectable per spec §6.
type CompressMethod int

const (
	CompressNone CompressMethod = iota
	CompressZstd
	CompressLZ4
	CompressFlate
)

// CipherMethod enumerates the cluster payload cipher suites selectable per
// spec §6.
type CipherMethod int

const (
	CipherNone CipherMethod = iota
	CipherAES128
	CipherAES192
	CipherAES256
)

// Compressor compresses/decompresses cluster IPC payloads. Implementations
// must be safe for sequential reuse by a single Encoder/Decoder (no internal
// concurrency guarantees required).
type Compressor interface {
	Method() CompressMethod
	Compress(dst, src []byte) ([]byte, error)
	Decompress(dst, src []byte) ([]byte, error)
}

// Cipher encrypts/decrypts cluster IPC payloads using a password+salt
// derived key, per spec §6.
type Cipher interface {
	Method() CipherMethod
	SetPassword(password string)
	SetSalt(salt string)
	Seal(dst, plaintext []byte) ([]byte, error)
	Open(dst, ciphertext []byte) ([]byte, error)
}
