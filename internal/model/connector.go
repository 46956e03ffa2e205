package model

import "time"

// Connector is a named (endpoint, credentials, timeouts, proxy) record used
// to construct a RemoteClient. A Connector keeps its own private copy of the
// password for as long as the Connector value lives (the Registry holds one
// per record); it is not re-read from source or zeroed by the Connector.
// Callers that want a fresh read use connector.ReadPasswordBytes, and every
// password buffer handed out must be zeroed by the caller after use.
type Connector struct {
	ID             string
	Endpoint       string
	Username       string
	password       []byte
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ProxyHost      string
	ProxyPort      int
}

// NewConnector builds a Connector, copying password so the caller's buffer
// can be independently zeroed.
func NewConnector(id, endpoint, username string, password []byte, connectTimeout, readTimeout, writeTimeout time.Duration, proxyHost string, proxyPort int) Connector {
	pw := make([]byte, len(password))
	copy(pw, password)
	return Connector{
		ID:             id,
		Endpoint:       endpoint,
		Username:       username,
		password:       pw,
		ConnectTimeout: connectTimeout,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		ProxyHost:      proxyHost,
		ProxyPort:      proxyPort,
	}
}

// HasProxy reports whether requests through this Connector should flow
// through a proxy.
func (c Connector) HasProxy() bool { return c.ProxyHost != "" }

// PasswordBytes returns a fresh copy of the password; the Connector's own
// copy is left untouched. The caller owns the returned slice and must call
// Zero on it immediately after use.
func (c Connector) PasswordBytes() []byte {
	cp := make([]byte, len(c.password))
	copy(cp, c.password)
	return cp
}

// Zero overwrites b in place with zero bytes. Call this immediately after a
// password buffer (from PasswordBytes or from reading the Connector source)
// is handed to an authenticator.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
