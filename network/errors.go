package network

import "errors"

var (
	// ErrConnectionFailed indicates the client could not reach the server.
	ErrConnectionFailed = errors.New("network: connection failed")

	// ErrAllServersFailed indicates every configured server was tried and
	// none answered.
	ErrAllServersFailed = errors.New("network: all servers failed")

	// ErrTxNotFound indicates the requested transaction does not exist.
	ErrTxNotFound = errors.New("network: transaction not found")

	// ErrBroadcastRejected indicates the server rejected the broadcast transaction.
	ErrBroadcastRejected = errors.New("network: broadcast rejected")

	// ErrInvalidResponse indicates the server returned a malformed or unexpected response.
	ErrInvalidResponse = errors.New("network: invalid response")

	// ErrNoServers indicates the pool was given an empty server list.
	ErrNoServers = errors.New("network: no servers configured")
)
