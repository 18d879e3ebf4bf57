package client

import "time"

const (
	// environment variable overriding the server URL (otherwise built from host and port)
	ServerURLEnvName = "QSIZER_URL"

	// timeout of one call; optimizer runs may take a while
	DefaultTimeout = 5 * time.Minute
)
