package transport

import (
	"io"
	"os"
	"sync"
)

// TLS key logging in the SSLKEYLOGFILE format, so shared-session handshakes
// can be decrypted in Wireshark while debugging. The writer is read lazily
// from the SSLKEYLOGFILE environment variable the first time a transfer
// handle builds a TLS config, and can be overridden programmatically.

var (
	keyLogMu     sync.Mutex
	keyLogWriter io.Writer
	keyLogLoaded bool
)

// KeyLogWriter returns the process-wide key log writer, or nil when key
// logging is not configured. Handles pass it to tls.Config.KeyLogWriter.
func KeyLogWriter() io.Writer {
	keyLogMu.Lock()
	defer keyLogMu.Unlock()
	if !keyLogLoaded {
		keyLogLoaded = true
		if path := os.Getenv("SSLKEYLOGFILE"); path != "" {
			// Errors are ignored; key logging is a debug aid.
			if f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600); err == nil {
				keyLogWriter = f
			}
		}
	}
	return keyLogWriter
}

// SetKeyLogWriter installs a custom key log writer, replacing any writer
// loaded from the environment. Pass nil to disable key logging.
func SetKeyLogWriter(w io.Writer) {
	keyLogMu.Lock()
	defer keyLogMu.Unlock()
	closeKeyLogLocked()
	keyLogLoaded = true
	keyLogWriter = w
}

// SetKeyLogFile opens path for appending and installs it as the key log
// writer. An empty path disables key logging.
func SetKeyLogFile(path string) error {
	if path == "" {
		SetKeyLogWriter(nil)
		return nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return err
	}
	SetKeyLogWriter(f)
	return nil
}

// CloseKeyLog closes the current writer if this package opened it.
func CloseKeyLog() error {
	keyLogMu.Lock()
	defer keyLogMu.Unlock()
	return closeKeyLogLocked()
}

func closeKeyLogLocked() error {
	var err error
	if closer, ok := keyLogWriter.(io.Closer); ok {
		err = closer.Close()
	}
	keyLogWriter = nil
	return err
}
