package connect

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// Factory opens a connection for a parsed URI.
// The logger is never nil.
type Factory func(ctx context.Context, uri *url.URL, logger *slog.Logger) (Conn, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a driver for a URI scheme.
// Called by drivers in their init() functions.
func Register(scheme string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[scheme] = factory
}

// Get retrieves a driver factory by scheme.
func Get(scheme string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[scheme]
	return f, ok
}

// Open connects to the host named by rawURI.
// A transport suffix in the scheme ("qemu+ssh") selects the "qemu" driver.
// The logger parameter is passed to the driver (nil uses discard logger).
func Open(ctx context.Context, rawURI string, logger *slog.Logger) (Conn, error) {
	if rawURI == "" {
		return nil, fmt.Errorf("connection URI not specified")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	u, err := url.Parse(rawURI)
	if err != nil {
		return nil, fmt.Errorf("invalid connection URI %q: %w", rawURI, err)
	}

	scheme, _, _ := strings.Cut(u.Scheme, "+")
	factory, ok := Get(scheme)
	if !ok {
		return nil, &UnknownDriverError{
			Scheme:    scheme,
			Available: ListDrivers(),
		}
	}

	logger.Debug("opening connection", slog.String("uri", rawURI), slog.String("driver", scheme))
	return factory(ctx, u, logger)
}

// ListDrivers returns all registered schemes (sorted).
func ListDrivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a driver is registered for scheme.
func IsRegistered(scheme string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[scheme]
	return ok
}

// UnknownDriverError is returned when no driver handles a URI scheme.
type UnknownDriverError struct {
	Scheme    string
	Available []string
}

func (e *UnknownDriverError) Error() string {
	return fmt.Sprintf("no connection driver for scheme %q (available: %s)", e.Scheme, strings.Join(e.Available, ", "))
}
