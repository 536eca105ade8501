package capstore

import (
	"context"
	"log/slog"

	"github.com/virtlint/virtlint/pkg/connect"
)

// cachedConn serves capabilities from a Store, fetching and storing them
// on a miss. Free memory is live data and always goes to the connection.
type cachedConn struct {
	connect.Conn
	store  *Store
	logger *slog.Logger
}

// Wrap returns conn with its capabilities cached in store. Cache failures
// are logged and fall back to the connection.
func Wrap(conn connect.Conn, store *Store, logger *slog.Logger) connect.Conn {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &cachedConn{Conn: conn, store: store, logger: logger.With(slog.String("cache", store.Path()))}
}

func (c *cachedConn) Capabilities(ctx context.Context) (string, error) {
	return c.cached(ctx, KindCapabilities, "", func() (string, error) {
		return c.Conn.Capabilities(ctx)
	})
}

func (c *cachedConn) DomainCapabilities(ctx context.Context, q connect.DomainCapsQuery) (string, error) {
	return c.cached(ctx, KindDomainCapabilities, q.String(), func() (string, error) {
		return c.Conn.DomainCapabilities(ctx, q)
	})
}

func (c *cachedConn) cached(ctx context.Context, kind, query string, fetch func() (string, error)) (string, error) {
	uri := c.URI()
	log := c.logger.With(slog.String("uri", uri), slog.String("kind", kind), slog.String("query", query))

	xml, ok, err := c.store.Get(ctx, uri, kind, query)
	switch {
	case err != nil:
		log.Warn("capabilities cache unavailable", slog.String("error", err.Error()))
	case ok:
		log.Debug("capabilities cache hit")
		return xml, nil
	}

	xml, err = fetch()
	if err != nil {
		return "", err
	}
	if err := c.store.Put(ctx, uri, kind, query, xml); err != nil {
		log.Warn("failed to update capabilities cache", slog.String("error", err.Error()))
	}
	return xml, nil
}
