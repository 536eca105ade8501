package engine

import (
	"context"
	"log/slog"
	"slices"

	"github.com/virtlint/virtlint/pkg/connect"
	"github.com/virtlint/virtlint/pkg/lint"
)

// Context is handed to a validator while it runs.
type Context struct {
	ctx       context.Context
	session   *Session
	dom       *Document
	strict    bool
	validator Validator
}

// Context returns the context of the validation call.
func (c *Context) Context() context.Context {
	return c.ctx
}

// Logger returns the session logger.
func (c *Context) Logger() *slog.Logger {
	return c.session.logger.With(slog.String("validator", c.validator.Name))
}

// Domain returns the description being validated.
func (c *Context) Domain() *Document {
	return c.dom
}

// Conn returns the session connection. Without one it returns
// ErrNoConnection in strict mode and (nil, nil) otherwise.
func (c *Context) Conn() (connect.Conn, error) {
	if c.session.conn == nil {
		if c.strict {
			return nil, ErrNoConnection
		}
		return nil, nil
	}
	return c.session.conn, nil
}

// Capabilities returns the host capabilities. A nil document with a nil
// error means they are unavailable and the check should be skipped.
func (c *Context) Capabilities() (*Document, error) {
	return c.session.capabilities(c.ctx, c.strict)
}

// DomainCapsQuery derives the domain capabilities query from the
// description's emulator, arch, machine and virt type.
func (c *Context) DomainCapsQuery() (connect.DomainCapsQuery, error) {
	var q connect.DomainCapsQuery
	fields := []struct {
		dst  *string
		expr string
	}{
		{&q.Emulator, "//domain/devices/emulator"},
		{&q.Arch, "//domain/os/type/@arch"},
		{&q.Machine, "//domain/os/type/@machine"},
		{&q.VirtType, "//domain/@type"},
	}
	for _, f := range fields {
		v, err := c.dom.First(f.expr)
		if err != nil {
			return q, err
		}
		*f.dst = v
	}
	return q, nil
}

// DomainCapabilities returns the domain capabilities matching the
// description. A nil document with a nil error means they are unavailable.
func (c *Context) DomainCapabilities() (*Document, error) {
	q, err := c.DomainCapsQuery()
	if err != nil {
		return nil, err
	}
	return c.session.domainCapabilities(c.ctx, q, c.strict)
}

// AddWarning records a warning tagged with the running validator's tags.
func (c *Context) AddWarning(domain lint.WarningDomain, level lint.Level, msg string) {
	tags := append([]string{}, c.validator.Tags...)
	slices.Sort(tags)
	c.session.addWarning(lint.Warning{
		Tags:   tags,
		Domain: domain,
		Level:  level,
		Msg:    msg,
	})
}
