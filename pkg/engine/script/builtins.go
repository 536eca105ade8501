package script

import (
	"errors"
	"fmt"
	"log/slog"

	"go.starlark.net/starlark"

	"github.com/virtlint/virtlint/pkg/engine"
	"github.com/virtlint/virtlint/pkg/lint"
)

// Global documents one predeclared script global.
type Global struct {
	Name      string
	Signature string
	Doc       string
}

// Globals lists the globals every script sees.
var Globals = []Global{
	{Name: "WarningDomain_Domain", Signature: "int", Doc: "Domain of warnings about the domain definition itself."},
	{Name: "WarningDomain_Node", Signature: "int", Doc: "Domain of warnings about the host the domain would run on."},
	{Name: "WarningLevel_Error", Signature: "int", Doc: "The domain cannot run as defined."},
	{Name: "WarningLevel_Warning", Signature: "int", Doc: "The domain may run but something is likely wrong."},
	{Name: "WarningLevel_Notice", Signature: "int", Doc: "Informational."},
	{Name: "add_warning", Signature: "add_warning(domain, level, msg)", Doc: "Report a warning tagged with the script's tags."},
	{Name: "caps_xml", Signature: "caps_xml()", Doc: "Host capabilities XML, or None without a connection."},
	{Name: "caps_xpath", Signature: "caps_xpath(expr)", Doc: "Evaluate expr against the host capabilities. Returns a list of strings, or None without a connection."},
	{Name: "cells_free_memory", Signature: "cells_free_memory(cell)", Doc: "Free memory in bytes of one NUMA cell, as a one element list, or None without a connection."},
	{Name: "dom_xml", Signature: "dom_xml()", Doc: "The domain XML being validated."},
	{Name: "dom_xpath", Signature: "dom_xpath(expr)", Doc: "Evaluate expr against the domain XML. Returns a list of strings."},
	{Name: "domcaps_xml", Signature: "domcaps_xml()", Doc: "Domain capabilities XML for the domain's emulator, arch, machine and virt type, or None."},
	{Name: "domcaps_xpath", Signature: "domcaps_xpath(expr)", Doc: "Evaluate expr against the domain capabilities. Returns a list of strings, or None."},
	{Name: "has_connection", Signature: "has_connection()", Doc: "Whether the session has a hypervisor connection."},
	{Name: "parse_memory", Signature: "parse_memory(value, unit)", Doc: "Convert a libvirt memory value and unit to bytes."},
}

func isPredeclared(name string) bool {
	for _, g := range Globals {
		if g.Name == name {
			return true
		}
	}
	return false
}

type builtinFunc = func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error)

// bindings exposes one validation to a script.
type bindings struct {
	c *engine.Context
}

// Predeclared returns the globals of a script validating in c.
func Predeclared(c *engine.Context) starlark.StringDict {
	b := &bindings{c: c}
	return starlark.StringDict{
		"WarningDomain_Domain": starlark.MakeInt(int(lint.DomainDomain)),
		"WarningDomain_Node":   starlark.MakeInt(int(lint.DomainNode)),
		"WarningLevel_Error":   starlark.MakeInt(int(lint.LevelError)),
		"WarningLevel_Warning": starlark.MakeInt(int(lint.LevelWarning)),
		"WarningLevel_Notice":  starlark.MakeInt(int(lint.LevelNotice)),

		"add_warning":       starlark.NewBuiltin("add_warning", b.addWarning),
		"dom_xpath":         starlark.NewBuiltin("dom_xpath", b.xpath(b.domain)),
		"caps_xpath":        starlark.NewBuiltin("caps_xpath", b.xpath(b.caps)),
		"domcaps_xpath":     starlark.NewBuiltin("domcaps_xpath", b.xpath(b.domcaps)),
		"dom_xml":           starlark.NewBuiltin("dom_xml", b.xml(b.domain)),
		"caps_xml":          starlark.NewBuiltin("caps_xml", b.xml(b.caps)),
		"domcaps_xml":       starlark.NewBuiltin("domcaps_xml", b.xml(b.domcaps)),
		"has_connection":    starlark.NewBuiltin("has_connection", b.hasConnection),
		"cells_free_memory": starlark.NewBuiltin("cells_free_memory", b.cellsFreeMemory),
		"parse_memory":      starlark.NewBuiltin("parse_memory", parseMemory),
	}
}

type docSource func() (*engine.Document, error)

func (b *bindings) domain() (*engine.Document, error) {
	return b.c.Domain(), nil
}

func (b *bindings) caps() (*engine.Document, error) {
	return b.c.Capabilities()
}

// domcaps reports a failed lookup as unavailable; scripts decide what a
// missing document means.
func (b *bindings) domcaps() (*engine.Document, error) {
	doc, err := b.c.DomainCapabilities()
	if err != nil && !errors.Is(err, engine.ErrNoConnection) {
		b.c.Logger().Debug("domain capabilities unavailable", slog.String("error", err.Error()))
		return nil, nil
	}
	return doc, err
}

func (b *bindings) xpath(src docSource) builtinFunc {
	return func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var expr string
		if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &expr); err != nil {
			return nil, err
		}
		doc, err := src()
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return starlark.None, nil
		}
		values, err := doc.Eval(expr)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn.Name(), err)
		}
		elems := make([]starlark.Value, len(values))
		for i, v := range values {
			elems[i] = starlark.String(v)
		}
		return starlark.NewList(elems), nil
	}
}

func (b *bindings) xml(src docSource) builtinFunc {
	return func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 0); err != nil {
			return nil, err
		}
		doc, err := src()
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return starlark.None, nil
		}
		return starlark.String(doc.XML()), nil
	}
}

func (b *bindings) hasConnection(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	conn, err := b.c.Conn()
	if errors.Is(err, engine.ErrNoConnection) {
		return starlark.False, nil
	}
	return starlark.Bool(conn != nil), nil
}

func (b *bindings) cellsFreeMemory(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var cell int
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &cell); err != nil {
		return nil, err
	}
	conn, err := b.c.Conn()
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return starlark.None, nil
	}
	free, err := conn.CellsFreeMemory(b.c.Context(), cell, 1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	elems := make([]starlark.Value, len(free))
	for i, v := range free {
		elems[i] = starlark.MakeUint64(v)
	}
	return starlark.NewList(elems), nil
}

func (b *bindings) addWarning(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		domain, level int
		msg           string
	)
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 3, &domain, &level, &msg); err != nil {
		return nil, err
	}
	d := lint.WarningDomain(domain)
	if !d.Valid() {
		return nil, fmt.Errorf("%s: invalid warning domain %d", fn.Name(), domain)
	}
	l := lint.Level(level)
	if !l.Valid() {
		return nil, fmt.Errorf("%s: invalid warning level %d", fn.Name(), level)
	}
	b.c.AddWarning(d, l, msg)
	return starlark.None, nil
}

// parseMemory converts a libvirt memory value and unit to bytes.
func parseMemory(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var value, unit string
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &value, &unit); err != nil {
		return nil, err
	}
	n, err := engine.ParseMemory(value, unit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	return starlark.MakeUint64(n), nil
}
