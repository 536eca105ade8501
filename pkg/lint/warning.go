package lint

// Placeholder is rendered in place of an absent or out-of-range value.
const Placeholder = "<null>"

// Level is the severity of a warning, ordered from most to least severe.
type Level int

// Warning levels.
const (
	LevelError Level = iota
	LevelWarning
	LevelNotice
)

// String returns the display name of the level, or Placeholder for a
// value outside the enumeration.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "Error"
	case LevelWarning:
		return "Warning"
	case LevelNotice:
		return "Notice"
	default:
		return Placeholder
	}
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l >= LevelError && l <= LevelNotice
}

// WarningDomain tells which part of the description a warning concerns:
// the domain definition itself or the host node it would run on.
type WarningDomain int

// Warning domains.
const (
	DomainDomain WarningDomain = iota
	DomainNode
)

// String returns the display name of the domain, or Placeholder for a
// value outside the enumeration.
func (d WarningDomain) String() string {
	switch d {
	case DomainDomain:
		return "Domain"
	case DomainNode:
		return "Node"
	default:
		return Placeholder
	}
}

// Valid reports whether d is one of the defined domains.
func (d WarningDomain) Valid() bool {
	return d == DomainDomain || d == DomainNode
}

// Warning is a single diagnostic produced by a validation run.
type Warning struct {
	// Tags of the validator that raised the warning.
	Tags []string

	Domain WarningDomain
	Level  Level

	// Msg is empty when the engine supplied no message.
	Msg string
}

// Message returns the warning text, or Placeholder when there is none.
func (w Warning) Message() string {
	if w.Msg == "" {
		return Placeholder
	}
	return w.Msg
}
