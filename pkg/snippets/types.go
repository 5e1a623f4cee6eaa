package snippets

import (
	"fmt"
	"strings"

	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/core"
)

// Identifier spaces. They all come from one core.IDGenerator but are kept as
// distinct types so a connector id cannot be passed where a snippet id is
// expected.
type (
	SnippetID    core.ID
	ConnectorID  core.ID
	PipelineID   core.ID
	ParameterID  core.ID
	DefinitionID core.ID
	PortID       core.ID
)

func (id SnippetID) String() string    { return core.ID(id).String() }
func (id ConnectorID) String() string  { return core.ID(id).String() }
func (id PipelineID) String() string   { return core.ID(id).String() }
func (id ParameterID) String() string  { return core.ID(id).String() }
func (id DefinitionID) String() string { return core.ID(id).String() }
func (id PortID) String() string       { return core.ID(id).String() }

// Direction tells whether a connector receives or emits data.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ContentType is the kind of payload a port serves or receives.
type ContentType string

const (
	ContentNone ContentType = "none"
	ContentXML  ContentType = "xml"
	ContentJSON ContentType = "json"
)

// ParseContentType accepts a content type name case-insensitively. An empty
// string means JSON.
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(strings.ToLower(strings.TrimSpace(s))) {
	case "", ContentJSON:
		return ContentJSON, nil
	case ContentXML:
		return ContentXML, nil
	case ContentNone:
		return ContentNone, nil
	}
	return "", fmt.Errorf("unknown content type %q", s)
}

// ParameterKind is the declared semantic kind of a parameter. Values of every
// kind are stored as strings.
type ParameterKind string

const (
	SingleLineText ParameterKind = "SingleLineText"
	MultiLineText  ParameterKind = "MultiLineText"
	Number         ParameterKind = "Number"
	Boolean        ParameterKind = "Boolean"
)

var parameterDefaults = map[ParameterKind]string{
	SingleLineText: "",
	MultiLineText:  "",
	Number:         "0",
	Boolean:        "false",
}

// Valid reports whether k is a known kind.
func (k ParameterKind) Valid() bool {
	_, ok := parameterDefaults[k]
	return ok
}

// Default returns the initial value of a parameter of kind k.
func (k ParameterKind) Default() string {
	return parameterDefaults[k]
}

// ParseParameterKind accepts a kind name case-insensitively.
func ParseParameterKind(s string) (ParameterKind, error) {
	for k := range parameterDefaults {
		if strings.EqualFold(string(k), strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown parameter kind %q", s)
}

// PortRef names one port of one snippet.
type PortRef struct {
	Snippet SnippetID `json:"snippet"`
	Port    string    `json:"port"`
}

func (r PortRef) String() string {
	return fmt.Sprintf("%s.%s", r.Snippet, r.Port)
}
