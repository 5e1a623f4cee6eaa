package snippets

import (
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/topology"
)

// Connector is a named, directional port instance on a snippet. Connectors
// are immutable once created.
type Connector struct {
	id        ConnectorID
	port      PortID
	name      string
	direction Direction
	content   ContentType
}

func (c Connector) ID() ConnectorID      { return c.id }
func (c Connector) PortID() PortID       { return c.port }
func (c Connector) Name() string         { return c.name }
func (c Connector) Direction() Direction { return c.direction }
func (c Connector) IsInput() bool        { return c.direction == Input }

func (c Connector) ContentType() ContentType { return c.content }

// Parameter is a named, user-editable value on a snippet. Identity and kind
// are fixed; the value is not.
type Parameter struct {
	id    ParameterID
	name  string
	kind  ParameterKind
	value string
}

func (p *Parameter) ID() ParameterID     { return p.id }
func (p *Parameter) Name() string        { return p.name }
func (p *Parameter) Kind() ParameterKind { return p.kind }
func (p *Parameter) Value() string       { return p.value }

// UpdateValue replaces the stored value. Values are not checked against the
// declared kind.
func (p *Parameter) UpdateValue(v string) {
	p.value = v
}

// Snippet is a unit of work instantiated from a definition. It owns its
// connectors and parameters.
type Snippet struct {
	id         SnippetID
	name       string
	definition DefinitionID
	connectors []Connector
	parameters []*Parameter
	node       topology.NodeIndex
}

func (s *Snippet) ID() SnippetID              { return s.id }
func (s *Snippet) Name() string               { return s.name }
func (s *Snippet) DefinitionID() DefinitionID { return s.definition }

// Connectors returns a copy of the connector list in declaration order.
func (s *Snippet) Connectors() []Connector {
	out := make([]Connector, len(s.connectors))
	copy(out, s.connectors)
	return out
}

// ConnectorIDs returns the ids of every connector in declaration order.
func (s *Snippet) ConnectorIDs() []ConnectorID {
	out := make([]ConnectorID, 0, len(s.connectors))
	for _, c := range s.connectors {
		out = append(out, c.id)
	}
	return out
}

// Parameters returns the parameters in declaration order.
func (s *Snippet) Parameters() []*Parameter {
	out := make([]*Parameter, len(s.parameters))
	copy(out, s.parameters)
	return out
}

// FindConnector scans the connector list for id. Snippets carry tens of
// connectors at most, so a scan beats keeping another index.
func (s *Snippet) FindConnector(id ConnectorID) (Connector, bool) {
	for _, c := range s.connectors {
		if c.id == id {
			return c, true
		}
	}
	return Connector{}, false
}

// FindConnectorByName returns the first connector called name with the given
// direction.
func (s *Snippet) FindConnectorByName(name string, dir Direction) (Connector, bool) {
	for _, c := range s.connectors {
		if c.name == name && c.direction == dir {
			return c, true
		}
	}
	return Connector{}, false
}

// FindParameter returns the parameter with the given id.
func (s *Snippet) FindParameter(id ParameterID) (*Parameter, bool) {
	for _, p := range s.parameters {
		if p.id == id {
			return p, true
		}
	}
	return nil, false
}

// FindParameterByName returns the parameter called name.
func (s *Snippet) FindParameterByName(name string) (*Parameter, bool) {
	for _, p := range s.parameters {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

// Pipeline is a directed connection from an output connector to an input
// connector on another snippet.
type Pipeline struct {
	id   PipelineID
	edge topology.EdgeIndex
	from ConnectorID
	to   ConnectorID
}

func (p Pipeline) ID() PipelineID    { return p.id }
func (p Pipeline) From() ConnectorID { return p.from }
func (p Pipeline) To() ConnectorID   { return p.to }

// Other returns the endpoint of p that is not c.
func (p Pipeline) Other(c ConnectorID) ConnectorID {
	if p.from == c {
		return p.to
	}
	return p.from
}
