package snippets

// Port is one declared input or output of a snippet definition.
type Port struct {
	ID          PortID
	Name        string
	ContentType ContentType
}

// ParameterSpec is one declared parameter of a snippet definition.
type ParameterSpec struct {
	Name string
	Kind ParameterKind
}

// Definition is a snapshot of an externally discovered snippet definition.
// The engine trusts it to be well formed; producing it is the job of the
// definition source.
type Definition struct {
	ID         DefinitionID
	Name       string
	Path       string
	Outputs    []Port
	Inputs     []Port
	Parameters []ParameterSpec
}

// PortCount is the number of connectors a snippet built from d carries.
func (d Definition) PortCount() int {
	return len(d.Outputs) + len(d.Inputs)
}
