package commands

// Handler executes one named operation against its payload mapping and
// returns a result mapping. A returned error is the handler fault surfaced
// to the peer verbatim; it never terminates the session.
type Handler func(payload map[string]any) (map[string]any, error)

// Binding pairs a command name with its handler and display metadata.
type Binding struct {
	Name        string
	Description string
	Handler     Handler
}

// Provider contributes a related group of command bindings to a registry.
type Provider interface {
	Metadata() ProviderMetadata
	Bindings() []Binding
}

// ProviderMetadata is the contract for provider identity and display data.
type ProviderMetadata struct {
	ID          string
	Name        string
	Description string
}
