package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrCommandExists  = errors.New("command already registered")
	ErrHandlerNil     = errors.New("handler is nil")
	ErrInvalidBinding = errors.New("invalid command binding")
)

// Registry stores handlers by command name. It is populated once at server
// construction and read-only afterwards, so lookups take no lock.
type Registry struct {
	items map[string]Binding
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Binding)}
}

// ValidateBinding checks required binding fields and name format.
func ValidateBinding(b Binding) error {
	name := strings.TrimSpace(b.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidBinding)
	}
	if !isValidName(name) {
		return fmt.Errorf("%w: invalid name format %q", ErrInvalidBinding, name)
	}
	return nil
}

// Register adds one binding to the registry.
func (r *Registry) Register(b Binding) error {
	if b.Handler == nil {
		return ErrHandlerNil
	}
	if err := ValidateBinding(b); err != nil {
		return err
	}
	b.Name = strings.TrimSpace(b.Name)
	if _, ok := r.items[b.Name]; ok {
		return fmt.Errorf("%w: %s", ErrCommandExists, b.Name)
	}
	r.items[b.Name] = b
	return nil
}

// RegisterProvider adds every binding a provider contributes.
func (r *Registry) RegisterProvider(p Provider) error {
	if p == nil {
		return ErrHandlerNil
	}
	for _, b := range p.Bindings() {
		if err := r.Register(b); err != nil {
			return fmt.Errorf("provider %s: %w", p.Metadata().ID, err)
		}
	}
	return nil
}

// Resolve returns the handler bound to a command name.
func (r *Registry) Resolve(name string) (Handler, bool) {
	b, ok := r.items[name]
	if !ok {
		return nil, false
	}
	return b.Handler, true
}

// List returns deterministic binding ordering by name.
func (r *Registry) List() []Binding {
	list := make([]Binding, 0, len(r.items))
	for _, b := range r.items {
		list = append(list, b)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}

// Len reports the number of registered commands.
func (r *Registry) Len() int {
	return len(r.items)
}

func isValidName(name string) bool {
	lastSep := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		isLower := c >= 'a' && c <= 'z'
		isDigit := c >= '0' && c <= '9'
		isSep := c == '_' || c == '.' || c == '-'
		if !(isLower || isDigit || isSep) {
			return false
		}
		if (i == 0 || i == len(name)-1) && isSep {
			return false
		}
		if isSep && lastSep {
			return false
		}
		lastSep = isSep
	}
	return true
}
