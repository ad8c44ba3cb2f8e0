package di

// Token is a typed service key.
type Token[T any] struct {
	name string
}

// NewToken creates a typed key. Public tokens use "ctx.Name", private ones "ctx:name".
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the registry key.
func (t Token[T]) Name() string {
	return t.name
}

// RegisterToken registers a lazily built, typed service.
func RegisterToken[T any](c Container, tok Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(tok.name, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves a typed service.
func GetToken[T any](c ServiceRegistry, tok Token[T]) T {
	return c.Get(tok.name).(T)
}
