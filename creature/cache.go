package creature

// cached is a lazily computed value with an explicit validity flag.
type cached[T any] struct {
	value T
	valid bool
}

func (c *cached[T]) get(compute func() (T, error)) (T, error) {
	if c.valid {
		return c.value, nil
	}
	v, err := compute()
	if err != nil {
		var zero T
		return zero, err
	}
	c.value, c.valid = v, true
	return v, nil
}

func (c *cached[T]) reset() {
	var zero T
	c.value, c.valid = zero, false
}
