package cart

import "sync"

// Line is one product entry in a cart. The line total is always derived
// from quantity and unit price, never stored.
type Line struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// Total returns quantity x unit price.
func (l Line) Total() float64 {
	return float64(l.Quantity) * l.UnitPrice
}

// Cart is an ordered collection of lines, unique by product name. The Store
// hands out one shared cart per session, so parallel requests carrying the
// same session token mutate the same cart; a cart-level mutex keeps each
// operation atomic.
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// Add merges quantity into an existing line with the same name, keeping
// that line's original unit price, or appends a new line.
func (c *Cart) Add(name string, quantity int, unitPrice float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Name == name {
			c.lines[i].Quantity += quantity
			return
		}
	}
	c.lines = append(c.lines, Line{Name: name, Quantity: quantity, UnitPrice: unitPrice})
}

// SetQuantity overwrites the quantity of the named line unconditionally.
// Checking the new quantity against catalog stock is the caller's job.
func (c *Cart) SetQuantity(name string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Name == name {
			c.lines[i].Quantity = quantity
			return
		}
	}
}

// IncreaseQuantity adds amount to the named line's quantity.
func (c *Cart) IncreaseQuantity(name string, amount int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Name == name {
			c.lines[i].Quantity += amount
			return
		}
	}
}

// DecreaseQuantity subtracts amount from the named line's quantity.
func (c *Cart) DecreaseQuantity(name string, amount int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Name == name {
			c.lines[i].Quantity -= amount
			return
		}
	}
}

// Remove deletes the named line; no-op when absent.
func (c *Cart) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Name == name {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// TotalPrice sums every line total; 0 for an empty cart.
func (c *Cart) TotalPrice() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0.0
	for _, l := range c.lines {
		total += l.Total()
	}
	return total
}

// LineCount returns the number of distinct lines, not total units.
func (c *Cart) LineCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// Lines returns a copy of the cart contents in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}
