package catalog

type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Colour      string  `json:"colour"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

// CreateProduct and UpdateProduct are explicit, caller-decided requests.
// Which of the two applies is never inferred from parsing an id field.
type CreateProduct struct {
	Name        string
	Description string
	Image       string
	Colour      string
	Price       float64
	Stock       int
}

type UpdateProduct struct {
	ID          int64
	Name        string
	Description string
	Image       string // empty keeps the stored image
	Colour      string
	Price       float64
	Stock       int
}
