package category

import "context"

// Repository lists the categories products are filed under.
type Repository interface {
	List(ctx context.Context) ([]string, error)
}
