package model

// Product is one catalog entry. The catalog is a fixed list seeded at
// startup; Position preserves the display order of the form.
type Product struct {
	Code     string `json:"itemCode" db:"code"`
	Name     string `json:"itemName" db:"name"`
	Position int    `json:"-" db:"position"`
}
