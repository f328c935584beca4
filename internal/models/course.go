package models

// Course is a static catalog entry. The catalog is reference data seeded by
// migration; there is no mutation surface for it.
type Course struct {
	ID          string `db:"id" json:"courseId"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
}
