package models

// Location is a saved position in the game world.
type Location struct {
	// Level is the world (save) name.
	Level string `json:"level"`

	// Dimension is the dimension inside the level (e.g., "overworld").
	Dimension string `json:"dimension"`

	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`

	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// SameDimension reports whether both locations are in the same level and
// dimension, which is when a distance between them is meaningful.
func (l Location) SameDimension(other Location) bool {
	return l.Level == other.Level && l.Dimension == other.Dimension
}
