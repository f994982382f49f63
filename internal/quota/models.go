// Package quota models competition tracks and the directed graph of allowed
// transitions between them, used to re-route seats freed by rejections.
package quota

// Track is a competition category applications compete under.
type Track struct {
	Code string
	Name string
}

// Transition is one directed edge between track codes.
type Transition struct {
	From string
	To   string
}
