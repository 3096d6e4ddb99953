package event

// DirectionalInput - четыре направления движения.
type DirectionalInput struct {
	Forwards  bool
	Backwards bool
	Left      bool
	Right     bool
}

var (
	DirNone          = DirectionalInput{}
	DirForwards      = DirectionalInput{Forwards: true}
	DirBackwards     = DirectionalInput{Backwards: true}
	DirLeft          = DirectionalInput{Left: true}
	DirRight         = DirectionalInput{Right: true}
	DirForwardsLeft  = DirectionalInput{Forwards: true, Left: true}
	DirForwardsRight = DirectionalInput{Forwards: true, Right: true}
)

// IsMoving - нажато хотя бы одно направление.
func (d DirectionalInput) IsMoving() bool {
	return d.Forwards || d.Backwards || d.Left || d.Right
}

// IsMovingForwards - вперёд без противоположного назад.
func (d DirectionalInput) IsMovingForwards() bool {
	return d.Forwards && !d.Backwards
}

// IsStrafing - только боковое движение.
func (d DirectionalInput) IsStrafing() bool {
	return (d.Left != d.Right) && !d.Forwards && !d.Backwards
}
