// Package dragdrop drives index-based block reordering from drag events,
// independently of any drag-and-drop widget.
package dragdrop

// Reorderer is the ordered collection being rearranged.
type Reorderer interface {
	Len() int
	Reorder(from, to int) bool
}

// Controller tracks one drag gesture. Reordering is eager: every hover over
// another position moves the dragged item immediately, and the tracked index
// follows it so later hovers compare against the live position.
type Controller struct {
	target    Reorderer
	dragIndex int
	active    bool
}

// New returns an idle controller over target.
func New(target Reorderer) *Controller {
	return &Controller{target: target, dragIndex: -1}
}

// Start captures the index of the item being dragged.
func (c *Controller) Start(index int) bool {
	if index < 0 || index >= c.target.Len() {
		return false
	}
	c.dragIndex = index
	c.active = true
	return true
}

// Over handles a drag-over of the item at hoverIndex and reports whether the
// collection changed.
func (c *Controller) Over(hoverIndex int) bool {
	if !c.active || hoverIndex == c.dragIndex {
		return false
	}
	if !c.target.Reorder(c.dragIndex, hoverIndex) {
		return false
	}
	c.dragIndex = hoverIndex
	return true
}

// End finishes the gesture. The collection is already in its final order.
func (c *Controller) End() {
	c.active = false
	c.dragIndex = -1
}

// Active reports whether a drag is in progress.
func (c *Controller) Active() bool { return c.active }

// Index returns the live position of the dragged item, or -1.
func (c *Controller) Index() int { return c.dragIndex }
