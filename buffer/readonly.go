package buffer

import (
	"fmt"

	"richedit/textpos"
)

// SetReadOnly marks or unmarks every character of r as read-only.
func (d *Document) SetReadOnly(r textpos.Range, on bool) error {
	r, err := d.CheckRange(r)
	if err != nil {
		return err
	}
	d.eachChar(r, func(c *Char) { c.ReadOnly = on })
	return nil
}

// IsReadOnly reports whether the character at p is read-only.
func (d *Document) IsReadOnly(p textpos.Place) bool {
	if p.Line < 0 || p.Line >= len(d.lines) {
		return false
	}
	c, ok := d.lines[p.Line].Char(p.Col)
	return ok && c.ReadOnly
}

// insertBlocked reports whether p sits strictly inside a read-only run.
func (d *Document) insertBlocked(p textpos.Place) bool {
	return d.IsReadOnly(p) && d.IsReadOnly(textpos.Place{Line: p.Line, Col: p.Col - 1})
}

func (d *Document) removeBlocked(r textpos.Range) bool {
	blocked := false
	d.eachChar(r, func(c *Char) {
		if c.ReadOnly {
			blocked = true
		}
	})
	return blocked
}

func (d *Document) readOnlyViolation(r textpos.Range) error {
	log.Debugf("rejected edit of read-only range %v", r)
	for _, fn := range d.roListeners {
		fn(r)
	}
	return fmt.Errorf("edit at %v: %w", r, ErrReadOnly)
}
