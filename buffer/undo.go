package buffer

import (
	"time"

	"richedit/style"
	"richedit/textpos"
)

type OpType int

const (
	OpInsert OpType = iota
	OpDelete
	OpStyle
)

// Operation is one primitive edit. Content holds the inserted or removed
// characters with their styles so that undoing a delete restores styling.
type Operation struct {
	Type    OpType
	Pos     textpos.Place
	Content [][]Char

	// OpStyle only: the style sets of Range before and after the change.
	Range        textpos.Range
	StylesBefore [][]style.Set
	StylesAfter  [][]style.Set

	Time time.Time // when the operation was recorded
}

// Transaction is one user-visible undo step.
type Transaction struct {
	Ops []Operation
}

// UndoGroupInterval is the default quiet interval after which typing
// starts a new transaction.
const UndoGroupInterval = 300 * time.Millisecond

// UndoLog records transactions of inverse-able operations.
type UndoLog struct {
	// Quiet is the quiescence timeout that closes an implicit transaction.
	Quiet time.Duration

	// Off disables recording, e.g. for generated buffers.
	Off bool

	undos []*Transaction
	redos []*Transaction
	open  *Transaction
	depth int

	now func() time.Time
}

func NewUndoLog() *UndoLog {
	return &UndoLog{Quiet: UndoGroupInterval, now: time.Now}
}

// Record appends op to the open transaction, opening one if needed. Any
// new record discards the redo stack.
func (u *UndoLog) Record(op Operation) {
	if u.Off {
		return
	}
	op.Time = u.now()
	u.redos = nil

	if u.depth > 0 {
		u.open.Ops = append(u.open.Ops, op)
		return
	}
	if u.open != nil && len(u.open.Ops) > 0 {
		prev := &u.open.Ops[len(u.open.Ops)-1]
		if op.Time.Sub(prev.Time) < u.Quiet && coalesces(prev, &op) {
			u.open.Ops = append(u.open.Ops, op)
			return
		}
	}
	u.close()
	u.open = &Transaction{Ops: []Operation{op}}
}

// BeginAutoUndo opens a group; everything recorded until the matching
// EndAutoUndo undoes as one step. Groups nest.
func (u *UndoLog) BeginAutoUndo() {
	if u.depth == 0 {
		u.close()
		u.open = &Transaction{}
	}
	u.depth++
}

func (u *UndoLog) EndAutoUndo() {
	if u.depth == 0 {
		return
	}
	u.depth--
	if u.depth == 0 {
		u.close()
	}
}

// InAutoUndo reports whether a group is open.
func (u *UndoLog) InAutoUndo() bool { return u.depth > 0 }

func (u *UndoLog) CanUndo() bool {
	return len(u.undos) > 0 || (u.open != nil && len(u.open.Ops) > 0)
}

func (u *UndoLog) CanRedo() bool { return len(u.redos) > 0 }

// Reset drops all history.
func (u *UndoLog) Reset() {
	u.undos, u.redos, u.open, u.depth = nil, nil, nil, 0
}

func (u *UndoLog) close() {
	if u.open != nil && len(u.open.Ops) > 0 {
		u.undos = append(u.undos, u.open)
	}
	u.open = nil
}

func (u *UndoLog) popUndo() *Transaction {
	if u.depth > 0 {
		log.Warningf("undo inside an open auto-undo group; closing it")
		u.depth = 0
	}
	u.close()
	if len(u.undos) == 0 {
		return nil
	}
	tx := u.undos[len(u.undos)-1]
	u.undos = u.undos[:len(u.undos)-1]
	u.redos = append(u.redos, tx)
	return tx
}

func (u *UndoLog) popRedo() *Transaction {
	u.depth = 0
	u.close()
	if len(u.redos) == 0 {
		return nil
	}
	tx := u.redos[len(u.redos)-1]
	u.redos = u.redos[:len(u.redos)-1]
	u.undos = append(u.undos, tx)
	return tx
}

// coalesces reports whether cur continues the typing run ending in prev:
// single characters, same kind, adjacent, no whitespace boundary.
func coalesces(prev, cur *Operation) bool {
	if prev.Type != cur.Type || cur.Type == OpStyle {
		return false
	}
	pc, ok1 := singleRune(prev)
	cc, ok2 := singleRune(cur)
	if !ok1 || !ok2 {
		return false
	}
	if isBreak(pc) || isBreak(cc) {
		return false
	}
	if cur.Pos.Line != prev.Pos.Line {
		return false
	}
	switch cur.Type {
	case OpInsert:
		return cur.Pos.Col == prev.Pos.Col+1
	default:
		// backspace walks left, forward delete stays put
		return cur.Pos.Col == prev.Pos.Col-1 || cur.Pos.Col == prev.Pos.Col
	}
}

func singleRune(op *Operation) (rune, bool) {
	if len(op.Content) != 1 || len(op.Content[0]) != 1 {
		return 0, false
	}
	return op.Content[0][0].R, true
}

func isBreak(r rune) bool {
	return r == ' ' || r == '\t'
}

// Undo reverts the most recent transaction and returns the place a caret
// should move to. It is a no-op when there is nothing to undo.
func (d *Document) Undo() (textpos.Place, bool) {
	tx := d.undo.popUndo()
	if tx == nil {
		return textpos.Place{}, false
	}
	d.replaying = true
	defer func() { d.replaying = false }()

	var caret textpos.Place
	for i := len(tx.Ops) - 1; i >= 0; i-- {
		caret = d.applyInverse(tx.Ops[i])
	}
	return caret, true
}

// Redo re-applies the most recently undone transaction.
func (d *Document) Redo() (textpos.Place, bool) {
	tx := d.undo.popRedo()
	if tx == nil {
		return textpos.Place{}, false
	}
	d.replaying = true
	defer func() { d.replaying = false }()

	var caret textpos.Place
	for _, op := range tx.Ops {
		caret = d.applyForward(op)
	}
	return caret, true
}

func (d *Document) BeginAutoUndo() { d.undo.BeginAutoUndo() }

func (d *Document) EndAutoUndo() { d.undo.EndAutoUndo() }

func (d *Document) applyInverse(op Operation) textpos.Place {
	switch op.Type {
	case OpInsert:
		d.replayRemove(textpos.Range{Start: op.Pos, End: endOf(op.Pos, op.Content)})
		return op.Pos
	case OpDelete:
		return d.replayInsert(op.Pos, op.Content).End
	case OpStyle:
		d.restoreStyles(op.Range, op.StylesBefore)
		return op.Range.Start
	}
	return op.Pos
}

func (d *Document) applyForward(op Operation) textpos.Place {
	switch op.Type {
	case OpInsert:
		return d.replayInsert(op.Pos, op.Content).End
	case OpDelete:
		d.replayRemove(textpos.Range{Start: op.Pos, End: endOf(op.Pos, op.Content)})
		return op.Pos
	case OpStyle:
		d.restoreStyles(op.Range, op.StylesAfter)
		return op.Range.End
	}
	return op.Pos
}

func (d *Document) replayInsert(p textpos.Place, segs [][]Char) textpos.Range {
	if err := d.CheckPlace(p); err != nil {
		log.Errorf("undo replay: %s", err.Error())
		return textpos.Range{Start: p, End: p}
	}
	r := d.insertChars(p, cloneSegs(segs))
	d.emit(ChangeEvent{Range: r, Lines: r.Lines(), LinesDelta: r.End.Line - r.Start.Line})
	return r
}

func (d *Document) replayRemove(r textpos.Range) {
	r, err := d.CheckRange(r)
	if err != nil {
		log.Errorf("undo replay: %s", err.Error())
		return
	}
	d.removeChars(r)
	d.emit(ChangeEvent{
		Range:      textpos.Range{Start: r.Start, End: r.Start},
		Lines:      textpos.LineSpan{First: r.Start.Line, Last: r.Start.Line},
		LinesDelta: r.Start.Line - r.End.Line,
		Removed:    true,
	})
}
