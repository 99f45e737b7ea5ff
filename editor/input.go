package editor

import (
	"errors"

	"richedit/buffer"

	"github.com/gdamore/tcell/v2"
)

// HandleKey applies an editing key and reports whether it was consumed.
// The autocomplete popup sees every key first.
func (e *Editor) HandleKey(ev *tcell.EventKey) bool {
	if e.complete.HandleKey(ev) {
		return true
	}

	extend := ev.Modifiers()&tcell.ModShift != 0
	alt := ev.Modifiers()&tcell.ModAlt != 0
	var err error
	switch ev.Key() {
	case tcell.KeyCtrlZ:
		e.Undo()
	case tcell.KeyCtrlY:
		e.Redo()
	case tcell.KeyCtrlSpace:
		e.ShowAutocomplete()
	case tcell.KeyCtrlB:
		e.ToggleBookmark()
	case tcell.KeyF2:
		if extend {
			e.PrevBookmark()
		} else {
			e.NextBookmark()
		}
	case tcell.KeyF4:
		e.ToggleFold()
	case tcell.KeyCtrlS:
		err = e.Save()
	case tcell.KeyLeft:
		if alt {
			e.NavigateBackward()
			break
		}
		e.MoveCaret(ev.Key(), extend)
	case tcell.KeyRight:
		if alt {
			e.NavigateForward()
			break
		}
		e.MoveCaret(ev.Key(), extend)
	case tcell.KeyUp, tcell.KeyDown, tcell.KeyHome, tcell.KeyEnd:
		e.MoveCaret(ev.Key(), extend)
	case tcell.KeyEnter:
		err = e.NewLine()
	case tcell.KeyTab:
		err = e.Indent()
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		err = e.Backspace()
	case tcell.KeyDelete:
		err = e.Delete()
	case tcell.KeyRune:
		if alt {
			return false
		}
		err = e.TypeRune(ev.Rune())
	default:
		return false
	}
	switch {
	case err == nil:
	case errors.Is(err, buffer.ErrReadOnly):
		log.Debugf("%s", err.Error())
	default:
		log.Warningf("%s", err.Error())
	}
	return true
}
