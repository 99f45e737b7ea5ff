package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"richedit/config"
	"richedit/editor"
	"richedit/ui"

	"github.com/gdamore/tcell/v2"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

const (
	backupInterval = 30 * time.Second
	messageTTL     = 3 * time.Second
)

var log = commonlog.GetLogger("richedit")

func main() {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v, using defaults\n", err)
		cfg = config.Default()
	}
	// the terminal belongs to the screen; without a log file stay quiet
	if cfg.LogFile != "" {
		commonlog.Configure(cfg.LogVerbosity, &cfg.LogFile)
	} else {
		commonlog.Configure(0, nil)
	}

	args := os.Args[1:]
	if len(args) > 1 {
		fmt.Fprintln(os.Stderr, "usage: richedit [file]")
		os.Exit(2)
	}
	path := ""
	if len(args) == 1 {
		path = args[0]
	}

	if err := run(cfg, path); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, path string) error {
	if path != "" {
		info, err := os.Stat(path)
		switch {
		case err != nil:
			return err
		case info.IsDir():
			return fmt.Errorf("%s is a directory", path)
		case cfg.LazyThreshold > 0 && info.Size() > cfg.LazyThreshold:
			return runPager(cfg, path)
		}
	}
	return runEditor(cfg, path)
}

func newScreen() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.EnableMouse()
	screen.EnablePaste()
	screen.SetStyle(tcell.StyleDefault)
	screen.Clear()
	return screen, nil
}

// pollEvents hands every screen event to the loop until the screen is
// finalized.
func pollEvents(screen tcell.Screen, loop *editor.Loop, handle func(tcell.Event)) {
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			loop.Post(func() { handle(ev) })
		}
	}()
}

func runEditor(cfg *config.Config, path string) error {
	loop := editor.NewLoop()
	ed, err := editor.New(cfg, loop)
	if err != nil {
		return err
	}
	defer ed.Close()

	status := ui.NewStatusBar()
	var messageAt time.Time
	message := func(format string, args ...any) {
		status.Message = fmt.Sprintf(format, args...)
		messageAt = time.Now()
	}

	if path != "" {
		if err := ed.Open(path); err != nil {
			return err
		}
		ed.RestoreSession()
		if info, ok := ed.FindBackup(); ok {
			message("unsaved changes from %s found, Ctrl+R recovers them", info.Timestamp.Format(time.Stamp))
		}
		if err := ed.Watch(); err != nil {
			log.Warningf("watch %s: %s", path, err.Error())
		}
	}
	ed.OnExternalChange = func(p string, reloaded bool) {
		switch {
		case reloaded:
			message("reloaded %s", p)
		case ed.Removed():
			message("%s was deleted on disk", p)
		default:
			message("%s changed on disk, save to overwrite", p)
		}
	}
	ed.OnError = func(rule string, err error) {
		message("highlight rule %s: %v", rule, err)
	}

	screen, err := newScreen()
	if err != nil {
		return err
	}
	defer screen.Fini()

	view := editor.NewView(ed)
	view.Top = ed.ScrollTop()
	popup := ui.NewCompletionPopup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ed.StartBackups(ctx, backupInterval)

	draw := func() {
		w, h := screen.Size()
		if h < 2 {
			return
		}
		if status.Message != "" && time.Since(messageAt) > messageTTL {
			status.Message = ""
		}
		view.ScrollToCaret(h - 1)
		view.Draw(screen, 0, 0, w, h-1)
		status.Update(ed)
		status.Render(screen, 0, h-1, w)
		if cx, cy, ok := view.CaretCell(0, 0); ok {
			screen.ShowCursor(cx, cy)
			popup.Render(screen, ed.Autocomplete(), cx, cy, w, h-1)
		} else {
			screen.HideCursor()
		}
		screen.Show()
	}
	loop.Idle = draw

	pollEvents(screen, loop, func(ev tcell.Event) {
		switch ev := ev.(type) {
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventMouse:
			if ev.Buttons()&tcell.Button1 != 0 {
				x, y := ev.Position()
				if p, ok := view.PlaceAt(0, 0, x, y); ok {
					ed.SetCaret(p)
				}
			}
		case *tcell.EventPaste:
			if ev.Start() {
				ed.BeginAutoUndo()
			} else {
				ed.EndAutoUndo()
			}
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyCtrlQ:
				cancel()
				return
			case tcell.KeyCtrlR:
				if err := ed.RecoverBackup(); err != nil {
					message("recover: %v", err)
				}
				return
			case tcell.KeyCtrlS:
				if ed.Path() == "" {
					message("no file to save to")
					return
				}
			}
			ed.HandleKey(ev)
		}
	})

	draw()
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if ed.Path() != "" {
		if err := ed.SaveSession(); err != nil {
			log.Warningf("session: %s", err.Error())
		}
	}
	return nil
}
