package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"richedit/buffer"
	"richedit/config"
	"richedit/editor"
	"richedit/textpos"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// pager shows a file too large to load as a read-only, lazily loaded
// view. Only the lines on screen stay in memory.
type pager struct {
	src  *buffer.LazySource
	path string
	top  int
}

func (p *pager) scroll(delta, h int) {
	p.top = max(min(p.top+delta, p.src.LineCount()-h), 0)
}

func (p *pager) draw(screen tcell.Screen, tabSize int) {
	w, h := screen.Size()
	if h < 2 {
		return
	}
	rows := h - 1
	screen.Clear()
	n := p.src.LineCount()
	gw := len(strconv.Itoa(n)) + 1
	gutter := tcell.StyleDefault.Foreground(tcell.ColorGray)
	last := p.top
	for row := 0; row < rows && p.top+row < n; row++ {
		ln := p.top + row
		last = ln
		num := strconv.Itoa(ln + 1)
		for i, r := range num {
			screen.SetContent(gw-1-len(num)+i, row, r, nil, gutter)
		}
		text, err := p.src.LineText(ln)
		if err != nil {
			continue
		}
		x := gw + 1
		for _, r := range text {
			if r == '\t' {
				x += tabSize - (x-gw-1)%tabSize
				continue
			}
			if x >= w {
				break
			}
			screen.SetContent(x, row, r, nil, tcell.StyleDefault)
			x += max(runewidth.RuneWidth(r), 1)
		}
	}
	p.src.SetVisible(textpos.LineSpan{First: p.top, Last: last})

	bar := tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
	info := fmt.Sprintf(" %s [RO] │ Ln %d of %d │ %d loaded", p.path, p.top+1, n, p.src.Loaded())
	if p.src.ExternallyModified() {
		info += " │ changed on disk"
	}
	for x := 0; x < w; x++ {
		screen.SetContent(x, h-1, ' ', nil, bar)
	}
	x := 0
	for _, r := range info {
		if x >= w {
			break
		}
		screen.SetContent(x, h-1, r, nil, bar)
		x += max(runewidth.RuneWidth(r), 1)
	}
	screen.Show()
}

func runPager(cfg *config.Config, path string) error {
	src, err := buffer.OpenLazy(path)
	if err != nil {
		return err
	}
	defer src.Close()
	log.Infof("opened %s lazily (%d lines)", path, src.LineCount())

	loop := editor.NewLoop()
	src.Post = loop.Post
	src.IdleTTL = cfg.LazyIdleTTL.D()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src.StartEviction(ctx, cfg.LazyEvictInterval.D())
	if err := src.Watch(); err != nil {
		log.Warningf("watch %s: %s", path, err.Error())
	}

	screen, err := newScreen()
	if err != nil {
		return err
	}
	defer screen.Fini()

	p := &pager{src: src, path: path}
	tabSize := cfg.LanguageTabSize("")
	draw := func() { p.draw(screen, tabSize) }
	loop.Idle = draw
	src.OnChanged(func(buffer.ChangeEvent) {
		p.scroll(0, 1)
	})

	pollEvents(screen, loop, func(ev tcell.Event) {
		_, h := screen.Size()
		rows := max(h-1, 1)
		switch ev := ev.(type) {
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventMouse:
			switch {
			case ev.Buttons()&tcell.WheelUp != 0:
				p.scroll(-3, rows)
			case ev.Buttons()&tcell.WheelDown != 0:
				p.scroll(3, rows)
			}
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyCtrlQ, tcell.KeyEscape:
				cancel()
			case tcell.KeyUp:
				p.scroll(-1, rows)
			case tcell.KeyDown:
				p.scroll(1, rows)
			case tcell.KeyPgUp:
				p.scroll(-rows, rows)
			case tcell.KeyPgDn:
				p.scroll(rows, rows)
			case tcell.KeyHome:
				p.top = 0
			case tcell.KeyEnd:
				p.scroll(src.LineCount(), rows)
			}
		}
	})

	draw()
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
