// Copyright © 2019 mg
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"ispengine/pkg/config"
	"ispengine/pkg/display"
	"ispengine/pkg/part"
	"ispengine/pkg/session"
	tmock "ispengine/pkg/transport/mock"
)

var (
	cat        *config.Catalog
	activePart *part.Part
	sess       *session.Session
	memIdx     int
	lastTick   string

	paragraphMemList *widgets.Paragraph
	paragraphOps     *widgets.Paragraph
	paragraphTick    *widgets.Paragraph
	paragraphTips    *widgets.Paragraph
)

func renderMemList(p *widgets.Paragraph) {
	sb := &strings.Builder{}
	for i, m := range activePart.Memories {
		marker := "  "
		if i == memIdx {
			marker = "> "
		}
		sb.WriteString(fmt.Sprintf("%s%s\n", marker, m.Name))
	}
	p.Text = sb.String()
}

func renderOps(p *widgets.Paragraph) {
	if len(activePart.Memories) == 0 {
		p.Text = "(no memories)"
		return
	}
	p.Text = display.RenderMemTable(activePart.Memories[memIdx])
}

func renderTick(p *widgets.Paragraph) {
	p.Text = lastTick
}

func renderTips(p *widgets.Paragraph) {
	p.Text = "UP/DOWN = select memory    S = signature    E = chip erase    Q = quit"
}

func draw() {
	renderMemList(paragraphMemList)
	renderOps(paragraphOps)
	renderTick(paragraphTick)
	renderTips(paragraphTips)
	ui.Render(paragraphMemList, paragraphOps, paragraphTick, paragraphTips)
}

func initLayout() {
	paragraphMemList = widgets.NewParagraph()
	paragraphMemList.Title = "Memories"
	paragraphMemList.SetRect(0, 0, 28, 18)

	paragraphOps = widgets.NewParagraph()
	paragraphOps.Title = "Opcode Table"
	paragraphOps.SetRect(28, 0, 28+62, 33)

	paragraphTick = widgets.NewParagraph()
	paragraphTick.Title = "Last Progress Tick"
	paragraphTick.SetRect(0, 18, 28, 33)

	paragraphTips = widgets.NewParagraph()
	paragraphTips.Title = "Tips"
	paragraphTips.SetRect(0, 33, 28+62, 36)
}

func openSession(configPath, partID, programmerType string) error {
	f, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	c, err := config.Load(f)
	if err != nil {
		return err
	}
	cat = c

	activePart = cat.FindPart(partID)
	if activePart == nil {
		return fmt.Errorf("unknown part %q", partID)
	}

	desc := cat.FindProgrammer(programmerType)
	if desc == nil {
		return fmt.Errorf("unknown programmer %q", programmerType)
	}

	var prog = tmock.NewEchoing()
	if desc.Type != "mock" {
		return fmt.Errorf("ispterm only drives the mock transport; got %q", desc.Type)
	}

	s, err := session.Open(context.Background(), prog, "", activePart)
	if err != nil {
		return err
	}
	sess = s
	return nil
}

func main() {
	configPath := flag.String("config", "", "YAML part/programmer catalog")
	partID := flag.String("part", "", "part ID from the catalog")
	programmerType := flag.String("programmer", "mock", "programmer type from the catalog")
	flag.Parse()

	if *configPath == "" || *partID == "" {
		fmt.Fprintln(os.Stderr, "usage: ispterm -config catalog.yaml -part PARTID [-programmer mock]")
		os.Exit(64)
	}

	if err := openSession(*configPath, *partID, *programmerType); err != nil {
		log.Fatalf("ispterm: %v", err)
	}
	defer sess.Close()

	if err := ui.Init(); err != nil {
		log.Fatalf("failed to initialize termui: %v", err)
	}
	defer ui.Close()

	initLayout()
	draw()

	for e := range ui.PollEvents() {
		if e.Type != ui.KeyboardEvent {
			continue
		}
		switch e.ID {
		case "q", "Q", "<C-c>":
			return
		case "<Down>":
			if memIdx < len(activePart.Memories)-1 {
				memIdx++
			}
		case "<Up>":
			if memIdx > 0 {
				memIdx--
			}
		case "s", "S":
			if sig, err := sess.Signature(context.Background()); err == nil {
				lastTick = fmt.Sprintf("signature: % x", sig)
			} else {
				lastTick = "signature: " + err.Error()
			}
		case "e", "E":
			if err := sess.ChipErase(context.Background()); err == nil {
				lastTick = "chip erase complete"
			} else {
				lastTick = "chip erase: " + err.Error()
			}
		}
		draw()
	}
}
