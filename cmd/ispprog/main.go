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
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/urfave/cli.v2"

	"ispengine/pkg/config"
	"ispengine/pkg/display"
	"ispengine/pkg/engine"
	"ispengine/pkg/ispierr"
	"ispengine/pkg/part"
	"ispengine/pkg/programmer"
	"ispengine/pkg/progress"
	"ispengine/pkg/session"
	tmock "ispengine/pkg/transport/mock"
)

func main() {
	app := &cli.App{
		Name:    "ispprog",
		Usage:   "Device-independent in-system programming engine",
		Version: "v0.0.1",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML part/programmer catalog"},
			&cli.StringFlag{Name: "programmer", Aliases: []string{"P"}, Usage: "programmer type from the catalog"},
			&cli.StringFlag{Name: "part", Aliases: []string{"p"}, Usage: "part ID from the catalog"},
			&cli.StringFlag{Name: "port", Usage: "transport-specific port/address", Value: ""},
		},
		Commands: []*cli.Command{
			readCmd,
			writeCmd,
			verifyCmd,
			eraseCmd,
			signatureCmd,
			dumpCmd,
		},
	}

	sort.Sort(cli.FlagsByName(app.Flags))
	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

var readCmd = &cli.Command{
	Name:  "read",
	Usage: "read a memory region into a file",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "memory"},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}},
		&cli.IntFlag{Name: "size", Usage: "0 reads the whole memory"},
	},
	Action: func(c *cli.Context) error {
		if c.String("memory") == "" || c.String("output") == "" {
			return cli.Exit("read requires --memory and --output", 64)
		}
		sess, p, err := openSession(c)
		if err != nil {
			return exitFor(err)
		}
		defer sess.Close()

		memName := c.String("memory")
		n, err := sess.Eng.ReadRegion(context.Background(), memName, c.Int("size"), progressBar(memName))
		if err != nil {
			return exitFor(err)
		}
		m := part.LocateMemory(p, memName)
		if err := os.WriteFile(c.String("output"), m.Buf[:n], 0644); err != nil {
			return cli.Exit(err.Error(), 1)
		}
		fmt.Fprintf(os.Stderr, "\nread %d bytes from %s\n", n, memName)
		return nil
	},
}

var writeCmd = &cli.Command{
	Name:  "write",
	Usage: "write a file into a memory region",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "memory"},
		&cli.StringFlag{Name: "input", Aliases: []string{"i"}},
	},
	Action: func(c *cli.Context) error {
		if c.String("memory") == "" || c.String("input") == "" {
			return cli.Exit("write requires --memory and --input", 64)
		}
		sess, p, err := openSession(c)
		if err != nil {
			return exitFor(err)
		}
		defer sess.Close()

		memName := c.String("memory")
		m := part.LocateMemory(p, memName)
		if m == nil {
			return exitFor(&ispierr.UnknownMemory{Name: memName})
		}
		data, err := os.ReadFile(c.String("input"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		n := len(data)
		if n > m.Size {
			n = m.Size
		}
		copy(m.Buf, data[:n])

		written, err := sess.Eng.WriteRegion(context.Background(), memName, n, progressBar(memName))
		if err != nil {
			return exitFor(err)
		}
		fmt.Fprintf(os.Stderr, "\nwrote %d bytes to %s\n", written, memName)
		return nil
	},
}

var verifyCmd = &cli.Command{
	Name:  "verify",
	Usage: "verify a memory region against a file",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "memory"},
		&cli.StringFlag{Name: "input", Aliases: []string{"i"}},
	},
	Action: func(c *cli.Context) error {
		if c.String("memory") == "" || c.String("input") == "" {
			return cli.Exit("verify requires --memory and --input", 64)
		}
		sess, p, err := openSession(c)
		if err != nil {
			return exitFor(err)
		}
		defer sess.Close()

		memName := c.String("memory")
		data, err := os.ReadFile(c.String("input"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		reference := part.Duplicate(p)
		refMem := part.LocateMemory(reference, memName)
		if refMem == nil {
			return exitFor(&ispierr.UnknownMemory{Name: memName})
		}
		n := len(data)
		if n > refMem.Size {
			n = refMem.Size
		}
		copy(refMem.Buf, data[:n])

		if _, err := sess.Eng.ReadRegion(context.Background(), memName, n, progressBar(memName)); err != nil {
			return exitFor(err)
		}
		matched, err := engine.VerifyRegion(reference, sess.Eng.Part, memName, n)
		if err != nil {
			return exitFor(err)
		}
		fmt.Fprintf(os.Stderr, "\n%s verified OK (%d bytes)\n", memName, matched)
		return nil
	},
}

var eraseCmd = &cli.Command{
	Name:  "erase",
	Usage: "chip-erase the part",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "track-cycles", Usage: "maintain the EEPROM erase-cycle counter"},
	},
	Action: func(c *cli.Context) error {
		sess, _, err := openSession(c)
		if err != nil {
			return exitFor(err)
		}
		defer sess.Close()

		sess.TrackCycles = c.Bool("track-cycles")
		if err := sess.ChipErase(context.Background()); err != nil {
			return exitFor(err)
		}
		fmt.Fprintln(os.Stderr, "chip erase complete")
		return nil
	},
}

var signatureCmd = &cli.Command{
	Name:  "signature",
	Usage: "read the device signature bytes",
	Action: func(c *cli.Context) error {
		sess, _, err := openSession(c)
		if err != nil {
			return exitFor(err)
		}
		defer sess.Close()

		sig, err := sess.Signature(context.Background())
		if err != nil {
			return exitFor(err)
		}
		fmt.Println(hex.EncodeToString(sig))
		return nil
	},
}

var dumpCmd = &cli.Command{
	Name:  "dump",
	Usage: "print a human-readable description of the part",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "include per-memory opcode tables"},
	},
	Action: func(c *cli.Context) error {
		cat, err := loadCatalog(c)
		if err != nil {
			return exitFor(err)
		}
		p := cat.FindPart(c.String("part"))
		if p == nil {
			return cli.Exit("unknown part "+c.String("part"), 1)
		}

		fmt.Print(display.RenderPart(display.Describe(p)))
		if c.Bool("verbose") {
			for _, m := range p.Memories {
				fmt.Print(display.RenderMemTable(m))
			}
		}
		return nil
	},
}

func loadCatalog(c *cli.Context) (*config.Catalog, error) {
	f, err := os.Open(c.String("config"))
	if err != nil {
		return nil, &ispierr.InvalidConfig{Detail: err.Error()}
	}
	defer f.Close()
	return config.Load(f)
}

// newTransport builds the programmer.Capability named by desc. Only the
// in-memory mock transport ships in this binary; wiring a real bit-bang
// transport means constructing pkg/transport/bitbang.Programmer against
// concrete GPIO pins resolved by a host driver package (periph.io/x/host
// or a board-specific equivalent), which is left to a calling program
// since no such driver is part of this module's dependency set.
func newTransport(desc *config.Programmer) (programmer.Capability, error) {
	if desc.Type == "mock" {
		return tmock.NewEchoing(), nil
	}
	return nil, fmt.Errorf("no built-in transport for programmer type %q; link a real driver and extend newTransport", desc.Type)
}

func openSession(c *cli.Context) (*session.Session, *part.Part, error) {
	cat, err := loadCatalog(c)
	if err != nil {
		return nil, nil, err
	}
	p := cat.FindPart(c.String("part"))
	if p == nil {
		return nil, nil, &ispierr.InvalidConfig{Detail: "unknown part " + c.String("part")}
	}
	desc := cat.FindProgrammer(c.String("programmer"))
	if desc == nil {
		return nil, nil, &ispierr.InvalidConfig{Detail: "unknown programmer " + c.String("programmer")}
	}
	prog, err := newTransport(desc)
	if err != nil {
		return nil, nil, err
	}

	sess, err := session.Open(context.Background(), prog, c.String("port"), p)
	if err != nil {
		return nil, nil, err
	}
	return sess, p, nil
}

// progressBar renders region I/O progress as a single updating line on
// stderr (spec.md §6).
func progressBar(label string) progress.Func {
	return func(current, total int, l string) {
		fmt.Fprintf(os.Stderr, "\r%s: %d/%d", l, current, total)
	}
}

func exitFor(err error) cli.ExitCoder {
	var unknownMem *ispierr.UnknownMemory
	var verifyMismatch *ispierr.VerifyMismatch
	var writeFailed *ispierr.WriteFailed
	var notResponding *ispierr.NotResponding
	var invalidConfig *ispierr.InvalidConfig
	var transportTimeout *ispierr.TransportTimeout

	switch {
	case errors.As(err, &unknownMem):
		return cli.Exit(err.Error(), 2)
	case errors.As(err, &verifyMismatch):
		return cli.Exit(err.Error(), 3)
	case errors.As(err, &writeFailed):
		return cli.Exit(err.Error(), 4)
	case errors.As(err, &notResponding):
		return cli.Exit(err.Error(), 5)
	case errors.As(err, &invalidConfig):
		return cli.Exit(err.Error(), 6)
	case errors.As(err, &transportTimeout):
		return cli.Exit(err.Error(), 7)
	default:
		return cli.Exit(err.Error(), 1)
	}
}
