package main

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/tm2"
	"github.com/bodgit/tm2/export"
	"github.com/bodgit/tm2/tim2"
	"github.com/urfave/cli/v2"
)

const defaultDB = "tm2.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func decodeFile(file string) (*tim2.Image, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	m, err := tim2.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return m, nil
}

func info(w io.Writer, file string, m *tim2.Image) {
	fmt.Fprintf(w, "%s: TIM2 version %d, %s, %d frame(s)\n", file, m.Version(), m.Variant(), m.FrameCount())
	for i, f := range m.Frames() {
		fmt.Fprintf(w, "  frame[%d]: <%d %d> %d bpp %s %s, %d mipmap(s)", i, f.Width(), f.Height(), f.BitsPerPixel(), f.ImageColorType(), f.Format(), f.MipmapCount())
		if f.IsIndexed() {
			fmt.Fprintf(w, ", %d palette(s)", f.PaletteCount())
		}
		fmt.Fprintln(w)
	}
}

// parseColorKey parses a colour given as RRGGBB or RRGGBBAA hex digits. An
// empty string means no colour key.
func parseColorKey(s string) (*color.NRGBA, error) {
	if s == "" {
		return nil, nil
	}

	b, err := hex.DecodeString(strings.TrimPrefix(s, "#"))
	if err != nil || (len(b) != 3 && len(b) != 4) {
		return nil, fmt.Errorf("invalid color key %q, want RRGGBB or RRGGBBAA", s)
	}

	c := &color.NRGBA{R: b[0], G: b[1], B: b[2], A: 0xff}
	if len(b) == 4 {
		c.A = b[3]
	}

	return c, nil
}

func extract(logger *log.Logger, file, dir string, opts export.Options) ([]string, error) {
	m, err := decodeFile(file)
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	files, err := export.Image(dir, base, m, opts)
	for _, f := range files {
		logger.Printf("Wrote \"%s\"\n", f)
	}

	return files, err
}

func index(db string, logger *log.Logger, dir string) error {
	t, err := tm2.New(db, logger)
	if err != nil {
		return err
	}
	defer t.Close()

	return t.Scan(dir)
}

func list(w io.Writer, db string, logger *log.Logger) error {
	t, err := tm2.New(db, logger)
	if err != nil {
		return err
	}
	defer t.Close()

	textures, err := t.Textures()
	if err != nil {
		return err
	}

	for _, tex := range textures {
		fmt.Fprintf(w, "%s %s %d bytes, %d frame(s)\n", tex.SHA1, tex.Path, tex.Size, len(tex.Frames))
		for _, f := range tex.Frames {
			fmt.Fprintf(w, "  frame[%d]: <%d %d> %d bpp, %d mipmap(s)\n", f.Index, f.Width, f.Height, f.BitsPerPixel, f.Mipmaps)
		}
	}

	return nil
}

func main() {
	app := cli.NewApp()

	app.Name = "tm2"
	app.Usage = "PlayStation 2 TIM2 texture utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"TM2_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to catalogue database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "info",
			Usage:     "Print the headers of TIM2 files",
			ArgsUsage: "FILE...",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				for _, file := range c.Args().Slice() {
					m, err := decodeFile(file)
					if err != nil {
						return cli.Exit(err, 1)
					}
					info(c.App.Writer, file, m)
				}

				return nil
			},
		},
		{
			Name:      "extract",
			Usage:     "Write each frame of a TIM2 file as PNG",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Value:   ".",
					Usage:   "directory to write images to",
				},
				&cli.IntFlag{
					Name:  "colors",
					Usage: "reduce images to at most this many colors (2-256)",
				},
				&cli.BoolFlag{
					Name:  "mipmaps",
					Usage: "also write mipmap levels",
				},
				&cli.StringFlag{
					Name:  "color-key",
					Usage: "make pixels of this color (RRGGBB or RRGGBBAA) transparent, e.g. 00ff00",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				key, err := parseColorKey(c.String("color-key"))
				if err != nil {
					return cli.Exit(err, 1)
				}

				if _, err := extract(newLogger(c), c.Args().First(), c.String("output"), export.Options{
					Colors:   c.Int("colors"),
					Mipmaps:  c.Bool("mipmaps"),
					ColorKey: key,
				}); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "index",
			Usage:     "Scan a directory tree and catalogue every TIM2 file",
			ArgsUsage: "DIRECTORY",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				if err := index(c.String("db"), newLogger(c), c.Args().First()); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:  "list",
			Usage: "List catalogued textures",
			Action: func(c *cli.Context) error {
				if err := list(c.App.Writer, c.String("db"), newLogger(c)); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
