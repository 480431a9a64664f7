package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/davecgh/go-spew/spew"
	"github.com/jpillora/opts"
	"github.com/jpillora/xdmcpscan/theme"
	"github.com/sirupsen/logrus"
)

type config struct {
	Theme    string   `type:"arg" help:"<theme> is a greeter theme XML file"`
	Width    int      `help:"Screen width"`
	Height   int      `help:"Screen height"`
	Local    bool     `help:"Lay out for a console display"`
	Flexi    bool     `help:"Lay out for an on demand display"`
	Timed    string   `help:"User of a pending timed login"`
	Language []string `help:"Preferred text languages, best first"`
	JSON     bool     `help:"Output allocations in JSON"`
	Watch    bool     `help:"Lay out again every time the theme changes"`
	Debug    bool     `help:"Dump the parsed item tree"`
	Verbose  bool     `help:"Log parse details"`
}

//allocation is one line of output
type allocation struct {
	ID      string     `json:"id,omitempty"`
	Type    string     `json:"type"`
	Depth   int        `json:"depth"`
	Visible bool       `json:"visible"`
	Rect    theme.Rect `json:"rect"`
}

func main() {
	c := config{
		Width:  1024,
		Height: 768,
	}

	opts.New(&c).Name("greeterlayout").Parse()

	if c.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	hostname, _ := os.Hostname()
	o := theme.Options{
		Width:     c.Width,
		Height:    c.Height,
		Languages: c.Language,
		Text: theme.TextContext{
			Hostname:   hostname,
			TimedLogin: c.Timed,
		},
	}
	if len(o.Languages) == 0 {
		o.Languages = envLanguages()
	}
	d := theme.Display{
		Local:           c.Local,
		Flexi:           c.Flexi,
		ConfigAvailable: true,
		SystemMenu:      true,
		Halt:            true,
		Reboot:          true,
		Suspend:         true,
		TimedLogin:      c.Timed,
	}
	log := logrus.WithFields(logrus.Fields{
		"theme":  c.Theme,
		"width":  c.Width,
		"height": c.Height,
	})

	th, err := theme.ParseFile(c.Theme, o)
	if err != nil {
		log.WithError(err).Fatal("could not load theme")
	}
	render(os.Stdout, th, d, c)
	if !c.Watch {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Info("watching for changes")
	err = theme.Watch(ctx, c.Theme, o, func(th *theme.Theme, err error) {
		if err != nil {
			log.WithError(err).Warn("reload failed")
			return
		}
		log.Debug("reloaded")
		render(os.Stdout, th, d, c)
	})
	if err != nil {
		log.WithError(err).Fatal("watch failed")
	}
}

func render(w io.Writer, th *theme.Theme, d theme.Display, c config) {
	th.Layout(d)
	if c.Debug {
		spew.Fdump(w, th.Root)
	}
	rows := allocations(th.Root, 0)
	if c.JSON {
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		e.Encode(rows)
		return
	}
	for _, r := range rows {
		if !r.Visible {
			continue
		}
		id := r.ID
		if id == "" {
			id = "-"
		}
		fmt.Fprintf(w, "%s%-*s %-6s %5d,%-5d %5dx%d\n",
			strings.Repeat("  ", r.Depth), 24-2*r.Depth, id, r.Type,
			r.Rect.X, r.Rect.Y, r.Rect.Width, r.Rect.Height)
	}
}

//allocations lists the items below root, depth first
func allocations(root *theme.Item, depth int) []allocation {
	out := []allocation{}
	for _, it := range root.Children() {
		out = append(out, allocation{
			ID:      it.ID,
			Type:    it.Type.String(),
			Depth:   depth,
			Visible: it.Visible,
			Rect:    it.Allocation,
		})
		out = append(out, allocations(it, depth+1)...)
	}
	return out
}

//envLanguages reads the preferred languages like gettext does
func envLanguages() []string {
	for _, k := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		v := os.Getenv(k)
		if v == "" {
			continue
		}
		langs := []string{}
		for _, l := range strings.Split(v, ":") {
			if l == "" || l == "C" || l == "POSIX" {
				continue
			}
			langs = append(langs, l)
			//de_DE.UTF-8 also matches de_DE and de
			if i := strings.IndexAny(l, ".@"); i > 0 {
				l = l[:i]
				langs = append(langs, l)
			}
			if i := strings.IndexByte(l, '_'); i > 0 {
				langs = append(langs, l[:i])
			}
		}
		return langs
	}
	return nil
}
