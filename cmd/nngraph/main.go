// Command nngraph loads network descriptions, generates their parameters and
// prints the resulting graph.
//
//	nngraph [--seed N] [--load DIR] [--save DIR] [-v N] description.hcl...
package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"

	"github.com/birdayz/nngraph"
	"github.com/birdayz/nngraph/kdesc"
	"github.com/birdayz/nngraph/kgraph"
	"github.com/birdayz/nngraph/pkg/log"
)

const paramExt = ".param"

func main() {
	flags := pflag.NewFlagSet("nngraph", pflag.ExitOnError)
	seed := flags.Uint64("seed", nngraph.DefaultSeed, "seed of the random initializer")
	load := flags.String("load", "", "directory to load parameters from")
	save := flags.String("save", "", "directory to save generated parameters to")
	verbosity := flags.IntP("verbosity", "v", 0, "log verbosity")
	_ = flags.Parse(os.Args[1:])

	if flags.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: nngraph [flags] description.hcl...")
		flags.PrintDefaults()
		os.Exit(2)
	}

	logger := log.New(*verbosity)
	if err := run(os.Stdout, flags.Args(), *seed, *load, *save, logger); err != nil {
		logger.Error(err, "Failed")
		os.Exit(1)
	}
}

func run(out io.Writer, files []string, seed uint64, load, save string, logger logr.Logger) error {
	e, err := nngraph.New(nngraph.WithLogr(logger), nngraph.WithSeed(seed))
	if err != nil {
		return err
	}

	g := kgraph.New()
	for _, f := range files {
		if g, err = kdesc.LoadFile(e, g, f); err != nil {
			return err
		}
	}

	if load != "" {
		params, err := readParameters(load)
		if err != nil {
			return err
		}
		if g, err = nngraph.ImportParameters(e, g, params); err != nil {
			return err
		}
		logger.Info("Loaded parameters", "dir", load, "count", len(params))
	}

	if g, err = e.GenerateParameters(g); err != nil {
		return err
	}
	if err := e.Validate(g); err != nil {
		return err
	}

	if save != "" {
		params, err := nngraph.ExportParameters(e, g)
		if err != nil {
			return err
		}
		if err := writeParameters(save, params); err != nil {
			return err
		}
		logger.Info("Saved parameters", "dir", save, "count", len(params))
	}

	return printGraph(out, e, g)
}

func printGraph(out io.Writer, e *kgraph.Engine, g *kgraph.Graph) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tTYPE\tARGUMENTS")
	for _, id := range g.DFSSeq() {
		n, _ := g.Node(id)
		var args []string
		for _, ka := range e.NodeArguments(n) {
			desc := fmt.Sprint(ka.Argument)
			if p, ok := ka.Argument.(kgraph.ParameterArg); ok {
				if entry, ok := g.Buffer(p.BufferID); ok {
					desc = fmt.Sprintf("%s%v", p.BufferID, entry.Data.Shape())
				}
			}
			args = append(args, ka.Key+"="+desc)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", n.ID, n.Type, strings.Join(args, " "))
	}
	return w.Flush()
}

func writeParameters(dir string, params map[string][]byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for key, data := range params {
		path := filepath.Join(dir, url.PathEscape(key)+paramExt)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}
	return nil
}

func readParameters(dir string) (map[string][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	params := make(map[string][]byte)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != paramExt {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, paramExt))
		if err != nil {
			return nil, fmt.Errorf("parameter file %s: %w", name, err)
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		params[key] = data
	}
	return params, nil
}
