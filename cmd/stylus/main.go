package main

/*
stylus drives the DNA-pen-trace simulation engine from the command line: it
loads a genome and a Han reference scope, runs a mutation plan against the
genome, and reports the resulting genome document, statistics, and
termination, or dumps a loaded genome's state.
*/

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/biologic/stylus/internal/genome"
	"github.com/biologic/stylus/internal/hanref"
	"github.com/biologic/stylus/internal/stylerr"
	"github.com/biologic/stylus/internal/stylusapi"
	"github.com/biologic/stylus/internal/xmlio"
)

var (
	scopeDir    = flag.String("scope", "", "Directory of Han reference documents, one <unicode>.xml per character")
	genomePath  = flag.String("genome", "", "Input genome XML path")
	globalsPath = flag.String("globals", "", "Optional globals XML path overlaying score weights/setpoints")
	planPath    = flag.String("plan", "", "Plan XML path (run-plan only)")
	seed        = flag.String("seed", "", "PRNG seed, either 'quoted phrase' or \"n1 n2\"; a seed in the genome document replaces it; default \"1 0\"")
	firstTrial  = flag.Int("first-trial", 0, "First trial number passed to the engine, which does not use it; status lines show the genome's cumulative trial count (run-plan only)")
	trialCount  = flag.Int("trials", 0, "Maximum number of trials to execute; 0 = until the plan's own termination condition fires (run-plan only)")
	outPath     = flag.String("out", "", "Output genome XML path; default stdout")
	quiet       = flag.Bool("quiet", false, "Suppress per-trial status lines (run-plan only)")
)

func stylusUsage() {
	fmt.Printf("Usage: %s [OPTIONS] {run-plan,show-genome}\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = stylusUsage
	shutdown := grail.Init()
	defer shutdown()

	allArgs := flag.Args()
	nPositionalArgs := flag.NArg()
	positionalArgs := allArgs[len(allArgs)-nPositionalArgs:]
	if nPositionalArgs != 1 {
		log.Fatalf("Missing positional argument (one of 'run-plan', 'show-genome' required); please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
	}
	if *genomePath == "" {
		log.Fatalf("-genome is required")
	}
	if *scopeDir == "" {
		log.Fatalf("-scope is required")
	}

	engine := stylusapi.New()
	if err := engine.Initialize(); err != nil {
		log.Panicf("%v", err)
	}
	if err := engine.SetScope(dirResolver(*scopeDir)); err != nil {
		log.Panicf("%v", err)
	}
	if *seed != "" {
		if err := engine.SetSeed(*seed); err != nil {
			log.Panicf("%v", err)
		}
	}
	if *globalsPath != "" {
		f, err := os.Open(*globalsPath)
		if err != nil {
			log.Panicf("%v", err)
		}
		err = engine.SetGlobals(f)
		f.Close()
		if err != nil {
			log.Panicf("%v", err)
		}
	}
	gf, err := os.Open(*genomePath)
	if err != nil {
		log.Panicf("%v", err)
	}
	err = engine.SetGenome(gf)
	gf.Close()
	if err != nil {
		log.Panicf("%v", err)
	}

	switch positionalArgs[0] {
	case "run-plan":
		runPlan(engine)
	case "show-genome":
		showGenome(engine)
	default:
		log.Fatalf("unknown command %q; expected 'run-plan' or 'show-genome'", positionalArgs[0])
	}
	log.Debug.Printf("exiting")
}

func runPlan(engine *stylusapi.Engine) {
	if *planPath == "" {
		log.Fatalf("-plan is required for run-plan")
	}
	f, err := os.Open(*planPath)
	if err != nil {
		log.Panicf("%v", err)
	}
	defer f.Close()

	term, err := engine.ExecutePlan(f, *firstTrial, *trialCount, func(trials int, stats genome.Statistics) bool {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "trial %d: attempts=%d rollbacks=%d\n", trials, stats.Attempts, stats.Rollbacks)
		}
		return false
	})
	if err != nil {
		log.Panicf("%v", err)
	}
	if !*quiet {
		fmt.Fprintf(os.Stderr, "termination: %+v\n", term)
	}
	writeGenome(engine)
}

func showGenome(engine *stylusapi.Engine) {
	writeGenome(engine)
	state, err := engine.GetGenomeState()
	if err != nil {
		log.Panicf("%v", err)
	}
	stats, err := engine.GetStatistics()
	if err != nil {
		log.Panicf("%v", err)
	}
	fmt.Fprintf(os.Stderr, "state: %s\n", state)
	fmt.Fprintf(os.Stderr, "trials=%d attempts=%d rollbacks=%d\n", stats.Trials, stats.Attempts, stats.Rollbacks)
}

func writeGenome(engine *stylusapi.Engine) {
	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Panicf("%v", err)
		}
		defer f.Close()
		out = f
	}
	if err := engine.GetGenome(out, "", "stylus", ""); err != nil {
		log.Panicf("%v", err)
	}
}

// dirResolver returns a HanResolver that loads <dir>/<unicode>.xml on
// first reference to each character, mirroring the scope-directory
// convention the original engine's file-backed HanReferenceDao used.
func dirResolver(dir string) xmlio.HanResolver {
	cache := map[string]*hanref.HanRef{}
	return func(unicode string) (*hanref.HanRef, error) {
		if h, ok := cache[unicode]; ok {
			return h, nil
		}
		path := filepath.Join(dir, unicode+".xml")
		f, err := os.Open(path)
		if err != nil {
			return nil, stylerr.Wrap(stylerr.IOError, err, "opening Han reference %s", path)
		}
		defer f.Close()
		h, err := hanref.Load(f)
		if err != nil {
			return nil, err
		}
		cache[unicode] = h
		return h, nil
	}
}
