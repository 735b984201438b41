// Package stylusapi is the public facade a caller (the CLI, or any other
// embedder) drives: the C-ABI-shaped operation table of spec.md §6,
// implemented over internal/genome, internal/planexec, and internal/xmlio.
// Every method maps hard errors to a *stylerr.Error and records them in a
// bounded history, mirroring the source engine's single retrievable
// "last error" contract; validation failures never escape this package.
package stylusapi

import (
	"io"

	"github.com/grailbio/base/log"

	"github.com/biologic/stylus/internal/acid"
	"github.com/biologic/stylus/internal/genome"
	"github.com/biologic/stylus/internal/hanref"
	"github.com/biologic/stylus/internal/planexec"
	"github.com/biologic/stylus/internal/prng"
	"github.com/biologic/stylus/internal/scoring"
	"github.com/biologic/stylus/internal/stylerr"
	"github.com/biologic/stylus/internal/unit"
	"github.com/biologic/stylus/internal/xmlio"
)

// Engine holds the process-wide state spec.md §5 describes: the current
// genome, its codon table, the configured globals, the PRNG, and the error
// history. Exactly one Engine is meant to exist per process, matching the
// original engine's global singleton; nothing here is safe for concurrent
// use from more than one goroutine (the engine is single-threaded
// cooperative, per spec.md §5).
type Engine struct {
	initialized bool

	genome  *genome.Genome
	table   *acid.Table
	globals scoring.Globals
	rng     prng.PRNG
	seed    string
	errors  stylerr.History

	hanResolver xmlio.HanResolver
}

// New returns an uninitialized Engine. Initialize must be called before any
// other operation.
func New() *Engine {
	return &Engine{}
}

// Initialize transitions the engine into a ready state with default
// globals and PRNG, mirroring the source engine's initialize() entry
// point.
func (e *Engine) Initialize() error {
	rng, err := prng.NewDefault("")
	if err != nil {
		return e.fail(stylerr.Wrap(stylerr.BadArguments, err, "initializing default PRNG"))
	}
	e.initialized = true
	e.globals = scoring.Default()
	e.rng = rng
	e.seed = rng.Seed()
	return nil
}

// Terminate releases the engine's state. A terminated engine behaves as if
// never initialized; Initialize must be called again before further use.
func (e *Engine) Terminate() {
	*e = Engine{}
}

func (e *Engine) checkInitialized() error {
	if !e.initialized {
		return e.fail(stylerr.New(stylerr.NotInitialized, "engine operation called before Initialize"))
	}
	return nil
}

func (e *Engine) fail(err *stylerr.Error) error {
	e.errors.Record(err)
	return err
}

// LastError returns the most recently recorded hard error, or nil.
func (e *Engine) LastError() error { return e.errors.Last() }

// SetGlobals replaces the score weights/setpoints from a globals document.
func (e *Engine) SetGlobals(r io.Reader) error {
	if err := e.checkInitialized(); err != nil {
		return err
	}
	g, err := xmlio.ReadGlobals(r)
	if err != nil {
		return e.fail(err.(*stylerr.Error))
	}
	e.globals = g
	return nil
}

// SetScope installs the resolver used to fetch a Han reference document by
// unicode codepoint name when a genome document is loaded. The scope/schema
// URLs of spec.md §6 are the caller's concern; SetScope only accepts the
// resulting lookup function.
func (e *Engine) SetScope(resolver xmlio.HanResolver) error {
	if err := e.checkInitialized(); err != nil {
		return err
	}
	e.hanResolver = resolver
	return nil
}

// SetSeed installs a new PRNG seed (quoted phrase or "n1 n2" numeric form,
// per spec.md §6).
func (e *Engine) SetSeed(text string) error {
	if err := e.checkInitialized(); err != nil {
		return err
	}
	if err := e.rng.SetSeed(text); err != nil {
		return e.fail(err.(*stylerr.Error))
	}
	e.seed = e.rng.Seed()
	return nil
}

// GetSeed returns the PRNG's current seed text.
func (e *Engine) GetSeed() (string, error) {
	if err := e.checkInitialized(); err != nil {
		return "", err
	}
	return e.seed, nil
}

// SetGenome replaces the current genome from a genome document.
func (e *Engine) SetGenome(r io.Reader) error {
	if err := e.checkInitialized(); err != nil {
		return err
	}
	if e.hanResolver == nil {
		return e.fail(stylerr.New(stylerr.BadArguments, "setGenome called before setScope"))
	}
	gn, seedText, table, err := xmlio.ReadGenome(r, e.hanResolver)
	if err != nil {
		return e.fail(err.(*stylerr.Error))
	}
	if seedText != "" {
		if err := e.rng.SetSeed(seedText); err != nil {
			return e.fail(err.(*stylerr.Error))
		}
		e.seed = e.rng.Seed()
	}
	if err := gn.EnterState(genome.Loading); err != nil {
		return e.fail(stylerr.Wrap(stylerr.InvalidState, err, "entering Loading"))
	}
	if err := gn.EnterState(genome.Alive); err != nil {
		return e.fail(stylerr.Wrap(stylerr.InvalidState, err, "entering Alive after load"))
	}
	e.genome = gn
	e.table = table
	return nil
}

// GetGenome serializes the current genome to w.
func (e *Engine) GetGenome(w io.Writer, uuid, creationTool, creationDate string) error {
	if err := e.checkInitialized(); err != nil {
		return err
	}
	if e.genome == nil {
		return e.fail(stylerr.New(stylerr.BadArguments, "getGenome called with no genome loaded"))
	}
	if err := xmlio.WriteGenome(w, e.genome, uuid, creationTool, creationDate, e.seed); err != nil {
		return e.fail(err.(*stylerr.Error))
	}
	return nil
}

// GetGenomeBases returns the current genome's raw base buffer.
func (e *Engine) GetGenomeBases() ([]byte, error) {
	if err := e.checkInitialized(); err != nil {
		return nil, err
	}
	if e.genome == nil {
		return nil, e.fail(stylerr.New(stylerr.BadArguments, "getGenomeBases called with no genome loaded"))
	}
	return append([]byte(nil), e.genome.Bases...), nil
}

// GetGenomeState returns the current genome's state machine state.
func (e *Engine) GetGenomeState() (genome.State, error) {
	if err := e.checkInitialized(); err != nil {
		return 0, err
	}
	if e.genome == nil {
		return 0, e.fail(stylerr.New(stylerr.BadArguments, "getGenomeState called with no genome loaded"))
	}
	return e.genome.State(), nil
}

// GetGenomeTermination returns the current genome's last recorded
// termination (zero value if none).
func (e *Engine) GetGenomeTermination() (genome.Termination, error) {
	if err := e.checkInitialized(); err != nil {
		return genome.Termination{}, err
	}
	if e.genome == nil {
		return genome.Termination{}, e.fail(stylerr.New(stylerr.BadArguments, "getGenomeTermination called with no genome loaded"))
	}
	return e.genome.Termination, nil
}

// GetStatistics returns the current genome's running trial/attempt/rollback
// counters and best-observed score/cost/fitness.
func (e *Engine) GetStatistics() (genome.Statistics, error) {
	if err := e.checkInitialized(); err != nil {
		return genome.Statistics{}, err
	}
	if e.genome == nil {
		return genome.Statistics{}, e.fail(stylerr.New(stylerr.BadArguments, "getStatistics called with no genome loaded"))
	}
	return e.genome.Stats, nil
}

// ExecutePlan drives a plan document against the current genome for up to
// trialCount trials starting at firstTrial, invoking callback per the
// plan's status rate. It returns the termination that ended the run.
func (e *Engine) ExecutePlan(r io.Reader, firstTrial, trialCount int, callback planexec.StatusCallback) (planexec.Termination, error) {
	if err := e.checkInitialized(); err != nil {
		return planexec.Termination{}, err
	}
	if e.genome == nil {
		return planexec.Termination{}, e.fail(stylerr.New(stylerr.BadArguments, "executePlan called with no genome loaded"))
	}
	plan, _, err := xmlio.ReadPlan(r)
	if err != nil {
		return planexec.Termination{}, e.fail(err.(*stylerr.Error))
	}

	if err := e.genome.EnterState(genome.Mutating); err != nil {
		return planexec.Termination{}, e.fail(stylerr.Wrap(stylerr.InvalidState, err, "entering Mutating"))
	}
	log.Debug.Printf("stylusapi: executing plan (firstTrial=%d trialCount=%d)", firstTrial, trialCount)

	unit.SetImprecise(true)
	exec := &planexec.Executor{Genome: e.genome, Table: e.table, Globals: e.globals, RNG: e.rng}
	term, runErr := exec.Execute(plan, firstTrial, trialCount, callback)
	unit.SetImprecise(false)

	if runErr != nil {
		_ = e.genome.EnterState(genome.Dead)
		log.Error.Printf("stylusapi: plan execution failed: %s", runErr)
		return planexec.Termination{}, e.fail(stylerr.Wrap(stylerr.InvalidState, runErr, "plan execution"))
	}
	log.Debug.Printf("stylusapi: plan execution terminated: %s/%s", term.Type, term.Reason)
	if err := e.genome.EnterState(genome.Alive); err != nil {
		return planexec.Termination{}, e.fail(stylerr.Wrap(stylerr.InvalidState, err, "returning to Alive after plan"))
	}
	e.genome.Termination = genome.Termination{
		Code:        string(term.Type),
		ReasonCode:  string(term.Reason),
		Description: term.Description,
	}
	return term, nil
}

// ExecutePlanForMutations runs a plan like ExecutePlan and also returns how
// many modifications the run added to the genome's accepted stack (the
// "mutations" variant of executePlan spec.md §6 names alongside it).
func (e *Engine) ExecutePlanForMutations(r io.Reader, firstTrial, trialCount int, callback planexec.StatusCallback) (planexec.Termination, int, error) {
	before := e.genome.Stacks.Accepted.Len()
	term, err := e.ExecutePlan(r, firstTrial, trialCount, callback)
	if err != nil {
		return term, 0, err
	}
	return term, e.genome.Stacks.Accepted.Len() - before, nil
}

// LoadHanReference is a convenience HanResolver-building helper: it wraps a
// fixed map of already-fetched Han documents, for callers that resolve
// their scope URL to in-memory documents before configuring the engine.
func LoadHanReference(docs map[string]io.Reader) xmlio.HanResolver {
	cache := map[string]*hanref.HanRef{}
	return func(unicode string) (*hanref.HanRef, error) {
		if h, ok := cache[unicode]; ok {
			return h, nil
		}
		r, ok := docs[unicode]
		if !ok {
			return nil, stylerr.New(stylerr.IOError, "no Han reference document registered for %q", unicode)
		}
		h, err := hanref.Load(r)
		if err != nil {
			return nil, err
		}
		cache[unicode] = h
		return h, nil
	}
}
