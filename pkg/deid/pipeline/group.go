package pipeline

import (
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/cognicore/deid/pkg/deid/internalerr"
)

type entry struct {
	name    string
	stage   Stage
	enabled bool
}

// Group is an ordered list of named stages. A Group is itself a Stage, so
// groups nest. Stage names are unique within a group.
//
// Registration is not synchronized: build the group first, then run it from
// as many goroutines as needed.
type Group struct {
	entries []entry
}

// NewGroup creates an empty group.
func NewGroup() *Group {
	return &Group{}
}

type addOptions struct {
	before   string
	after    string
	at       int
	disabled bool
}

// AddOption positions or configures a stage being added.
type AddOption func(*addOptions)

// Before inserts the stage directly before the named stage.
func Before(name string) AddOption {
	return func(o *addOptions) { o.before = name }
}

// After inserts the stage directly after the named stage.
func After(name string) AddOption {
	return func(o *addOptions) { o.after = name }
}

// At inserts the stage at position i.
func At(i int) AddOption {
	return func(o *addOptions) { o.at = i }
}

// Disabled registers the stage switched off.
func Disabled() AddOption {
	return func(o *addOptions) { o.disabled = true }
}

// Add registers a stage under name, appending it unless a position option is
// given.
func (g *Group) Add(name string, stage Stage, opts ...AddOption) error {
	if name == "" || stage == nil {
		return fmt.Errorf("add stage %q: %w", name, internalerr.ErrInvalidInput)
	}
	if g.index(name) >= 0 {
		return fmt.Errorf("add stage %q: %w", name, internalerr.ErrDuplicate)
	}

	o := addOptions{at: -1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.before != "" && o.after != "" {
		return fmt.Errorf("add stage %q: both before and after given: %w", name, internalerr.ErrInvalidInput)
	}

	pos := len(g.entries)
	switch {
	case o.before != "":
		if pos = g.index(o.before); pos < 0 {
			return fmt.Errorf("add stage %q before %q: %w", name, o.before, internalerr.ErrNotFound)
		}
	case o.after != "":
		i := g.index(o.after)
		if i < 0 {
			return fmt.Errorf("add stage %q after %q: %w", name, o.after, internalerr.ErrNotFound)
		}
		pos = i + 1
	case o.at >= 0:
		if o.at > len(g.entries) {
			return fmt.Errorf("add stage %q at %d of %d: %w", name, o.at, len(g.entries), internalerr.ErrInvalidInput)
		}
		pos = o.at
	}

	g.entries = slices.Insert(g.entries, pos, entry{name: name, stage: stage, enabled: !o.disabled})
	return nil
}

// Remove deletes the named stage.
func (g *Group) Remove(name string) error {
	i := g.index(name)
	if i < 0 {
		return fmt.Errorf("remove stage %q: %w", name, internalerr.ErrNotFound)
	}
	g.entries = slices.Delete(g.entries, i, i+1)
	return nil
}

// Get returns the named stage, searching nested groups too.
func (g *Group) Get(name string) (Stage, bool) {
	e := g.find(name)
	if e == nil {
		return nil, false
	}
	return e.stage, true
}

// SetEnabled switches the named stage, searching nested groups too.
func (g *Group) SetEnabled(name string, enabled bool) error {
	e := g.find(name)
	if e == nil {
		return fmt.Errorf("stage %q: %w", name, internalerr.ErrNotFound)
	}
	e.enabled = enabled
	return nil
}

// Names lists stage names in run order. With recursive set, the names inside
// nested groups follow the name of their group.
func (g *Group) Names(recursive bool) []string {
	var out []string
	for _, e := range g.entries {
		out = append(out, e.name)
		if sub, ok := e.stage.(*Group); ok && recursive {
			out = append(out, sub.Names(true)...)
		}
	}
	return out
}

// Len returns the number of top-level stages.
func (g *Group) Len() int { return len(g.entries) }

func (g *Group) index(name string) int {
	return slices.IndexFunc(g.entries, func(e entry) bool { return e.name == name })
}

func (g *Group) find(name string) *entry {
	for i := range g.entries {
		e := &g.entries[i]
		if e.name == name {
			return e
		}
		if sub, ok := e.stage.(*Group); ok {
			if found := sub.find(name); found != nil {
				return found
			}
		}
	}
	return nil
}

// RunOptions select stages for one run. With Enabled, only the named stages
// run (and everything inside a named group), including stages registered as
// disabled. With Disabled, the named stages are skipped. At most one of the
// two may be set.
type RunOptions struct {
	Enabled  []string
	Disabled []string
}

func (o RunOptions) validate() error {
	if len(o.Enabled) > 0 && len(o.Disabled) > 0 {
		return fmt.Errorf("enabled and disabled stages both given: %w", internalerr.ErrInvalidInput)
	}
	return nil
}

// Process implements Stage.
func (g *Group) Process(doc *Document) error {
	return g.Run(doc, RunOptions{})
}

// Run runs the group's stages on doc in order, stopping at the first error.
func (g *Group) Run(doc *Document, opts RunOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	return g.run(doc, selection{only: toSet(opts.Enabled), except: toSet(opts.Disabled)}, zerolog.Nop())
}

type selection struct {
	only   map[string]struct{}
	except map[string]struct{}
}

// decide reports whether e runs and with which selection its children run.
func (s selection) decide(e entry, isGroup bool) (bool, selection) {
	if s.only != nil {
		if _, ok := s.only[e.name]; ok {
			return true, selection{}
		}
		return isGroup, s
	}
	if _, ok := s.except[e.name]; ok {
		return false, s
	}
	return e.enabled, s
}

func (g *Group) run(doc *Document, sel selection, log zerolog.Logger) error {
	for _, e := range g.entries {
		sub, isGroup := e.stage.(*Group)
		ok, inner := sel.decide(e, isGroup)
		if !ok {
			continue
		}
		if isGroup {
			if err := sub.run(doc, inner, log); err != nil {
				return err
			}
			continue
		}

		log.Debug().Str("stage", e.name).Msg("running stage")
		if err := e.stage.Process(doc); err != nil {
			return fmt.Errorf("stage %q: %w", e.name, err)
		}
	}
	return nil
}

func toSet(names []string) map[string]struct{} {
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}
