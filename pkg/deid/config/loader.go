package config

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/rs/zerolog"

	"github.com/cognicore/deid/pkg/deid/annotator"
	"github.com/cognicore/deid/pkg/deid/internalerr"
	"github.com/cognicore/deid/pkg/deid/lookup"
	"github.com/cognicore/deid/pkg/deid/pipeline"
	"github.com/cognicore/deid/pkg/deid/process"
	"github.com/cognicore/deid/pkg/deid/redact"
	"github.com/cognicore/deid/pkg/deid/store"
	"github.com/cognicore/deid/pkg/deid/tokenize"
)

var modifiers = map[string]lookup.Modifier{
	ModifierStrip:     lookup.Strip,
	ModifierASCIIFold: lookup.ASCIIFold,
}

// DefaultProcessors run when a configuration lists none.
var DefaultProcessors = []Processor{
	{Name: "overlap", Type: TypeOverlapResolver},
	{Name: "merge", Type: TypeMergeAdjacent},
}

// Loader builds pipelines from configurations.
type Loader struct {
	// Store backs store_list lookups. Optional.
	Store store.Store
	// Logger receives build progress and is handed to the Deidentifier.
	Logger zerolog.Logger
}

// build holds state for one Build call.
type build struct {
	ctx        context.Context
	cfg        *Config
	store      store.Store
	log        zerolog.Logger
	tokenizers map[string]tokenize.Tokenizer
	entries    map[string][]lookup.Entry
}

// Build validates cfg, loads its lookup lists and wires the stages: the
// annotators in a group named "annotators", then the processors, then the
// redactor.
func (l *Loader) Build(ctx context.Context, cfg *Config) (*pipeline.Deidentifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &build{
		ctx:        ctx,
		cfg:        cfg,
		store:      l.Store,
		log:        l.Logger,
		tokenizers: make(map[string]tokenize.Tokenizer),
		entries:    make(map[string][]lookup.Entry),
	}

	opts := []pipeline.Option{pipeline.WithLogger(l.Logger)}
	for _, name := range slices.Sorted(maps.Keys(cfg.Tokenizers)) {
		tok, err := tokenize.ByName(cfg.Tokenizers[name])
		if err != nil {
			return nil, err
		}
		b.tokenizers[name] = tok
		opts = append(opts, pipeline.WithTokenizer(name, tok))
	}

	annotators := pipeline.NewGroup()
	for _, a := range cfg.Annotators {
		m, err := b.matcher(a)
		if err != nil {
			return nil, fmt.Errorf("annotator %q: %w", a.Name, err)
		}
		stage := pipeline.Annotate(m, a.Tokenizer)
		if err := annotators.Add(a.Name, stage, position(a.Enabled, a.Before, a.After)...); err != nil {
			return nil, err
		}
	}

	root := pipeline.NewGroup()
	if err := root.Add(StageAnnotators, annotators); err != nil {
		return nil, err
	}

	procs := cfg.Processors
	if procs == nil {
		procs = DefaultProcessors
	}
	for _, p := range procs {
		proc, err := processor(p)
		if err != nil {
			return nil, fmt.Errorf("processor %q: %w", p.Name, err)
		}
		if err := root.Add(p.Name, pipeline.Apply(proc), position(p.Enabled, p.Before, p.After)...); err != nil {
			return nil, err
		}
	}

	if err := root.Add(StageRedactor, pipeline.Redact(redactor(cfg.Redactor))); err != nil {
		return nil, err
	}

	if cfg.FailSafe {
		opts = append(opts, pipeline.WithFailSafe(redact.NewAll()))
	}

	b.log.Info().
		Int("annotators", annotators.Len()).
		Int("lookups", len(b.entries)).
		Strs("stages", root.Names(true)).
		Msg("pipeline built")
	return pipeline.New(root, opts...), nil
}

func position(enabled *bool, before, after string) []pipeline.AddOption {
	var opts []pipeline.AddOption
	if enabled != nil && !*enabled {
		opts = append(opts, pipeline.Disabled())
	}
	if before != "" {
		opts = append(opts, pipeline.Before(before))
	}
	if after != "" {
		opts = append(opts, pipeline.After(after))
	}
	return opts
}

func (b *build) tokenizer(name string) tokenize.Tokenizer {
	if tok, ok := b.tokenizers[name]; ok {
		return tok
	}
	return tokenize.WordBoundary{}
}

func (b *build) matcher(a Annotator) (annotator.Matcher, error) {
	base := annotator.Base{Tag: a.Tag, Priority: a.Priority}

	switch a.Type {
	case TypeTokenLookup:
		entries, err := b.annotatorEntries(a)
		if err != nil {
			return nil, err
		}
		set := lookup.NewSet()
		for _, e := range entries {
			if p := e.Payload(); p != nil {
				set.Put(e.Value, p)
			} else {
				set.Add(e.Value)
			}
		}
		return annotator.NewTokenLookup(base, set), nil

	case TypeMultiTokenLookup:
		entries, err := b.annotatorEntries(a)
		if err != nil {
			return nil, err
		}
		tok := b.tokenizer(a.Tokenizer)
		trie := lookup.NewTrie()
		for _, e := range entries {
			seq, err := tok.Tokenize(e.Value)
			if err != nil {
				return nil, err
			}
			if seq.Len() == 0 {
				continue
			}
			if err := trie.Insert(seq.Texts(), e.Payload()); err != nil {
				return nil, err
			}
		}
		m := annotator.NewMultiTokenLookup(base, trie)
		m.Overlapping = a.Overlapping
		return m, nil

	case TypeRegexp:
		m, err := annotator.NewRegexp(base, a.Pattern, a.Group)
		if err != nil {
			return nil, err
		}
		if len(a.PreMatch) > 0 {
			m.PreMatch = lookup.NewSet(a.PreMatch...)
		}
		return m, nil

	case TypeSequence:
		sets, err := b.allSets()
		if err != nil {
			return nil, err
		}
		preds := make([]annotator.TokenPredicate, 0, len(a.Sequence))
		for i, raw := range a.Sequence {
			p, err := annotator.ParsePattern(raw, sets)
			if err != nil {
				return nil, fmt.Errorf("sequence position %d: %w", i, err)
			}
			preds = append(preds, p)
		}
		m, err := annotator.NewSequence(base, preds, a.Skip)
		if err != nil {
			return nil, err
		}
		if a.Lookup != "" {
			m.Start = sets[a.Lookup]
		}
		return m, nil
	}

	return nil, fmt.Errorf("unknown type %q: %w", a.Type, internalerr.ErrInvalidConfig)
}

func (b *build) annotatorEntries(a Annotator) ([]lookup.Entry, error) {
	var out []lookup.Entry
	if a.Lookup != "" {
		entries, err := b.lookupEntries(a.Lookup)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	for _, v := range a.Values {
		out = append(out, lookup.Entry{Value: v})
	}
	return out, nil
}

// allSets loads every configured lookup as a flat set, for sequence patterns.
func (b *build) allSets() (map[string]*lookup.Set, error) {
	sets := make(map[string]*lookup.Set, len(b.cfg.Lookups))
	for _, name := range slices.Sorted(maps.Keys(b.cfg.Lookups)) {
		entries, err := b.lookupEntries(name)
		if err != nil {
			return nil, err
		}
		set := lookup.NewSet()
		for _, e := range entries {
			set.Add(e.Value)
		}
		sets[name] = set
	}
	return sets, nil
}

// lookupEntries loads, cleans and caches the named lookup list.
func (b *build) lookupEntries(name string) ([]lookup.Entry, error) {
	if entries, ok := b.entries[name]; ok {
		return entries, nil
	}
	l, ok := b.cfg.Lookups[name]
	if !ok {
		return nil, fmt.Errorf("lookup %q: %w", name, internalerr.ErrInvalidConfig)
	}

	var raw []lookup.Entry
	for _, v := range l.Values {
		raw = append(raw, lookup.Entry{Value: v})
	}
	for _, f := range l.Files {
		lines, err := lookup.ReadLines(b.cfg.Path(f))
		if err != nil {
			return nil, fmt.Errorf("lookup %q: %w", name, err)
		}
		for _, v := range lines {
			raw = append(raw, lookup.Entry{Value: v})
		}
	}
	if l.Lexicon != "" {
		lex, err := lookup.LoadLexicon(b.cfg.Path(l.Lexicon))
		if err != nil {
			return nil, fmt.Errorf("lookup %q: %w", name, err)
		}
		raw = append(raw, lex.Entries...)
	}
	if l.StoreList != "" {
		if b.store == nil {
			return nil, fmt.Errorf("lookup %q: store list %q without a store: %w", name, l.StoreList, internalerr.ErrInvalidConfig)
		}
		values, err := b.store.LookupValues(b.ctx, l.StoreList)
		if err != nil {
			return nil, fmt.Errorf("lookup %q: %w", name, err)
		}
		for _, v := range values {
			raw = append(raw, lookup.Entry{Value: v.Value, Tag: v.Tag, Priority: v.Priority})
		}
	}

	entries := clean(l, raw)
	b.entries[name] = entries
	b.log.Debug().Str("lookup", name).Int("values", len(entries)).Msg("lookup loaded")
	return entries, nil
}

// clean applies a lookup's modifiers, filters, expansion and exclusions.
func clean(l Lookup, raw []lookup.Entry) []lookup.Entry {
	var mods []lookup.Modifier
	for _, m := range l.Modifiers {
		mods = append(mods, modifiers[m])
	}
	for _, old := range slices.Sorted(maps.Keys(l.Replace)) {
		mods = append(mods, lookup.ReplaceValue(old, l.Replace[old]))
	}

	var filters []lookup.Filter
	if l.MinLength > 0 {
		filters = append(filters, lookup.MinLength(l.MinLength))
	}

	expander := lookup.MinLengthExpander{MinLength: l.ExpandMinLength}
	for _, m := range l.Expand {
		expander.Modifiers = append(expander.Modifiers, modifiers[m])
	}
	excluded := lookup.NewSet(l.Exclude...)

	var out []lookup.Entry
	for _, e := range raw {
		cleaned := lookup.Clean([]string{e.Value}, mods, filters...)
		if len(cleaned) == 0 {
			continue
		}
		for _, v := range expander.Expand(cleaned[0]) {
			if excluded.Contains(v) {
				continue
			}
			out = append(out, lookup.Entry{Value: v, Tag: e.Tag, Priority: e.Priority})
		}
	}
	return out
}

func processor(p Processor) (process.Processor, error) {
	switch p.Type {
	case TypeOverlapResolver:
		return process.OverlapResolver{}, nil
	case TypeMergeAdjacent:
		return process.NewMergeAdjacent(p.Separator)
	}
	return nil, fmt.Errorf("unknown type %q: %w", p.Type, internalerr.ErrInvalidConfig)
}

func redactor(r Redactor) redact.Redactor {
	open, closing := redact.DefaultOpen, redact.DefaultClose
	if r.Open != nil {
		open = *r.Open
	}
	if r.Close != nil {
		closing = *r.Close
	}

	if r.Type == RedactorAll {
		return &redact.All{Open: open, Close: closing}
	}
	return &redact.Simple{Open: open, Close: closing, AllowOverlap: r.AllowOverlap}
}
