package ethics

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
)

// Strategy records how an option index was obtained.
type Strategy string

const (
	// StrategyDeclared means the text contained an explicit "I choose option N".
	StrategyDeclared Strategy = "declared"
	// StrategyMentioned means the first bare option reference was used.
	StrategyMentioned Strategy = "mentioned"
	// StrategyFallback means nothing matched and the Chooser picked. Low confidence.
	StrategyFallback Strategy = "fallback"
)

// ErrNoOptions is returned when there is nothing to resolve against.
var ErrNoOptions = errors.New("ethics: no options to resolve against")

// Resolution is the zero-based option index and how it was found.
type Resolution struct {
	Index    int      `json:"index"`
	Strategy Strategy `json:"strategy"`
}

// ResolverPatterns configures the matching rules. Declaration needs exactly one
// capture group holding the 1-based ordinal; each Mentions entry is a fmt
// template with a single %d.
type ResolverPatterns struct {
	Declaration string
	Mentions    []string
}

// DefaultResolverPatterns matches the phrasing requested by BuildPrompt.
var DefaultResolverPatterns = ResolverPatterns{
	Declaration: `(?i)\bI\s+choose\s+option\s+#?(\d+)`,
	Mentions: []string{
		`(?i)\boption %d\b`,
		`(?i)\boption%d\b`,
		`(?i)#%d\b`,
	},
}

// Chooser picks an index in [0, n) when no pattern matched.
type Chooser func(n int) int

// RandomChooser picks uniformly.
func RandomChooser(n int) int { return rand.IntN(n) }

// FirstChooser always picks the first option.
func FirstChooser(int) int { return 0 }

// Resolver maps a completion onto one of a dilemma's options.
type Resolver struct {
	declaration *regexp.Regexp
	mentions    []string
	choose      Chooser
}

// NewResolver validates patterns. A nil choose defaults to RandomChooser.
func NewResolver(patterns ResolverPatterns, choose Chooser) (*Resolver, error) {
	decl, err := regexp.Compile(patterns.Declaration)
	if err != nil {
		return nil, fmt.Errorf("ethics: declaration pattern: %w", err)
	}
	if decl.NumSubexp() != 1 {
		return nil, fmt.Errorf("ethics: declaration pattern needs one capture group, has %d", decl.NumSubexp())
	}
	for _, tmpl := range patterns.Mentions {
		if _, err := regexp.Compile(fmt.Sprintf(tmpl, 1)); err != nil {
			return nil, fmt.Errorf("ethics: mention pattern %q: %w", tmpl, err)
		}
	}
	if choose == nil {
		choose = RandomChooser
	}
	return &Resolver{
		declaration: decl,
		mentions:    append([]string(nil), patterns.Mentions...),
		choose:      choose,
	}, nil
}

// NewDefaultResolver builds a Resolver from DefaultResolverPatterns.
func NewDefaultResolver(choose Chooser) *Resolver {
	r, err := NewResolver(DefaultResolverPatterns, choose)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the chosen index in [0, optionCount). It only fails when
// optionCount is not positive.
func (r *Resolver) Resolve(text string, optionCount int) (Resolution, error) {
	if optionCount <= 0 {
		return Resolution{}, ErrNoOptions
	}

	if m := r.declaration.FindStringSubmatch(text); len(m) == 2 {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= optionCount {
			return Resolution{Index: n - 1, Strategy: StrategyDeclared}, nil
		}
	}

	for n := 1; n <= optionCount; n++ {
		for _, tmpl := range r.mentions {
			re, err := regexp.Compile(fmt.Sprintf(tmpl, n))
			if err != nil {
				continue
			}
			if re.MatchString(text) {
				return Resolution{Index: n - 1, Strategy: StrategyMentioned}, nil
			}
		}
	}

	idx := r.choose(optionCount)
	if idx < 0 || idx >= optionCount {
		idx = 0
	}
	return Resolution{Index: idx, Strategy: StrategyFallback}, nil
}
