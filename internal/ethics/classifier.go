package ethics

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Pattern is one weighted signal for a framework. Expr is a regexp fragment
// matched at a word start against case-folded text.
type Pattern struct {
	Expr   string
	Weight float64
}

// KeywordTable maps each scoreable framework to its signals.
type KeywordTable map[Framework][]Pattern

// DefaultKeywords is the table used by DefaultClassifier.
var DefaultKeywords = KeywordTable{
	Deontological: {
		{Expr: `dut(y|ies)\b`, Weight: 2},
		{Expr: `obligat\w*`, Weight: 2},
		{Expr: `deontolog\w*`, Weight: 2},
		{Expr: `categorical imperative`, Weight: 3},
		{Expr: `kant\w*`, Weight: 2},
		{Expr: `rules?\b`, Weight: 1},
		{Expr: `principles?\b`, Weight: 1},
		{Expr: `rights\b`, Weight: 1.5},
		{Expr: `inherently (wrong|right)`, Weight: 2},
		{Expr: `regardless of (the )?(consequences|outcomes?)`, Weight: 3},
		{Expr: `never (acceptable|permissible)`, Weight: 2},
		{Expr: `dignity`, Weight: 1},
		{Expr: `promises?\b`, Weight: 1},
		{Expr: `honesty\b`, Weight: 1},
	},
	Consequentialist: {
		{Expr: `consequences?\b`, Weight: 2},
		{Expr: `consequentialis\w*`, Weight: 2},
		{Expr: `outcomes?\b`, Weight: 2},
		{Expr: `results?\b`, Weight: 1},
		{Expr: `effects?\b`, Weight: 1},
		{Expr: `leads? to\b`, Weight: 1},
		{Expr: `ends justify`, Weight: 3},
		{Expr: `in the long run`, Weight: 1},
		{Expr: `(prevent|avoid|minimi[sz]e) (the )?harm`, Weight: 1.5},
	},
	Utilitarian: {
		{Expr: `utilitarian\w*`, Weight: 3},
		{Expr: `utility\b`, Weight: 2},
		{Expr: `greatest good`, Weight: 3},
		{Expr: `greatest number`, Weight: 3},
		{Expr: `maximi[sz]\w*`, Weight: 2},
		{Expr: `welfare`, Weight: 2},
		{Expr: `well-?being`, Weight: 1.5},
		{Expr: `overall (happiness|good|benefit)`, Weight: 2},
		{Expr: `net (benefit|good|harm)`, Weight: 2},
		{Expr: `more lives`, Weight: 2},
		{Expr: `aggregate`, Weight: 1},
	},
	Relational: {
		{Expr: `relationships?\b`, Weight: 2},
		{Expr: `relational\w*`, Weight: 3},
		{Expr: `ethics of care|care ethics`, Weight: 3},
		{Expr: `car(e|ing)\b`, Weight: 1.5},
		{Expr: `loyal(ty)?\b`, Weight: 2},
		{Expr: `trust\b`, Weight: 1},
		{Expr: `context\w*`, Weight: 1},
		{Expr: `famil(y|ies)\b`, Weight: 1},
		{Expr: `friend(s|ship)?\b`, Weight: 1},
		{Expr: `communit(y|ies)\b`, Weight: 1},
		{Expr: `empath\w*`, Weight: 1.5},
		{Expr: `compassion\w*`, Weight: 1.5},
	},
}

const (
	// DefaultMinSignal is the score a framework needs before it counts at all.
	DefaultMinSignal = 2.0
	// DefaultMixedRatio is how close the runner-up must be to the leader for MIXED.
	DefaultMixedRatio = 0.8
)

type compiledPattern struct {
	re     *regexp.Regexp
	weight float64
}

type frameworkRule struct {
	framework Framework
	patterns  []compiledPattern
}

// Classifier labels free text with the framework its language most resembles.
type Classifier struct {
	rules      []frameworkRule
	minSignal  float64
	mixedRatio float64
}

// ClassifierOption tunes a Classifier.
type ClassifierOption func(*Classifier)

// WithMinSignal sets the minimum score a framework needs to be considered.
func WithMinSignal(v float64) ClassifierOption {
	return func(c *Classifier) { c.minSignal = v }
}

// WithMixedRatio sets the runner-up/leader ratio at or above which the result is MIXED.
func WithMixedRatio(v float64) ClassifierOption {
	return func(c *Classifier) { c.mixedRatio = v }
}

// NewClassifier compiles table. Only the four scoreable frameworks may appear as keys.
func NewClassifier(table KeywordTable, opts ...ClassifierOption) (*Classifier, error) {
	c := &Classifier{
		minSignal:  DefaultMinSignal,
		mixedRatio: DefaultMixedRatio,
	}
	for _, opt := range opts {
		opt(c)
	}

	for fw := range table {
		if fw == Mixed || fw == Unknown || !fw.Valid() {
			return nil, fmt.Errorf("ethics: framework %q cannot carry keywords", fw)
		}
	}

	// Walk AllFrameworks rather than the map so ties resolve the same way every run.
	for _, fw := range AllFrameworks {
		patterns, ok := table[fw]
		if !ok {
			continue
		}
		rule := frameworkRule{framework: fw}
		for _, p := range patterns {
			re, err := regexp.Compile(`\b(?:` + p.Expr + `)`)
			if err != nil {
				return nil, fmt.Errorf("ethics: pattern %q for %s: %w", p.Expr, fw, err)
			}
			rule.patterns = append(rule.patterns, compiledPattern{re: re, weight: p.Weight})
		}
		c.rules = append(c.rules, rule)
	}
	return c, nil
}

var defaultClassifier = mustClassifier(DefaultKeywords)

func mustClassifier(table KeywordTable) *Classifier {
	c, err := NewClassifier(table)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultClassifier returns the shared classifier built from DefaultKeywords.
func DefaultClassifier() *Classifier {
	return defaultClassifier
}

// normalize folds case after NFKC. A Caser is stateful, so each call gets its own.
func normalize(text string) string {
	return cases.Fold().String(norm.NFKC.String(text))
}

// Scores returns the weighted signal per scoreable framework.
func (c *Classifier) Scores(text string) map[Framework]float64 {
	scores := make(map[Framework]float64, len(c.rules))
	if strings.TrimSpace(text) == "" {
		return scores
	}
	folded := normalize(text)
	for _, rule := range c.rules {
		var total float64
		for _, p := range rule.patterns {
			total += p.weight * float64(len(p.re.FindAllStringIndex(folded, -1)))
		}
		scores[rule.framework] = total
	}
	return scores
}

// Classify returns the dominant framework of text, MIXED when two are close,
// or UNKNOWN when nothing clears the minimum signal.
func (c *Classifier) Classify(text string) Framework {
	if strings.TrimSpace(text) == "" {
		return Unknown
	}
	scores := c.Scores(text)

	top, second := Unknown, Unknown
	var topScore, secondScore float64
	for _, rule := range c.rules {
		s := scores[rule.framework]
		switch {
		case s > topScore:
			second, secondScore = top, topScore
			top, topScore = rule.framework, s
		case s > secondScore:
			second, secondScore = rule.framework, s
		}
	}

	if topScore < c.minSignal {
		return Unknown
	}
	if second != Unknown && secondScore >= c.minSignal && secondScore >= topScore*c.mixedRatio {
		return Mixed
	}
	return top
}
