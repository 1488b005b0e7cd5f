package engine

import (
	"fmt"
	"regexp"
	"strings"

	"sgf_review/internal/domain"
	errs "sgf_review/internal/errors"
)

// Patterns describes how one engine version prints its search.
// Every expression uses named groups so several output dialects can share
// one parser:
//
//	pos, visits, winrate, mc, nn, nncount, policy, pv  candidate lines
//	mc, nn, margin                                     status line
//	visits, winrate, pv                                best line
//	visits                                             stats line
//	bookmoves, positions                               book line
//	move                                               chosen move on stdout
//
// Best and BookMove may be nil. Without a Best line the leading candidate
// is the best move. An empty FinishBanner means the whole transcript is the
// summary.
type Patterns struct {
	Update       []*regexp.Regexp
	Status       []*regexp.Regexp
	Candidate    []*regexp.Regexp
	Best         *regexp.Regexp
	Stats        *regexp.Regexp
	BookMove     *regexp.Regexp
	Finished     *regexp.Regexp
	FinishBanner string
	// Required names the stats a finished search must have printed.
	Required []string
}

// LeelaPatterns matches Leela 0.11, with and without the value network.
func LeelaPatterns() *Patterns {
	return &Patterns{
		Update: []*regexp.Regexp{
			regexp.MustCompile(`Nodes: (?P<visits>[0-9]+), Win: (?P<winrate>[0-9]+\.[0-9]+)% \(MC:[0-9]+\.[0-9]+%/VN:[0-9]+\.[0-9]+%\), PV:(?P<pv>( [A-Z][0-9]+)+)`),
			regexp.MustCompile(`Nodes: (?P<visits>[0-9]+), Win: (?P<winrate>[0-9]+\.[0-9]+)%, PV:(?P<pv>( [A-Z][0-9]+)+)`),
		},
		Status: []*regexp.Regexp{
			regexp.MustCompile(`MC winrate=(?P<mc>[0-9]+\.[0-9]+), NN eval=(?P<nn>[0-9]+\.[0-9]+), score=(?P<margin>[BW]\+[0-9]+\.[0-9]+)`),
			regexp.MustCompile(`MC winrate=(?P<mc>[0-9]+\.[0-9]+), score=(?P<margin>[BW]\+[0-9]+\.[0-9]+)`),
		},
		Candidate: []*regexp.Regexp{
			regexp.MustCompile(`^(?P<pos>[A-Z][0-9]+) -> +(?P<visits>[0-9]+) \(W: +(?P<winrate>-?[0-9]+\.[0-9]+)%\) \(U: +(?P<mc>-?[0-9]+\.[0-9]+)%\) \(V: +(?P<nn>[0-9]+\.[0-9]+)%: +(?P<nncount>[0-9]+)\) \(N: +(?P<policy>[0-9]+\.[0-9]+)%\) PV: (?P<pv>.*)$`),
			regexp.MustCompile(`^(?P<pos>[A-Z][0-9]+) -> +(?P<visits>[0-9]+) \(U: +(?P<winrate>-?[0-9]+\.[0-9]+)%\) \(R: +(?P<nn>[0-9]+\.[0-9]+)%: +(?P<nncount>[0-9]+)\) \(N: +(?P<policy>[0-9]+\.[0-9]+)%\) PV: (?P<pv>.*)$`),
		},
		Best:         regexp.MustCompile(`(?P<visits>[0-9]+) visits, score (?P<winrate>-? ?[0-9]+\.[0-9]+)% \(from -? ?[0-9]+\.[0-9]+%\) PV: (?P<pv>.*)`),
		Stats:        regexp.MustCompile(`(?P<visits>[0-9]+) visits, (?P<nodes>[0-9]+) nodes(?:, (?P<playouts>[0-9]+) playouts)(?:, (?P<rate>[0-9]+) p/s)`),
		BookMove:     regexp.MustCompile(`(?P<bookmoves>[0-9]+) book moves, (?P<positions>[0-9]+) total positions`),
		Finished:     regexp.MustCompile(`= (?P<move>[A-Z][0-9]+|resign|pass)`),
		FinishBanner: "================",
		Required:     []string{"mc_winrate", "margin", "best", "winrate", "visits"},
	}
}

// LeelaZeroPatterns matches Leela Zero. It has no Monte Carlo rollouts,
// no opening book and no summary banner, and prints the value head as a
// fraction.
func LeelaZeroPatterns() *Patterns {
	return &Patterns{
		Update: []*regexp.Regexp{
			regexp.MustCompile(`Playouts: (?P<visits>[0-9]+), Win: (?P<winrate>[0-9]+\.[0-9]+)%, PV:(?P<pv>( [A-Z][0-9]+)+)`),
		},
		Status: []*regexp.Regexp{
			regexp.MustCompile(`NN eval=(?P<nn>[0-9]+\.[0-9]+)`),
		},
		Candidate: []*regexp.Regexp{
			regexp.MustCompile(`^(?P<pos>[A-Z][0-9]+) -> +(?P<visits>[0-9]+) \(V: +(?P<winrate>[0-9]+\.[0-9]+)%\) .*\(N: +(?P<policy>[0-9]+\.[0-9]+)%\) PV: (?P<pv>.*)$`),
		},
		Stats:    regexp.MustCompile(`(?P<visits>[0-9]+) visits, (?P<nodes>[0-9]+) nodes(?:, (?P<playouts>[0-9]+) playouts)(?:, (?P<rate>[0-9]+) n/s)`),
		Finished: regexp.MustCompile(`= (?P<move>[A-Z][0-9]+|resign|pass)`),
		Required: []string{"best", "winrate", "visits"},
	}
}

const (
	DialectLeela     = "leela"
	DialectLeelaZero = "leelaz"
)

// PatternsFor maps a configured dialect name to its patterns.
func PatternsFor(dialect string) (*Patterns, error) {
	switch strings.ToLower(dialect) {
	case "", DialectLeela:
		return LeelaPatterns(), nil
	case DialectLeelaZero, "leela-zero":
		return LeelaZeroPatterns(), nil
	}
	return nil, fmt.Errorf("%w: %q", errs.ErrUnknownDialect, dialect)
}

// match returns the named groups of the first expression that matches line
// at its start, the way the engine lines are anchored.
func match(res []*regexp.Regexp, line string) map[string]string {
	for _, re := range res {
		if groups := matchOne(re, line, true); groups != nil {
			return groups
		}
	}
	return nil
}

func matchOne(re *regexp.Regexp, line string, anchored bool) map[string]string {
	loc := re.FindStringSubmatchIndex(line)
	if loc == nil || (anchored && loc[0] != 0) {
		return nil
	}
	groups := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name == "" || loc[2*i] < 0 {
			continue
		}
		groups[name] = line[loc[2*i]:loc[2*i+1]]
	}
	return groups
}

func (p *Patterns) bannerStarts(line string) bool {
	return p.FinishBanner == "" || strings.HasPrefix(line, p.FinishBanner)
}

func (p *Patterns) finished(stdout []string) (string, bool) {
	groups := matchOne(p.Finished, strings.Join(stdout, "\n"), false)
	if groups == nil {
		return "", false
	}
	return groups["move"], true
}

func (p *Patterns) summarized(stderr []string) bool {
	joined := strings.Join(stderr, "\n")
	if p.Stats.MatchString(joined) {
		return true
	}
	return p.BookMove != nil && p.BookMove.MatchString(joined)
}

// MissingStats lists the required fields a full search did not print.
func (p *Patterns) MissingStats(s domain.PositionStats) []string {
	var missing []string
	for _, key := range p.Required {
		var present bool
		switch key {
		case "mc_winrate":
			present = s.MCWinrate != nil
		case "margin":
			present = s.Margin != nil
		case "best":
			present = s.Best != nil
		case "winrate":
			present = s.Winrate != nil
		case "visits":
			present = s.Visits != nil
		}
		if !present {
			missing = append(missing, key)
		}
	}
	return missing
}
