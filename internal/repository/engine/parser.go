package engine

import (
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"sgf_review/internal/domain"
)

type ParserConfig struct {
	BoardSize int
	// ReportedColor is the side whose winning chances the engine prints.
	// The empty value means the engine already reports for the side to move.
	ReportedColor  domain.Color
	PruneRedundant bool
}

// Parser turns one search transcript into stats and ranked candidates.
type Parser struct {
	cfg      ParserConfig
	patterns *Patterns
	log      *zap.SugaredLogger
}

func NewParser(cfg ParserConfig, patterns *Patterns, log *zap.SugaredLogger) *Parser {
	if patterns == nil {
		patterns = LeelaPatterns()
	}
	return &Parser{cfg: cfg, patterns: patterns, log: log}
}

// Parse decodes the transcript of a search for toMove. Stats and candidate
// win-rates come back as the probability that toMove wins.
func (p *Parser) Parse(stdout, stderr []string, toMove domain.Color) (domain.PositionStats, []domain.CandidateMove) {
	var (
		stats      domain.PositionStats
		candidates []domain.CandidateMove
		finished   bool
		summarized bool
	)

	flip := func(wr float64) float64 {
		if p.cfg.ReportedColor != "" && toMove != p.cfg.ReportedColor {
			return 1 - wr
		}
		return wr
	}

	for _, line := range stderr {
		line = strings.TrimSpace(line)
		if p.patterns.bannerStarts(line) {
			finished = true
		}

		if p.patterns.BookMove != nil {
			if g := matchOne(p.patterns.BookMove, line, true); g != nil {
				stats.BookMoves = domain.Ptr(atoi(g["bookmoves"]))
				stats.Positions = domain.Ptr(atoi(g["positions"]))
			}
		}

		if g := match(p.patterns.Status, line); g != nil {
			if mc, ok := g["mc"]; ok {
				stats.MCWinrate = domain.Ptr(flip(atof(mc)))
			}
			if nn, ok := g["nn"]; ok {
				stats.NNWinrate = domain.Ptr(flip(atof(nn)))
			}
			if margin, ok := g["margin"]; ok {
				stats.Margin = domain.Ptr(margin)
			}
		}

		if g := match(p.patterns.Candidate, line); g != nil {
			candidates = append(candidates, p.candidate(g, toMove, flip))
		}

		if finished && !summarized {
			if p.patterns.Best != nil {
				if g := matchOne(p.patterns.Best, line, true); g != nil {
					if pv := p.moves(g["pv"]); len(pv) > 0 {
						stats.Best = domain.Ptr(pv[0])
					}
					stats.Winrate = domain.Ptr(flip(percent(g["winrate"])))
				}
			}
			if g := matchOne(p.patterns.Stats, line, true); g != nil {
				stats.Visits = domain.Ptr(atoi(g["visits"]))
				summarized = true
			}
		}
	}

	if coord, ok := p.patterns.finished(stdout); ok {
		if chosen, err := domain.EngineToRecord(p.cfg.BoardSize, coord); err == nil {
			stats.Chosen = domain.Ptr(chosen)
		} else {
			p.log.Warnw("unreadable chosen move", "move", coord, "error", err)
		}
	}

	if stats.IsBook() && len(candidates) == 0 {
		if stats.Chosen != nil {
			candidates = append(candidates, domain.CandidateMove{Pos: *stats.Chosen, Color: toMove, IsBook: true})
		}
		return stats, candidates
	}

	candidates = rankCandidates(candidates, stats.Best)
	if p.patterns.Best == nil && stats.Best == nil && len(candidates) > 0 {
		stats.Best = domain.Ptr(candidates[0].Pos)
		stats.Winrate = domain.Ptr(candidates[0].Winrate)
	}

	for _, key := range p.patterns.MissingStats(stats) {
		p.log.Warnw("analysis stats missing data", "field", key)
	}

	if p.cfg.PruneRedundant {
		candidates = pruneRedundant(candidates, stats)
	}

	if stats.Chosen != nil && *stats.Chosen == domain.Resign && stats.Best != nil {
		stats.Chosen = domain.Ptr(*stats.Best)
	}

	return stats, candidates
}

func (p *Parser) candidate(g map[string]string, toMove domain.Color, flip func(float64) float64) domain.CandidateMove {
	c := domain.CandidateMove{
		Color:      toMove,
		Visits:     atoi(g["visits"]),
		Winrate:    flip(percent(g["winrate"])),
		NNCount:    atoi(g["nncount"]),
		PolicyProb: percent(g["policy"]),
		PV:         p.moves(g["pv"]),
	}
	if pos, err := domain.EngineToRecord(p.cfg.BoardSize, g["pos"]); err == nil {
		c.Pos = pos
	}
	if mc, ok := g["mc"]; ok {
		c.MCWinrate = flip(percent(mc))
	} else {
		c.MCWinrate = c.Winrate
	}
	if nn, ok := g["nn"]; ok {
		c.NNWinrate = flip(percent(nn))
	}
	return c
}

func (p *Parser) moves(pv string) []domain.Move {
	var out []domain.Move
	for _, coord := range strings.Fields(pv) {
		m, err := domain.EngineToRecord(p.cfg.BoardSize, coord)
		if err != nil {
			p.log.Debugw("skipping unreadable pv move", "move", coord)
			continue
		}
		out = append(out, m)
	}
	return out
}

// rankCandidates orders by visits, best move first among equals, and keeps
// the leader plus everything the search actually visited.
func rankCandidates(candidates []domain.CandidateMove, best *domain.Move) []domain.CandidateMove {
	isBest := func(c domain.CandidateMove) bool {
		return best != nil && c.Pos == *best
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Visits != candidates[j].Visits {
			return candidates[i].Visits > candidates[j].Visits
		}
		return isBest(candidates[i]) && !isBest(candidates[j])
	})

	kept := candidates[:0:0]
	for i, c := range candidates {
		if i == 0 || c.Visits > 0 {
			kept = append(kept, c)
		}
	}
	return kept
}

func pruneRedundant(candidates []domain.CandidateMove, stats domain.PositionStats) []domain.CandidateMove {
	if stats.Winrate == nil || stats.Visits == nil {
		return candidates
	}
	kept := candidates[:0:0]
	for i, c := range candidates {
		near := *stats.Winrate-c.Winrate < 0.1
		explored := c.Visits > 0 && float64(*stats.Visits)/float64(c.Visits) < 20
		if i == 0 || (near && explored) {
			kept = append(kept, c)
		}
	}
	return kept
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(strings.ReplaceAll(s, " ", ""), 64)
	return f
}

func percent(s string) float64 {
	return 0.01 * atof(s)
}
