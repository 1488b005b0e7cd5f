package review

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"sgf_review/internal/domain/sgf"
)

// Settings are the engine parameters a record implies.
type Settings struct {
	BoardSize int
	Handicap  int
	Komi      float64
}

func (s Settings) IsHandicap() bool {
	return s.Handicap > 1
}

func isJapanese(rules string) bool {
	switch strings.ToLower(rules) {
	case "jp", "japanese", "japan":
		return true
	}
	return false
}

// GameSettings reads size, handicap and komi off the root node. Engines
// score by area, so Japanese handicap games get the handicap added to komi.
func GameSettings(root *sgf.Node, log *zap.SugaredLogger) (Settings, error) {
	info, err := root.GameInfo()
	if err != nil {
		return Settings{}, err
	}

	s := Settings{BoardSize: info.BoardSize}
	if info.Handicap > 1 {
		s.Handicap = info.Handicap
	}
	if s.BoardSize != 19 {
		log.Warnw("board size is not 19, engine strength and accuracy may suffer", "size", s.BoardSize)
	}

	japanese := isJapanese(info.Rules)
	switch {
	case info.HasKomi:
		s.Komi = info.Komi
		if s.IsHandicap() && japanese {
			s.Komi += float64(s.Handicap)
			log.Infof("adjusting komi from %.1f to %.1f for Japanese rules with %d handicap", info.Komi, s.Komi, s.Handicap)
		}
	case s.IsHandicap():
		s.Komi = 0.5
	case japanese:
		s.Komi = 6.5
	default:
		s.Komi = 7.5
	}
	if !info.HasKomi {
		log.Warnf("komi not specified, assuming %.1f", s.Komi)
	}
	return s, nil
}

var commentRequest = regexp.MustCompile(`(?i)^\s*(analy[sz]e|variations)\b`)

// Requests are move numbers the record's own comments asked about.
type Requests struct {
	Analyze    map[int]bool
	Variations map[int]bool
}

// CommentRequests scans the main line for "analyze" and "variations"
// comments, optionally wiping every comment it passes.
func CommentRequests(game *sgf.SGF, wipe bool) (Requests, error) {
	req := Requests{Analyze: map[int]bool{}, Variations: map[int]bool{}}
	cur := sgf.NewCursor(game)
	for moveNum := 0; !cur.AtEnd(); moveNum++ {
		if err := cur.Next(0); err != nil {
			return req, err
		}
		comment, ok := cur.Node().Get("C")
		if !ok {
			continue
		}
		if m := commentRequest.FindStringSubmatch(comment); m != nil {
			req.Analyze[moveNum] = true
			if strings.EqualFold(m[1], "variations") {
				req.Variations[moveNum] = true
			}
		}
		if wipe {
			cur.Node().Delete("C")
		}
	}
	return req, nil
}
