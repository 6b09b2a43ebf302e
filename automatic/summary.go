package automatic

import (
	"fmt"
	"io"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/domino14/connectfour/stats"
)

const (
	confidenceLevel = 95.0
	histogramBins   = 10
)

type BotRecord struct {
	Name      string  `yaml:"name"`
	Wins      int     `yaml:"wins"`
	WentFirst int     `yaml:"went-first"`
	MeanNodes float64 `yaml:"mean-nodes-per-game"`
}

// Summary is the outcome of a set of games between two bots. Score is the
// first bot's share of the points, counting a draw as half a win.
type Summary struct {
	Games          int          `yaml:"games"`
	Bots           [2]BotRecord `yaml:"bots"`
	Draws          int          `yaml:"draws"`
	FirstMoverWins int          `yaml:"first-mover-wins"`
	Score          float64      `yaml:"score"`
	ScoreLow       float64      `yaml:"score-low"`
	ScoreHigh      float64      `yaml:"score-high"`
	MeanPlies      float64      `yaml:"mean-plies"`
	StdevPlies     float64      `yaml:"stdev-plies"`

	plies []float64
}

// Summarize totals the results of games between the bots named in names.
func Summarize(names [2]string, results []GameResult) *Summary {
	s := &Summary{Games: len(results)}
	nodes := [2]float64{}
	for i, n := range names {
		s.Bots[i].Name = n
	}
	for _, r := range results {
		s.plies = append(s.plies, float64(r.Plies))
		for i := range s.Bots {
			if r.First == s.Bots[i].Name {
				s.Bots[i].WentFirst++
			}
			if r.Winner == s.Bots[i].Name {
				s.Bots[i].Wins++
			}
			nodes[i] += float64(r.Nodes[i])
		}
		switch r.Winner {
		case "":
			s.Draws++
		case r.First:
			s.FirstMoverWins++
		}
	}
	if s.Games == 0 {
		return s
	}
	for i := range s.Bots {
		s.Bots[i].MeanNodes = nodes[i] / float64(s.Games)
	}
	points := float64(s.Bots[0].Wins) + float64(s.Draws)/2
	s.Score = points / float64(s.Games)
	s.ScoreLow, s.ScoreHigh = stats.WilsonInterval(points, s.Games, confidenceLevel)
	s.MeanPlies, s.StdevPlies = stat.MeanStdDev(s.plies, nil)
	if s.Games == 1 {
		s.StdevPlies = 0
	}
	return s
}

func (s *Summary) YAML() (string, error) {
	bts, err := yaml.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(bts), nil
}

// FprintHistogram draws the distribution of game lengths.
func (s *Summary) FprintHistogram(w io.Writer) error {
	if len(s.plies) == 0 {
		return nil
	}
	return histogram.Fprint(w, histogram.Hist(histogramBins, s.plies), histogram.Linear(40))
}

func (s *Summary) String() string {
	var sb strings.Builder
	y, err := s.YAML()
	if err != nil {
		return err.Error()
	}
	sb.WriteString(y)
	if len(s.plies) > 0 {
		fmt.Fprintf(&sb, "game length (plies):\n")
		if err := s.FprintHistogram(&sb); err != nil {
			return err.Error()
		}
	}
	return sb.String()
}
