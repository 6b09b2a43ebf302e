package automatic

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

var ErrBadLogFile = errors.New("bad autoplay log file")

// AnalyzeLogFile reads an autoplay CSV log and summarizes it.
func AnalyzeLogFile(filepath string) (*Summary, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return AnalyzeLog(file)
}

// AnalyzeLog summarizes an autoplay log read from r.
func AnalyzeLog(r io.Reader) (*Summary, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 9

	// Record looks like:
	// gameID,player1,player2,first,winner,plies,moves,p1nodes,p2nodes
	var names [2]string
	var results []GameResult
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadLogFile, err)
		}
		if record[0] == "gameID" {
			// this is the header line
			continue
		}
		res, err := parseRecord(record)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d: %w", ErrBadLogFile, line, err)
		}
		if names[0] == "" {
			names = [2]string{record[1], record[2]}
		}
		results = append(results, res)
	}
	return Summarize(names, results), nil
}

func parseRecord(record []string) (GameResult, error) {
	var res GameResult
	var err error
	if res.GameID, err = strconv.Atoi(record[0]); err != nil {
		return res, err
	}
	res.First = record[3]
	res.Winner = record[4]
	if res.Plies, err = strconv.Atoi(record[5]); err != nil {
		return res, err
	}
	res.Moves = record[6]
	for i := range res.Nodes {
		if res.Nodes[i], err = strconv.ParseUint(record[7+i], 10, 64); err != nil {
			return res, err
		}
	}
	return res, nil
}
