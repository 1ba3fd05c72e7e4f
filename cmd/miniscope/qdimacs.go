package miniscope

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-air/gini/z"

	"github.com/go-qbf/miniscope/pkg/qbf"
)

var (
	commentLine    = regexp.MustCompile(`^c(\s.*)?$`)
	headerLine     = regexp.MustCompile(`^p\s+cnf\s+\d+\s+\d+$`)
	quantifierLine = regexp.MustCompile(`^[ae](\s+\d+)*\s+0$`)
	clauseLine     = regexp.MustCompile(`^(-?\d+\s+)*0$`)
	cleanInput     = regexp.MustCompile(`\s+`)
)

// ParseQDimacs reads a QBF in QDIMACS format into a matrix over a
// prenex prefix.
// see: https://www.qbflib.org/qdimacs.html
func ParseQDimacs(reader io.Reader) (*qbf.Matrix[*qbf.HierarchicalPrefix], error) {
	r := bufio.NewReader(reader)

	var matrix *qbf.Matrix[*qbf.HierarchicalPrefix]
	numVariables := 0
	numClauses := 0

	for {
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("error reading qdimacs data: %w", err)
		}
		eof := err != nil
		line = cleanInput.ReplaceAllString(strings.TrimSpace(line), " ")

		switch {
		case line == "" || commentLine.MatchString(line):
		case headerLine.MatchString(line):
			if matrix != nil {
				return nil, fmt.Errorf("invalid statement: (%s). Header already given", line)
			}
			problem := strings.Split(line, " ")
			numVariables, _ = strconv.Atoi(problem[2])
			numClauses, _ = strconv.Atoi(problem[3])
			matrix = qbf.NewMatrix(qbf.NewHierarchicalPrefix(numVariables))
		case quantifierLine.MatchString(line):
			if matrix == nil {
				return nil, fmt.Errorf("invalid qdimacs format: missing header 'p cnf <variables> <clauses>'")
			}
			if matrix.OrigClauseNum != 0 {
				return nil, fmt.Errorf("invalid statement: (%s). Quantifiers must precede clauses", line)
			}
			if err := addQuantifier(matrix.Prefix, line, numVariables); err != nil {
				return nil, fmt.Errorf("invalid quantifier (%s): %w", line, err)
			}
		case clauseLine.MatchString(line):
			if matrix == nil {
				return nil, fmt.Errorf("invalid qdimacs format: missing header 'p cnf <variables> <clauses>'")
			}
			lits, err := parseLiterals(strings.Split(line, " "), numVariables)
			if err != nil {
				return nil, fmt.Errorf("invalid clause (%s): %w", line, err)
			}
			if _, err := matrix.AddClause(lits...); err != nil {
				return nil, fmt.Errorf("invalid clause (%s): %w", line, err)
			}
		default:
			return nil, fmt.Errorf("invalid qdimacs command: %s", line)
		}

		if eof {
			break
		}
	}

	if matrix == nil {
		return nil, fmt.Errorf("invalid format: no header found")
	}
	if matrix.OrigClauseNum != numClauses {
		return nil, fmt.Errorf("invalid format: number of clauses in header differ from the total number of clauses")
	}
	// variables declared in the header but never used stay free
	matrix.Prefix.Variables().Import(z.Var(numVariables))
	return matrix, nil
}

func addQuantifier(prefix *qbf.HierarchicalPrefix, line string, numVariables int) error {
	terms := strings.Split(line, " ")
	quantifier := qbf.Existential
	if terms[0] == "a" {
		quantifier = qbf.Universal
	}
	lits, err := parseLiterals(terms[1:], numVariables)
	if err != nil {
		return err
	}
	scope := prefix.NewScope(quantifier)
	for _, m := range lits {
		if err := prefix.AddVariable(m.Var(), scope); err != nil {
			return err
		}
	}
	return nil
}

// parseLiterals converts zero terminated DIMACS literals.
func parseLiterals(terms []string, numVariables int) ([]z.Lit, error) {
	if terms[len(terms)-1] != "0" {
		return nil, fmt.Errorf("does not end with 0")
	}
	terms = terms[:len(terms)-1]
	lits := make([]z.Lit, 0, len(terms))
	for _, term := range terms {
		d, err := strconv.Atoi(term)
		if err != nil {
			return nil, fmt.Errorf("%s is not a number", term)
		}
		if d == 0 {
			return nil, fmt.Errorf("0 is not a valid variable")
		}
		if d > numVariables || d < -numVariables {
			return nil, fmt.Errorf("%s is not a valid variable", term)
		}
		lits = append(lits, z.Dimacs2Lit(d))
	}
	return lits, nil
}
