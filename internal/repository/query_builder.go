package repository

import (
	"fmt"
	"strings"
)

// whereClause accumulates positional conditions for PostgreSQL queries.
type whereClause struct {
	conds []string
	args  []interface{}
}

// add appends a condition whose single placeholder is written as %s.
func (w *whereClause) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, fmt.Sprintf("$%d", len(w.args))))
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
