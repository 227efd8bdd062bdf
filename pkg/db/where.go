package db

import (
	"fmt"
	"strings"
)

// Where accumulates AND-ed clauses with positional arguments. Each clause
// carries one %d verb that receives the argument's position.
type Where struct {
	Clauses []string
	Args    []any
}

func (w *Where) Add(clause string, arg any) {
	w.Args = append(w.Args, arg)
	w.Clauses = append(w.Clauses, fmt.Sprintf(clause, len(w.Args)))
}

// AddRaw appends a clause without an argument.
func (w *Where) AddRaw(clause string) {
	w.Clauses = append(w.Clauses, clause)
}

// Arg appends an argument for a clause built by the caller and returns its
// placeholder.
func (w *Where) Arg(v any) string {
	w.Args = append(w.Args, v)
	return fmt.Sprintf("$%d", len(w.Args))
}

func (w *Where) String() string {
	if len(w.Clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.Clauses, " AND ") + "\n"
}

// Page appends LIMIT/OFFSET; non-positive values are left out.
func (w *Where) Page(sql string, limit, offset int) (string, []any) {
	args := append([]any(nil), w.Args...)
	if limit > 0 {
		args = append(args, limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		sql += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return sql, args
}

// Like wraps s for a case-insensitive substring match.
func Like(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}
