package option

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryOption mutates a gorm query before it is executed by a repository.
type QueryOption func(db *gorm.DB) *gorm.DB

type Operator string

const (
	EQ      Operator = "="
	NEQ     Operator = "<>"
	GT      Operator = ">"
	GTE     Operator = ">="
	LT      Operator = "<"
	LTE     Operator = "<="
	IN      Operator = "IN"
	IsNull  Operator = "IS NULL"
	NotNull Operator = "IS NOT NULL"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

// Apply runs every option against db in order.
func Apply(db *gorm.DB, opts ...QueryOption) *gorm.DB {
	for _, opt := range opts {
		if opt != nil {
			db = opt(db)
		}
	}
	return db
}

// WithSortBy orders by SortBy (created_at when empty). Columns outside Allow
// are ignored when Allow is set.
func WithSortBy(s QuerySortBy) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		column := s.SortBy
		if column == "" {
			column = "created_at"
		}
		if s.Allow != nil && !s.Allow[column] {
			return db
		}

		desc := strings.EqualFold(s.OrderBy, "desc")
		return db.Order(clause.OrderByColumn{
			Column: clause.Column{Name: column},
			Desc:   desc,
		})
	}
}

func ApplyOperator(c Condition) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		column := clause.Column{Name: c.Field}
		switch c.Operator {
		case IsNull, NotNull:
			return db.Where(clause.Expr{SQL: "? " + string(c.Operator), Vars: []any{column}})
		case IN:
			return db.Where(clause.IN{Column: column, Values: toValues(c.Value)})
		case NEQ, GT, GTE, LT, LTE:
			return db.Where(clause.Expr{SQL: "? " + string(c.Operator) + " ?", Vars: []any{column, c.Value}})
		default:
			return db.Where(clause.Eq{Column: column, Value: c.Value})
		}
	}
}

func WithLimit(limit int) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	}
}

func WithLockingUpdate() QueryOption {
	return LockingUpdate
}

// LockingUpdate is a gorm scope adding SELECT ... FOR UPDATE. Dialects
// without row locks (sqlite) drop the clause.
func LockingUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}

func toValues(v any) []any {
	switch vals := v.(type) {
	case []any:
		return vals
	case []string:
		out := make([]any, 0, len(vals))
		for _, s := range vals {
			out = append(out, s)
		}
		return out
	default:
		return []any{v}
	}
}
