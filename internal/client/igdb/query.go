package igdb

import (
	"fmt"
	"strconv"
	"strings"
)

// Query assembles an Apicalypse request body: a field projection plus optional
// where/limit/offset clauses, each terminated by a semicolon.
type Query struct {
	fields []string
	where  []string
	limit  int
	offset int
}

func NewQuery(fields ...string) *Query {
	return &Query{fields: fields, offset: -1}
}

func (q *Query) Where(cond string) *Query {
	if strings.TrimSpace(cond) != "" {
		q.where = append(q.where, cond)
	}
	return q
}

func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

func (q *Query) Offset(n int) *Query {
	q.offset = n
	return q
}

func (q *Query) String() string {
	var b strings.Builder
	if len(q.fields) > 0 {
		b.WriteString("fields ")
		b.WriteString(strings.Join(q.fields, ", "))
		b.WriteString("; ")
	}
	if len(q.where) > 0 {
		b.WriteString("where ")
		b.WriteString(strings.Join(q.where, " & "))
		b.WriteString("; ")
	}
	if q.limit > 0 {
		b.WriteString("limit ")
		b.WriteString(strconv.Itoa(q.limit))
		b.WriteString("; ")
	}
	if q.offset >= 0 {
		b.WriteString("offset ")
		b.WriteString(strconv.Itoa(q.offset))
		b.WriteString("; ")
	}
	return strings.TrimSpace(b.String())
}

// WhereIDIn renders the membership predicate used by chunked id lookups.
func WhereIDIn(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return fmt.Sprintf("id = (%s)", strings.Join(parts, ","))
}
