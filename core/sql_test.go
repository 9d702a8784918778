package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScanQuery(t *testing.T) {
	cases := []struct {
		sql     string
		table   string
		columns []string
		limit   int
	}{
		{"SELECT * FROM people", "people", nil, -1},
		{"SELECT name, age FROM people", "people", []string{"name", "age"}, -1},
		{"SELECT age, name, age FROM people LIMIT 2", "people", []string{"age", "name", "age"}, 2},
		{"select p.id from people p", "people", []string{"id"}, -1},
		{"SELECT people.id FROM public.people", "public.people", []string{"id"}, -1},
		{`SELECT "Name" FROM people`, "people", []string{"Name"}, -1},
		{"SELECT NAME FROM people", "people", []string{"name"}, -1},
		{"SELECT * FROM people LIMIT ALL", "people", nil, -1},
		{"SELECT id FROM people LIMIT 0", "people", []string{"id"}, 0},
	}
	for _, c := range cases {
		t.Run(c.sql, func(t *testing.T) {
			q, err := ParseScanQuery(c.sql)
			require.NoError(t, err)
			assert.Equal(t, c.table, q.Table)
			assert.Equal(t, c.columns, q.Columns)
			assert.Equal(t, c.limit, q.Limit)
		})
	}
}

func TestParseScanQueryRejects(t *testing.T) {
	for _, sql := range []string{
		"",
		"SELEC id FROM people",
		"INSERT INTO people VALUES (1)",
		"SELECT 1",
		"SELECT id FROM a, b",
		"SELECT a.id FROM a JOIN b ON a.id = b.id",
		"SELECT id + 1 FROM people",
		"SELECT id AS key FROM people",
		"SELECT id FROM people WHERE age > 3",
		"SELECT age FROM people GROUP BY age",
		"SELECT id FROM people ORDER BY id",
		"SELECT id FROM people LIMIT 2 OFFSET 1",
		"SELECT DISTINCT id FROM people",
		"SELECT *, id FROM people",
		"SELECT x.id FROM people",
		"SELECT id FROM people; SELECT id FROM people",
		"SELECT id FROM people UNION SELECT id FROM people",
	} {
		t.Run(sql, func(t *testing.T) {
			_, err := ParseScanQuery(sql)
			assert.Error(t, err)
		})
	}
}
