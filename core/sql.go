package core

import (
	"strings"

	"github.com/cockroachdb/errors"
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ScanQuery is the part of a SELECT statement a data source can answer by
// itself: one table, a list of plain column names and an optional row limit.
type ScanQuery struct {
	Table   string
	Columns []string // nil for SELECT *
	Limit   int      // -1 when absent
}

// ParseScanQuery parses `SELECT col[, col...] FROM [schema.]table [LIMIT n]`
// and `SELECT * FROM table`. Anything that needs an executor (joins,
// expressions, aliases, filters, grouping, ordering) is rejected.
//
// Identifiers follow PostgreSQL rules: unquoted names are folded to lower
// case, double-quoted names keep their case.
func ParseScanQuery(sql string) (*ScanQuery, error) {
	result, err := pg_query.Parse(sql)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse SQL")
	}
	if len(result.Stmts) != 1 {
		return nil, errors.Newf("expected exactly one statement, got %d", len(result.Stmts))
	}

	stmt := result.Stmts[0].Stmt.GetSelectStmt()
	if stmt == nil {
		return nil, errors.New("only SELECT statements are supported")
	}
	if err := checkScanOnly(stmt); err != nil {
		return nil, err
	}

	query := &ScanQuery{Limit: -1}
	alias, err := parseScanFrom(stmt.FromClause, query)
	if err != nil {
		return nil, err
	}
	if err := parseScanTargets(stmt.TargetList, query, alias); err != nil {
		return nil, err
	}
	if stmt.LimitCount != nil {
		limit, err := parseScanLimit(stmt.LimitCount)
		if err != nil {
			return nil, err
		}
		query.Limit = limit
	}

	GetTracer().Debug(TraceComponentCLI, "Parsed scan query", TraceContext(
		"table", query.Table, "columns", query.Columns, "limit", query.Limit))
	return query, nil
}

func checkScanOnly(stmt *pg_query.SelectStmt) error {
	switch {
	case stmt.Op != pg_query.SetOperation_SETOP_NONE:
		return errors.New("set operations are not supported")
	case stmt.WithClause != nil:
		return errors.New("WITH is not supported")
	case len(stmt.DistinctClause) > 0:
		return errors.New("DISTINCT is not supported")
	case stmt.WhereClause != nil:
		return errors.New("WHERE is not supported: a scan returns every row")
	case len(stmt.GroupClause) > 0, stmt.HavingClause != nil:
		return errors.New("GROUP BY is not supported")
	case len(stmt.SortClause) > 0:
		return errors.New("ORDER BY is not supported")
	case stmt.LimitOffset != nil:
		return errors.New("OFFSET is not supported")
	}
	return nil
}

// parseScanFrom fills in the table name and returns the alias the select
// list may use as a qualifier.
func parseScanFrom(from []*pg_query.Node, query *ScanQuery) (string, error) {
	if len(from) == 0 {
		return "", errors.New("missing FROM clause")
	}
	if len(from) > 1 {
		return "", errors.New("joins are not supported")
	}
	rangeVar := from[0].GetRangeVar()
	if rangeVar == nil {
		return "", errors.New("FROM must name a single table")
	}

	var parts []string
	if rangeVar.Catalogname != "" {
		parts = append(parts, rangeVar.Catalogname)
	}
	if rangeVar.Schemaname != "" {
		parts = append(parts, rangeVar.Schemaname)
	}
	parts = append(parts, rangeVar.Relname)
	query.Table = strings.Join(parts, ".")

	if rangeVar.Alias != nil && rangeVar.Alias.Aliasname != "" {
		return rangeVar.Alias.Aliasname, nil
	}
	return rangeVar.Relname, nil
}

func parseScanTargets(targets []*pg_query.Node, query *ScanQuery, qualifier string) error {
	for _, target := range targets {
		resTarget := target.GetResTarget()
		if resTarget == nil || resTarget.Val == nil {
			return errors.New("unsupported select list entry")
		}
		if resTarget.Name != "" {
			return errors.Newf("column aliases are not supported: %s", resTarget.Name)
		}
		columnRef := resTarget.Val.GetColumnRef()
		if columnRef == nil {
			return errors.New("only plain column references can be selected")
		}

		fields := columnRef.Fields
		if len(fields) == 2 {
			tableStr := fields[0].GetString_()
			if tableStr == nil || tableStr.Sval != qualifier {
				return errors.New("unknown table qualifier in select list")
			}
			fields = fields[1:]
		}
		if len(fields) != 1 {
			return errors.New("unsupported column reference")
		}

		if fields[0].GetAStar() != nil {
			if len(targets) != 1 {
				return errors.New("* cannot be combined with other columns")
			}
			query.Columns = nil
			return nil
		}
		columnStr := fields[0].GetString_()
		if columnStr == nil {
			return errors.New("unsupported column reference")
		}
		query.Columns = append(query.Columns, columnStr.Sval)
	}
	if len(targets) == 0 {
		return errors.New("empty select list")
	}
	return nil
}

func parseScanLimit(node *pg_query.Node) (int, error) {
	if aConst := node.GetAConst(); aConst != nil {
		if aConst.Isnull {
			return -1, nil
		}
		if ival := aConst.GetIval(); ival != nil {
			if ival.Ival < 0 {
				return 0, errors.New("LIMIT must not be negative")
			}
			return int(ival.Ival), nil
		}
	}
	return 0, errors.New("LIMIT must be an integer constant")
}
