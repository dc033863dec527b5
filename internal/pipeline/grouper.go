package pipeline

import "github.com/ginjaninja78/invoice-batch/internal/types"

// Group is the set of rows sharing one record identifier, in input order.
type Group struct {
	// RecordID is the shared identifier, or "" for rows that carry none.
	RecordID string

	// Rows holds the group's rows in the order they appeared in the input.
	Rows []types.Row
}

// GroupRows buckets rows by record identifier.
//
// Groups are returned in first-occurrence order of their identifier and each
// group keeps its rows in input order. No row is dropped; rows without an
// identifier share the "" group. No validation is performed.
func GroupRows(rows []types.Row) []Group {
	index := make(map[string]int)
	var groups []Group

	for _, row := range rows {
		id := row.RecordID()
		i, exists := index[id]
		if !exists {
			i = len(groups)
			index[id] = i
			groups = append(groups, Group{RecordID: id})
		}
		groups[i].Rows = append(groups[i].Rows, row)
	}

	return groups
}
