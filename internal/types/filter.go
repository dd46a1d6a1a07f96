package types

// QueryFilter is a generic pagination filter shared by repository List calls,
// mirroring the teacher's types.QueryFilter (Limit/Offset pair applied
// directly to SQL LIMIT/OFFSET).
type QueryFilter struct {
	Limit  int
	Offset int
}

// DefaultQueryFilter returns a filter with a sane default page size for the
// batch driver's candidate scan.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Limit: 100, Offset: 0}
}
