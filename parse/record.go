package parse

// FacultyRecord is one extracted junior faculty name.
type FacultyRecord struct {
	Institution string
	Name        string
	Page        int
}

// Result is the outcome of extracting one roster page.
type Result struct {
	Records []FacultyRecord
	Next    string // absolute URL of the next page, empty on the last page
	Skipped []*ParseError
}

// Names returns the record names in document order.
func Names(records []FacultyRecord) []string {
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Name)
	}
	return names
}
