package export

// Report defines tabular export content rendered by the exporters.
type Report struct {
	Title   string
	Columns []string
	Rows    [][]string
}
