package project

// TableSource is the stored data of one table. Open may be called any number
// of times, each call starts again from the first record.
type TableSource interface {
	Open() (RowReader, error)
	// Location is the file or object the rows come from, used in errors and plans
	Location() string
}

// RowReader yields the records of one open TableSource in stored order.
type RowReader interface {
	// Read returns io.EOF after the last record
	Read() ([]int64, error)
	Close() error
}
