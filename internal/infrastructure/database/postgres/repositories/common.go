package repositories

// rowScanner abstracts pgx.Row and pgx.Rows so one scan helper serves
// single-row and multi-row queries alike.
type rowScanner interface {
	Scan(dest ...interface{}) error
}
