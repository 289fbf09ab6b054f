package assignment

// Key is the composite natural key (name, course, due date) that
// identifies a record for de-duplication. The due date is normalized to
// YYYY-MM-DD so the two accepted textual formats compare equal. For a
// record with multiple course tags only the first participates in the key;
// multi-tag matching has to happen at the record level.
type Key struct {
	Name    string
	Course  string
	DueDate string
}

// KeyOf computes the record's key. A due date that fails to parse is kept
// verbatim so two equally-malformed records still collide instead of
// slipping past the dedup check.
func KeyOf(a Assignment) Key {
	due := a.DueDate
	if t, err := ParseDate(a.DueDate); err == nil {
		due = FormatDate(t)
	}
	return Key{Name: a.Name, Course: a.Course(), DueDate: due}
}
