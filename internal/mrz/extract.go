package mrz

// Extract returns the characters of raw covered by pos, treating raw as
// consecutive rows of rowLength characters. It does not check bounds; pairing a
// layout with a string of the right length is the caller's job.
func Extract(raw string, rowLength int, pos Position) string {
	offset := (pos.Row - 1) * rowLength
	return raw[offset+pos.Start-1 : offset+pos.End]
}

// Field extracts pos from raw using the layout's row length.
func (l Layout) Field(raw string, pos Position) string {
	return Extract(raw, l.RowLength, pos)
}

// FieldSafe is Field for strings whose length may be off by a few characters.
// Positions running past the end of raw yield the part that exists, or "".
func (l Layout) FieldSafe(raw string, pos Position) string {
	offset := (pos.Row - 1) * l.RowLength
	start := offset + pos.Start - 1
	end := offset + pos.End
	if start < 0 || start >= len(raw) || end <= start {
		return ""
	}
	if end > len(raw) {
		end = len(raw)
	}
	return raw[start:end]
}
