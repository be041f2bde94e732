package rules

// ParseFields splits a rule line on delim, honoring backslash escapes so a
// field may contain the delimiter (and literal backslashes as \\). The
// result always has at least one field; a trailing delimiter yields a final
// empty field.
func ParseFields(line string, delim byte) []string {
	fields := make([]string, 0, 3)
	var current []byte
	escaped := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case escaped:
			current = append(current, c)
			escaped = false
		case c == '\\':
			escaped = true
		case c == delim:
			fields = append(fields, string(current))
			current = current[:0]
		default:
			current = append(current, c)
		}
	}

	return append(fields, string(current))
}
