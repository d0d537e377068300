package tail

import "bytes"

// Extract splits buf into complete lines, handling both LF and CRLF
// endings. Terminators are stripped from the returned lines.
//
// consumed is the number of bytes covered by the returned lines,
// terminators included. Any fragment after the last '\n' is left
// unconsumed so it can be completed by a later read; a buffer without a
// terminator yields no lines and zero consumed bytes.
func Extract(buf []byte) (lines []string, consumed int) {
	found, consumed := extractLines(buf, 0)
	for _, line := range found {
		lines = append(lines, line.Text)
	}
	return lines, consumed
}

// extractLines is Extract for a buffer that starts at file offset base.
func extractLines(buf []byte, base int64) ([]Line, int) {
	var (
		lines    []Line
		consumed int
	)
	for consumed < len(buf) {
		advance, line := scanLineWithCRLF(buf[consumed:])
		if advance == 0 {
			break
		}
		lines = append(lines, Line{Text: string(line), Offset: base + int64(consumed)})
		consumed += advance
	}
	return lines, consumed
}

// scanLineWithCRLF returns the first terminated line in data with its
// '\n' and any trailing '\r' removed, and the number of bytes it spans.
// It returns advance 0 when data holds no '\n'.
func scanLineWithCRLF(data []byte) (advance int, line []byte) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return 0, nil
	}
	line = data[0:i]
	// Strip trailing \r if present (CRLF)
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return i + 1, line
}
