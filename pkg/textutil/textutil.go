// Package textutil provides the byte-level text helpers the scanners
// share: binary detection and line counting over blob contents.
package textutil

import "bytes"

// binarySniffLen bounds how many leading bytes IsBinary inspects. Git
// applies the same 8000-byte heuristic when deciding whether a file is
// diffable.
const binarySniffLen = 8000

// IsBinary reports whether data looks like binary content: a null byte
// anywhere in the sniff window.
func IsBinary(data []byte) bool {
	if len(data) > binarySniffLen {
		data = data[:binarySniffLen]
	}

	return bytes.IndexByte(data, 0x00) >= 0
}

// CountLines counts the lines in data. A trailing line without a newline
// still counts; empty data has zero lines.
func CountLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}

	n := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		n++
	}

	return n
}
