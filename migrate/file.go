package migrate

import (
	"bufio"
	"fmt"
	"strings"
)

const (
	upMarker   = "-- Up Migration"
	downMarker = "-- Down Migration (Rollback)"
)

// File is the content of one migration file.
type File struct {
	Name        string
	Database    string
	Description string
	Up          []string
	Down        []string
}

// Bytes renders the file with its up and down sections.
func (f File) Bytes() []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "-- Migration: %s\n", f.Name)
	fmt.Fprintf(&sb, "-- Database: %s\n", f.Database)
	fmt.Fprintf(&sb, "-- Description: %s\n\n", f.Description)

	sb.WriteString(upMarker + "\n")
	sb.WriteString("-- ============\n")
	for _, stmt := range f.Up {
		sb.WriteString(stmt + "\n")
	}

	sb.WriteString("\n" + downMarker + "\n")
	sb.WriteString("-- =======================\n")
	for _, stmt := range f.Down {
		sb.WriteString(stmt + "\n")
	}
	return []byte(sb.String())
}

// ParseFile reads a migration file written by File.Bytes.
func ParseFile(name string, data []byte) (File, error) {
	f := File{Name: name}
	content := string(data)

	head, rest, ok := strings.Cut(content, upMarker)
	if !ok {
		return f, fmt.Errorf("migration file %s does not contain up migration section", name)
	}
	up, down, ok := strings.Cut(rest, downMarker)
	if !ok {
		return f, fmt.Errorf("migration file %s does not contain rollback section", name)
	}

	scanner := bufio.NewScanner(strings.NewReader(head))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if v, ok := strings.CutPrefix(line, "-- Database:"); ok {
			f.Database = strings.TrimSpace(v)
		}
		if v, ok := strings.CutPrefix(line, "-- Description:"); ok {
			f.Description = strings.TrimSpace(v)
		}
	}
	f.Up = statements(up)
	f.Down = statements(down)
	return f, nil
}

// statements splits SQL into statements ending with a semicolon at the end
// of a line. Comment lines are skipped.
func statements(sql string) []string {
	var (
		out     []string
		current []string
	)
	for _, line := range strings.Split(sql, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current = append(current, trimmed)
		if strings.HasSuffix(trimmed, ";") {
			out = append(out, strings.Join(current, "\n"))
			current = nil
		}
	}
	if len(current) > 0 {
		out = append(out, strings.Join(current, "\n"))
	}
	return out
}
