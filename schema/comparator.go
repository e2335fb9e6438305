package schema

import "slices"

type ColumnPair struct{ Old, New Column }
type IndexPair struct{ Old, New Index }
type ForeignKeyPair struct{ Old, New ForeignKey }

// Comparator computes the delta between the current and declared state of
// a table. Every call recomputes from the table, so results always reflect
// the latest declarations.
type Comparator struct {
	table *Table
}

func (c *Comparator) AddedColumns() []Column {
	var out []Column
	for _, col := range c.table.declared.Columns {
		if _, ok := c.table.current.Column(col.Name); !ok {
			out = append(out, col)
		}
	}
	return out
}

func (c *Comparator) DroppedColumns() []Column {
	var out []Column
	for _, col := range c.table.current.Columns {
		if _, ok := c.table.declared.Column(col.Name); !ok {
			out = append(out, col)
		}
	}
	return out
}

func (c *Comparator) AlteredColumns() []ColumnPair {
	var out []ColumnPair
	for _, col := range c.table.declared.Columns {
		if old, ok := c.table.current.Column(col.Name); ok && !old.Equal(col) {
			out = append(out, ColumnPair{Old: old, New: col})
		}
	}
	return out
}

func (c *Comparator) AddedIndexes() []Index {
	var out []Index
	for _, idx := range c.table.declared.Indexes {
		if _, ok := c.table.current.Index(idx.Name); !ok {
			out = append(out, idx)
		}
	}
	return out
}

func (c *Comparator) DroppedIndexes() []Index {
	var out []Index
	for _, idx := range c.table.current.Indexes {
		if _, ok := c.table.declared.Index(idx.Name); !ok {
			out = append(out, idx)
		}
	}
	return out
}

func (c *Comparator) AlteredIndexes() []IndexPair {
	var out []IndexPair
	for _, idx := range c.table.declared.Indexes {
		if old, ok := c.table.current.Index(idx.Name); ok && !old.Equal(idx) {
			out = append(out, IndexPair{Old: old, New: idx})
		}
	}
	return out
}

func (c *Comparator) AddedForeignKeys() []ForeignKey {
	var out []ForeignKey
	for _, fk := range c.table.declared.ForeignKeys {
		if _, ok := c.table.current.ForeignKey(fk.Name); !ok {
			out = append(out, fk)
		}
	}
	return out
}

func (c *Comparator) DroppedForeignKeys() []ForeignKey {
	var out []ForeignKey
	for _, fk := range c.table.current.ForeignKeys {
		if _, ok := c.table.declared.ForeignKey(fk.Name); !ok {
			out = append(out, fk)
		}
	}
	return out
}

func (c *Comparator) AlteredForeignKeys() []ForeignKeyPair {
	var out []ForeignKeyPair
	for _, fk := range c.table.declared.ForeignKeys {
		if old, ok := c.table.current.ForeignKey(fk.Name); ok && !old.Equal(fk) {
			out = append(out, ForeignKeyPair{Old: old, New: fk})
		}
	}
	return out
}

// PrimaryKeysChanged reports a different primary key on an existing table
// that is still declared.
func (c *Comparator) PrimaryKeysChanged() bool {
	t := c.table
	if !t.exists || t.dropped {
		return false
	}
	return !slices.Equal(t.current.PrimaryKeys, t.declared.PrimaryKeys)
}

// NumChanges counts the entries of every delta list.
func (c *Comparator) NumChanges() int {
	n := len(c.AddedColumns()) + len(c.DroppedColumns()) + len(c.AlteredColumns()) +
		len(c.AddedIndexes()) + len(c.DroppedIndexes()) + len(c.AlteredIndexes()) +
		len(c.AddedForeignKeys()) + len(c.DroppedForeignKeys()) + len(c.AlteredForeignKeys())
	if c.PrimaryKeysChanged() {
		n++
	}
	return n
}

func (c *Comparator) HasChanges() bool {
	if c.table.dropped {
		return c.table.exists
	}
	return c.NumChanges() > 0
}
