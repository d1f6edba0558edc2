package schema

import (
	"fmt"
	"strings"

	"db-wipe/internal/dialect"
	"db-wipe/internal/errs"
)

// DropOrder sorts tables so that each table comes after every table that
// references it: leaves first. It works in passes; a table is taken once
// all of its Dependents have been taken. Dependents outside the given set
// are never taken, so they pin the tables they reference.
//
// A pass that takes nothing fails with errs.KindCyclicDependency naming the
// tables left over.
func DropOrder(tables []*Table) ([]*Table, error) {
	sorted := make([]*Table, 0, len(tables))
	processed := make(map[dialect.Object]bool, len(tables))

	for len(sorted) < len(tables) {
		added := false

		for _, t := range tables {
			if processed[t.Object] {
				continue
			}

			free := true
			for _, dep := range t.Dependents {
				if dep == t.Object {
					continue
				}
				if !processed[dep] {
					free = false
					break
				}
			}

			if free {
				sorted = append(sorted, t)
				processed[t.Object] = true
				added = true
			}
		}

		if !added {
			return nil, cyclicError(tables, processed)
		}
	}

	return sorted, nil
}

func cyclicError(tables []*Table, processed map[dialect.Object]bool) error {
	var stuck []string
	for _, t := range tables {
		if !processed[t.Object] {
			stuck = append(stuck, t.String())
		}
	}
	return &errs.Error{
		Kind:    errs.KindCyclicDependency,
		Message: fmt.Sprintf("no droppable table left after %d of %d", len(tables)-len(stuck), len(tables)),
		Object:  strings.Join(stuck, ", "),
	}
}

// Objects unwraps tables back into their object names.
func Objects(tables []*Table) []dialect.Object {
	objs := make([]dialect.Object, len(tables))
	for i, t := range tables {
		objs[i] = t.Object
	}
	return objs
}
