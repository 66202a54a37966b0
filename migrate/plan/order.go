package plan

import (
	"slices"
	"sort"

	"github.com/satishbabariya/godal/schema"
)

// Deferred is a foreign key left out of its CREATE TABLE because the
// referenced table cannot exist yet.
type Deferred struct {
	Table string
	FK    schema.ForeignKey
}

// SortTables orders tables so that each one follows the tables its foreign
// keys reference. References to tables outside the set are ignored. When
// forwardRefs is false, self references and the edges that close a cycle
// are returned as deferred foreign keys; otherwise every key stays inline.
func SortTables(tables []*schema.Table, forwardRefs bool) ([]*schema.Table, []Deferred) {
	index := make(map[string]int, len(tables))
	for i, t := range tables {
		index[t.Name()] = i
	}

	// Build dependency graph: graph[r] lists the tables referencing r
	inDegree := make([]int, len(tables))
	graph := make([][]int, len(tables))
	var deferred []Deferred
	for i, t := range tables {
		for _, fk := range t.ForeignKeys() {
			r, ok := index[fk.RefTable]
			if !ok {
				continue
			}
			if r == i {
				if !forwardRefs {
					deferred = append(deferred, Deferred{Table: t.Name(), FK: fk})
				}
				continue
			}
			graph[r] = append(graph[r], i)
			inDegree[i]++
		}
	}

	// Kahn's algorithm; the queue is kept sorted by declaration order
	done := make([]bool, len(tables))
	result := make([]*schema.Table, 0, len(tables))
	var queue []int
	for i := range tables {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}
	for len(result) < len(tables) {
		if len(queue) == 0 {
			// Cycle: release the earliest remaining table and defer its
			// references to tables that are not created yet.
			next := slices.Index(done, false)
			for _, fk := range tables[next].ForeignKeys() {
				r, ok := index[fk.RefTable]
				if !ok || r == next || done[r] {
					continue
				}
				if !forwardRefs {
					deferred = append(deferred, Deferred{Table: tables[next].Name(), FK: fk})
				}
			}
			// Drop the edges into next so it is not released twice.
			for r := range graph {
				graph[r] = slices.DeleteFunc(graph[r], func(d int) bool { return d == next })
			}
			inDegree[next] = 0
			queue = append(queue, next)
		}

		sort.Ints(queue)
		current := queue[0]
		queue = queue[1:]
		if done[current] {
			continue
		}
		done[current] = true
		result = append(result, tables[current])

		for _, dependent := range graph[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}
	return result, deferred
}

func rank(op Op) int {
	switch op.(type) {
	case CreateTable:
		return 0
	case AddColumn, RenameColumn, AlterColumnType, ConvertColumn, RedefineTable:
		return 1
	case AddIndex:
		return 2
	case AddConstraint:
		return 3
	case DropConstraint:
		return 4
	case DropIndex:
		return 5
	case DropColumn:
		return 6
	case DropTable:
		return 7
	}
	return 8
}

// Order sorts steps so that creations come first, followed by other
// additive steps, with destructive steps last. The relative order of steps
// of the same kind is kept, so CreateTable steps must already be sorted with
// SortTables.
func Order(steps []Step) []Step {
	out := slices.Clone(steps)
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i].Op) < rank(out[j].Op)
	})
	return out
}
