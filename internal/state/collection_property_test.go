package state

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type item struct {
	ID    string
	Value int
}

func (i item) GetID() string { return i.ID }

var letters = []string{"a", "b", "c", "d", "e", "f"}

func genID() gopter.Gen {
	return gen.IntRange(0, len(letters)-1).Map(func(i int) string { return letters[i] })
}

func genIDs() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, len(letters)-1)).Map(func(idx []int) []string {
		out := make([]string, len(idx))
		for i, n := range idx {
			out[i] = letters[n]
		}
		return out
	})
}

func unique(c Collection[item]) bool {
	seen := map[string]bool{}
	for _, it := range c.Items() {
		if seen[it.ID] {
			return false
		}
		seen[it.ID] = true
	}
	return true
}

// **Feature: Resource Stores, Property 1: Append-if-absent never duplicates**
// However often and in whatever order creations settle, a collection holds
// each id at most once and keeps first-seen order.
func TestAppendIfAbsentProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("appended ids are unique and ordered by first appearance", prop.ForAll(
		func(idList []string) bool {
			c := NewCollection[item]()
			var order []string
			seen := map[string]bool{}
			for _, id := range idList {
				c = c.AppendIfAbsent(item{ID: id})
				if !seen[id] {
					seen[id] = true
					order = append(order, id)
				}
			}
			if !unique(c) || c.Len() != len(order) {
				return false
			}
			for i, it := range c.Items() {
				if it.ID != order[i] {
					return false
				}
			}
			return true
		},
		genIDs(),
	))

	properties.TestingRun(t)
}

// **Feature: Resource Stores, Property 2: Removal is final**
// After RemoveByID an id is absent, and every other item keeps its relative order.
func TestRemoveByIDProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("removed id is absent and the rest is untouched", prop.ForAll(
		func(idList []string, victim string) bool {
			var items []item
			for i, id := range idList {
				items = append(items, item{ID: id, Value: i})
			}
			before := NewCollection(items...)
			after := before.RemoveByID(victim)
			if after.Contains(victim) {
				return false
			}

			var want []item
			for _, it := range before.Items() {
				if it.ID != victim {
					want = append(want, it)
				}
			}
			got := after.Items()
			if len(got) != len(want) {
				return false
			}
			for i := range got {
				if got[i] != want[i] {
					return false
				}
			}
			return true
		},
		genIDs(),
		genID(),
	))

	properties.TestingRun(t)
}

// **Feature: Resource Stores, Property 3: Upsert replaces in place**
// Upserting an existing id keeps the length and position and swaps the value.
func TestUpsertProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("upsert keeps ids and replaces the value", prop.ForAll(
		func(idList []string, value int) bool {
			base := NewCollection[item]()
			for _, id := range idList {
				base = base.AppendIfAbsent(item{ID: id})
			}
			if base.Len() == 0 {
				return base.Upsert(item{ID: "z", Value: value}).Len() == 1
			}
			target := base.Items()[0].ID
			next := base.Upsert(item{ID: target, Value: value})
			return next.Len() == base.Len() &&
				next.Items()[0] == item{ID: target, Value: value} &&
				base.Items()[0].Value == 0
		},
		genIDs(),
		gen.IntRange(1, 1000),
	))

	properties.TestingRun(t)
}
