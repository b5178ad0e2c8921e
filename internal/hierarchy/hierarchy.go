// Package hierarchy computes category breadcrumb paths and rolled-up
// product counts over the catalog's single-parent category chain. All
// functions are pure: inputs are never mutated, and running a computation
// twice on the same input yields identical output.
package hierarchy

import (
	"fmt"
	"strings"

	"github.com/primecart/search-sync/internal/domain"
)

// ErrCycle is returned when the parent chain revisits a category. A cyclic
// chain is malformed catalog data, not a traversal to follow.
var ErrCycle = fmt.Errorf("category hierarchy contains a parent cycle")

// ByID builds a lookup map from a flat category list.
func ByID(categories []domain.Category) map[string]*domain.Category {
	byID := make(map[string]*domain.Category, len(categories))
	for i := range categories {
		byID[categories[i].ID] = &categories[i]
	}
	return byID
}

// Ancestors walks the parent chain of the category with the given id and
// returns its ancestors as crumbs in root-to-parent order, excluding the
// category itself. A root category returns an empty breadcrumb. Parents
// missing from byID terminate the walk (treated as roots).
func Ancestors(id string, byID map[string]*domain.Category) (domain.Breadcrumb, error) {
	cat, ok := byID[id]
	if !ok {
		return nil, nil
	}

	visited := map[string]bool{cat.ID: true}
	var reversed []domain.Crumb

	for cat.ParentID != nil {
		parent, ok := byID[*cat.ParentID]
		if !ok {
			break
		}
		if visited[parent.ID] {
			return nil, fmt.Errorf("%w: revisited %s", ErrCycle, parent.ID)
		}
		visited[parent.ID] = true

		reversed = append(reversed, domain.Crumb{ID: parent.ID, Name: parent.Name})
		cat = parent
	}

	if len(reversed) == 0 {
		return nil, nil
	}

	crumbs := make(domain.Breadcrumb, len(reversed))
	for i, c := range reversed {
		crumbs[len(reversed)-1-i] = c
	}
	return crumbs, nil
}

// Path returns the category's full name path in root-to-leaf order. The
// category's own name is always the last element.
func Path(id string, byID map[string]*domain.Category) ([]string, error) {
	cat, ok := byID[id]
	if !ok {
		return nil, nil
	}

	crumbs, err := Ancestors(id, byID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(crumbs)+1)
	for _, c := range crumbs {
		names = append(names, c.Name)
	}
	return append(names, cat.Name), nil
}

// DisplayPath returns the breadcrumb shown to a user: the parent's path
// joined with domain.PathSeparator. The second return value is false for
// root categories, which have no breadcrumb at all (absent, not "").
func DisplayPath(id string, byID map[string]*domain.Category) (string, bool, error) {
	crumbs, err := Ancestors(id, byID)
	if err != nil {
		return "", false, err
	}
	if len(crumbs) == 0 {
		return "", false, nil
	}

	names := make([]string, len(crumbs))
	for i, c := range crumbs {
		names[i] = c.Name
	}
	return strings.Join(names, domain.PathSeparator), true, nil
}

// DirectCounts counts, per category id, the published products directly
// assigned to it. A product assigned to multiple categories increments each
// of them.
func DirectCounts(refs []domain.ProductCategoryRef) map[string]int {
	counts := make(map[string]int)
	for _, ref := range refs {
		if ref.Status != domain.ProductStatusPublished {
			continue
		}
		for _, catID := range ref.CategoryIDs {
			counts[catID]++
		}
	}
	return counts
}

// Aggregate rolls direct product counts up the category tree: each
// category's aggregated count is its own direct count plus the aggregated
// counts of all descendants, at arbitrary depth. Implemented as a post-order
// traversal over a parent→children adjacency derived from the flat parent
// references. Idempotent; neither input is mutated.
func Aggregate(categories []domain.Category, direct map[string]int) (map[string]int, error) {
	children := make(map[string][]string, len(categories))
	var roots []string
	known := make(map[string]bool, len(categories))
	for _, c := range categories {
		known[c.ID] = true
	}
	for _, c := range categories {
		if c.ParentID != nil && known[*c.ParentID] {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		} else {
			roots = append(roots, c.ID)
		}
	}

	totals := make(map[string]int, len(categories))
	visited := make(map[string]bool, len(categories))

	var walk func(id string) (int, error)
	walk = func(id string) (int, error) {
		if visited[id] {
			return 0, fmt.Errorf("%w: revisited %s", ErrCycle, id)
		}
		visited[id] = true

		total := direct[id]
		for _, child := range children[id] {
			sub, err := walk(child)
			if err != nil {
				return 0, err
			}
			total += sub
		}
		totals[id] = total
		return total, nil
	}

	for _, root := range roots {
		if _, err := walk(root); err != nil {
			return nil, err
		}
	}

	// Nodes never reached from a root can only be part of a cycle.
	for _, c := range categories {
		if !visited[c.ID] {
			return nil, fmt.Errorf("%w: %s unreachable from any root", ErrCycle, c.ID)
		}
	}

	return totals, nil
}
