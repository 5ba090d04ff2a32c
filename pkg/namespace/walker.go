package namespace

import (
	"context"
	"slices"
	"strings"

	"github.com/marmos91/bucketfs/pkg/store"
)

// Order selects the traversal order of a walk.
type Order int

const (
	// SelfFirst yields every directory before its contents (pre-order).
	// Used by copy so destination markers exist before their children.
	SelfFirst Order = iota

	// ChildrenFirst yields every directory after all its descendants
	// (post-order). Used by recursive remove.
	ChildrenFirst
)

func (o Order) String() string {
	switch o {
	case SelfFirst:
		return "self-first"
	case ChildrenFirst:
		return "children-first"
	default:
		return "unknown"
	}
}

// TreeWalker enumerates a subtree.
//
// A walk issues one prefix listing for the subtree and then traverses that
// snapshot level by level with an explicit stack of pending directories.
// Objects written under the prefix after the listing are not visited. A
// walk is restartable: calling Walk again takes a fresh snapshot.
type TreeWalker struct {
	store store.ObjectStore
}

// NewTreeWalker creates a walker over s.
func NewTreeWalker(s store.ObjectStore) *TreeWalker {
	return &TreeWalker{store: s}
}

// tree is a listing snapshot indexed by parent directory.
type tree struct {
	children map[string][]Entry
	dirIndex map[string]int
}

func buildTree(root string, objects []store.ObjectInfo) (*tree, bool) {
	t := &tree{
		children: make(map[string][]Entry),
		dirIndex: make(map[string]int),
	}

	rootMarker := false
	for _, obj := range objects {
		if obj.Key == root {
			rootMarker = true
			continue
		}
		if !strings.HasPrefix(obj.Key, root) {
			continue
		}

		// Register every intermediate directory between root and the key.
		parent := root
		rel := obj.Key[len(root):]
		for {
			idx := strings.Index(rel, Delimiter)
			if idx < 0 || idx == len(rel)-1 {
				break
			}
			dir := parent + rel[:idx+1]
			t.addDir(parent, inferredDirectory(dir))
			parent, rel = dir, rel[idx+1:]
		}

		entry := entryFromObject(obj)
		if entry.Type == EntryDirectory {
			t.addDir(parent, entry)
		} else {
			t.children[parent] = append(t.children[parent], entry)
		}
	}

	return t, rootMarker
}

// addDir records dir under parent once. A real marker overrides an
// inferred placeholder.
func (t *tree) addDir(parent string, dir Entry) {
	if idx, ok := t.dirIndex[dir.Path]; ok {
		if !dir.Inferred {
			t.children[parent][idx] = dir
		}
		return
	}
	t.dirIndex[dir.Path] = len(t.children[parent])
	t.children[parent] = append(t.children[parent], dir)
}

// Walk returns every entry under dirKey including dirKey itself, which is
// reported as a synthetic directory entry (Inferred when no marker object
// exists, always for the root). dirKey must be in directory form.
//
// An empty result means nothing exists under dirKey.
func (w *TreeWalker) Walk(ctx context.Context, dirKey string, order Order) ([]Entry, error) {
	objects, err := w.store.List(ctx, dirKey)
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 && dirKey != "" {
		return nil, nil
	}

	t, rootMarker := buildTree(dirKey, objects)

	self := Entry{Path: dirKey, Name: Name(dirKey), Type: EntryDirectory, Inferred: !rootMarker}
	for _, obj := range objects {
		if obj.Key == dirKey {
			self = entryFromObject(obj)
			break
		}
	}

	result := []Entry{self}
	stack := []string{dirKey}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, child := range t.children[dir] {
			result = append(result, child)
			if child.Type == EntryDirectory {
				stack = append(stack, child.Path)
			}
		}
	}

	switch order {
	case SelfFirst:
	case ChildrenFirst:
		// Every directory precedes its descendants in pre-order, so the
		// reverse puts it after all of them.
		slices.Reverse(result)
	}

	return result, nil
}

// Each walks dirKey and calls fn for every entry, stopping at the first
// error fn returns or when ctx is done.
func (w *TreeWalker) Each(ctx context.Context, dirKey string, order Order, fn func(Entry) error) error {
	entries, err := w.Walk(ctx, dirKey, order)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return nil
}
