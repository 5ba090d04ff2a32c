package namespace

import (
	"regexp"
	"strings"
	"time"

	"github.com/marmos91/bucketfs/pkg/store"
)

// Entry is one path in the synthesized hierarchy.
type Entry struct {
	// Path is the object key. Directories end with the delimiter, the
	// root is "".
	Path string `json:"path"`

	// Name is the final path segment.
	Name string `json:"name"`

	Type         EntryType `json:"type"`
	Size         int64     `json:"size"`
	Hash         string    `json:"hash,omitempty"`
	LastModified time.Time `json:"last_modified"`

	// Inferred marks a directory that has descendants but no marker
	// object of its own.
	Inferred bool `json:"inferred,omitempty"`
}

func entryFromObject(obj store.ObjectInfo) Entry {
	return Entry{
		Path:         obj.Key,
		Name:         Name(obj.Key),
		Type:         typeOfKey(obj.Key),
		Size:         obj.Size,
		Hash:         obj.Hash,
		LastModified: obj.LastModified,
	}
}

func inferredDirectory(key string) Entry {
	return Entry{Path: key, Name: Name(key), Type: EntryDirectory, Inferred: true}
}

// childPattern matches keys exactly one segment below dirKey, with an
// optional trailing delimiter for directory markers. The root has its own
// pattern anchored at the start of the whole key.
func childPattern(dirKey string) *regexp.Regexp {
	if dirKey == "" {
		return regexp.MustCompile(`^[^/]+/?$`)
	}
	return regexp.MustCompile(`^` + regexp.QuoteMeta(dirKey) + `[^/]+/?$`)
}

// immediateChildren narrows a subtree listing of dirKey to its immediate
// children.
//
// Objects matching the child pattern are returned as-is. Deeper keys are
// never returned, but a deeper key whose intermediate directory has no
// marker yields one inferred directory entry for its first segment, so a
// directory created only by writing nested objects is still listed.
// dirKey's own marker is never a child. Order follows the listing.
func immediateChildren(dirKey string, objects []store.ObjectInfo) []Entry {
	pattern := childPattern(dirKey)

	var (
		children []Entry
		seenDirs = make(map[string]int)
	)

	for _, obj := range objects {
		if obj.Key == dirKey || !strings.HasPrefix(obj.Key, dirKey) {
			continue
		}

		if pattern.MatchString(obj.Key) {
			entry := entryFromObject(obj)
			if entry.Type == EntryDirectory {
				// An explicit marker replaces a previously inferred entry.
				if idx, ok := seenDirs[entry.Path]; ok {
					children[idx] = entry
					continue
				}
				seenDirs[entry.Path] = len(children)
			}
			children = append(children, entry)
			continue
		}

		rel := obj.Key[len(dirKey):]
		dir := dirKey + rel[:strings.Index(rel, Delimiter)+1]
		if _, ok := seenDirs[dir]; ok {
			continue
		}
		seenDirs[dir] = len(children)
		children = append(children, inferredDirectory(dir))
	}

	return children
}
