package contents

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/marmos91/bucketfs/pkg/namespace"
)

// copySuffix strips an earlier "-CopyN" so copies of copies do not stack
// suffixes.
var copySuffix = regexp.MustCompile(`-Copy\d*\.`)

// splitName splits name into base and extension. The notebook suffix is
// always treated as the extension.
func splitName(name string) (string, string) {
	if strings.HasSuffix(name, namespace.NotebookSuffix) {
		return strings.TrimSuffix(name, namespace.NotebookSuffix), namespace.NotebookSuffix
	}
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return name, ""
	}
	return name[:idx], name[idx:]
}

func joinAPI(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + namespace.Delimiter + name
}

// incrementName returns the first of base+ext, base+insert+"1"+ext,
// base+insert+"2"+ext... that does not exist in dir.
func (m *Manager) incrementName(ctx context.Context, dir, base, ext, insert string) (string, error) {
	for i := 0; ; i++ {
		name := base + ext
		if i > 0 {
			name = base + insert + strconv.Itoa(i) + ext
		}
		taken, err := m.exists(ctx, joinAPI(dir, name))
		if err != nil {
			return "", err
		}
		if !taken {
			return name, nil
		}
	}
}
