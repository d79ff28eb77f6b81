package fototid

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
}

// IsImage reports whether path has a supported image extension.
func IsImage(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// Find returns the images under each root in lexical order. Roots that are
// files are returned as-is if they look like images.
func Find(roots ...string) ([]string, error) {
	found := []string{}

	for _, root := range roots {
		st, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat: %w", err)
		}

		if !st.IsDir() {
			if IsImage(root) {
				found = append(found, root)
			}
			continue
		}

		err = godirwalk.Walk(root, &godirwalk.Options{
			Callback: func(path string, de *godirwalk.Dirent) error {
				if path != root && filepath.Base(path)[0] == '.' {
					return godirwalk.SkipThis
				}

				if !de.IsDir() && IsImage(path) {
					klog.V(1).Infof("found %s", path)
					found = append(found, path)
				}
				return nil
			},
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	klog.Infof("found %d images in %d paths", len(found), len(roots))
	return found, nil
}
