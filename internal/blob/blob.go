// Package blob stores uploaded images. Objects are addressed by a
// slash-separated key such as "image/<uuid>".
package blob

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey is returned for empty keys or keys escaping the store root.
var ErrInvalidKey = errors.New("invalid blob key")

// MaxSize caps a single upload.
const MaxSize = 8 << 20

// CleanKey validates key and strips leading slashes.
func CleanKey(key string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return key, nil
}

func checkSize(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty upload")
	}
	if len(data) > MaxSize {
		return fmt.Errorf("upload of %d bytes exceeds %d byte limit", len(data), MaxSize)
	}
	return nil
}
