package storage

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode"

	"village-portal/pkg/apierror"
)

// resolveKey maps a storage key such as "budget-plans/01J...pdf" to an
// absolute path under rootAbs.
func resolveKey(rootAbs string, key string) (string, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(key), `\`, "/")
	normalized = strings.TrimPrefix(normalized, "/")
	if normalized == "" {
		return "", apierror.New("INVALID_PATH", "storage key cannot be empty", key, http.StatusBadRequest)
	}

	if hasControlCharacters(normalized) {
		return "", apierror.New("INVALID_PATH", "storage key contains invalid characters", key, http.StatusBadRequest)
	}

	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return "", apierror.New("PATH_TRAVERSAL", "path traversal attempt detected", key, http.StatusForbidden)
		}
	}

	resolved, err := filepath.Abs(filepath.Join(rootAbs, filepath.Clean(normalized)))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	if resolved == rootAbs || !isWithinRoot(rootAbs, resolved) {
		return "", apierror.New("PATH_TRAVERSAL", "resolved path is outside upload root", key, http.StatusForbidden)
	}

	return resolved, nil
}

func hasControlCharacters(value string) bool {
	for _, char := range value {
		if unicode.IsControl(char) {
			return true
		}
	}

	return false
}

func isWithinRoot(rootAbs string, candidateAbs string) bool {
	if candidateAbs == rootAbs {
		return true
	}

	rootWithSeparator := rootAbs + string(filepath.Separator)
	return strings.HasPrefix(candidateAbs, rootWithSeparator)
}
