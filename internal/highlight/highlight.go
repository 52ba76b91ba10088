// Package highlight turns code into Chroma token trees and serialises them as
// nested, class-annotated <span> elements. Literal text runs additionally get
// depth-coloured braces from package brackets, so rainbow brace colouring is
// layered on top of the language-aware colours rather than replacing them.
//
// Output uses CSS classes, never inline styles; colours come from the
// stylesheet returned by Stylesheet.
package highlight

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the number of highlighted fragments kept in memory.
// When exceeded the entire cache is cleared (clear-on-full eviction).
const DefaultCacheSize = 256

var (
	cacheMu      sync.RWMutex
	cache        = make(map[string]string, DefaultCacheSize)
	maxCacheSize = DefaultCacheSize

	// inflight coalesces concurrent misses for the same key.
	inflight singleflight.Group
)

// SetCacheSize changes the cache bound and drops the current contents.
// Sizes below one disable caching.
func SetCacheSize(n int) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	maxCacheSize = n
	cache = make(map[string]string, max(n, 0))
}

// Code highlights code written in language. The result is an HTML fragment
// for use inside a <code> element. An unknown language yields an error
// wrapping ErrUnknownLanguage and no markup; callers are expected to leave the
// block as it was.
func Code(code, language string) (string, error) {
	key := cacheKey(code, language)

	cacheMu.RLock()
	if cached, ok := cache[key]; ok {
		cacheMu.RUnlock()
		return cached, nil
	}
	cacheMu.RUnlock()

	v, err, _ := inflight.Do(key, func() (any, error) {
		tokens, err := Tokenize(code, language)
		if err != nil {
			return "", err
		}
		result := RenderTokens(tokens)

		cacheMu.Lock()
		if maxCacheSize > 0 {
			if len(cache) >= maxCacheSize {
				cache = make(map[string]string, maxCacheSize)
			}
			cache[key] = result
		}
		cacheMu.Unlock()
		return result, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func cacheLen() int {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	return len(cache)
}

// cacheKey returns a hex-encoded SHA-256 hash (truncated to 16 bytes) of the
// language and code.
func cacheKey(code, language string) string {
	h := sha256.New()
	h.Write([]byte(language))
	h.Write([]byte{0})
	h.Write([]byte(code))
	sum := h.Sum(nil)
	return fmt.Sprintf("%x", sum[:16])
}
