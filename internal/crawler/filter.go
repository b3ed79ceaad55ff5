package crawler

import (
	"fmt"
	"regexp"
)

// ItemFilter decides which drive items are worth fetching content for.
// Filters run before any content request so excluded items cost one
// listing entry and nothing more.
type ItemFilter struct {
	// MaxSize rejects items larger than this many bytes. Non-positive
	// means unlimited.
	MaxSize int64

	mimetypes []*regexp.Regexp
	include   []*regexp.Regexp
	exclude   []*regexp.Regexp
}

// NewItemFilter compiles the filter's pattern lists. An empty mimetype
// list admits every type; an empty include list admits every URL.
func NewItemFilter(maxSize int64, mimetypes, include, exclude []string) (*ItemFilter, error) {
	f := &ItemFilter{MaxSize: maxSize}

	var err error
	if f.mimetypes, err = compileAll(mimetypes); err != nil {
		return nil, fmt.Errorf("supported mimetype pattern: %w", err)
	}
	if f.include, err = compileAll(include); err != nil {
		return nil, fmt.Errorf("include pattern: %w", err)
	}
	if f.exclude, err = compileAll(exclude); err != nil {
		return nil, fmt.Errorf("exclude pattern: %w", err)
	}
	return f, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	var compiled []*regexp.Regexp
	for _, p := range patterns {
		if p == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// AllowMIME reports whether a MIME type passes the supported list.
func (f *ItemFilter) AllowMIME(mimeType string) bool {
	if len(f.mimetypes) == 0 {
		return true
	}
	for _, re := range f.mimetypes {
		if re.MatchString(mimeType) {
			return true
		}
	}
	return false
}

// AllowSize reports whether a byte size passes the bound.
func (f *ItemFilter) AllowSize(size int64) bool {
	return f.MaxSize <= 0 || size <= f.MaxSize
}

// AllowURL reports whether a URL passes the include and exclude lists.
// Exclusion wins over inclusion.
func (f *ItemFilter) AllowURL(url string) bool {
	for _, re := range f.exclude {
		if re.MatchString(url) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, re := range f.include {
		if re.MatchString(url) {
			return true
		}
	}
	return false
}
