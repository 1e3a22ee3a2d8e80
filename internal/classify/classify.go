package classify

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Type is the content type of a drive file, derived from where it lives.
type Type string

const (
	All            Type = "all"
	Bookmarks      Type = "bookmarks"
	BlogPosts      Type = "blogposts"
	MicroblogPosts Type = "microblogposts"
	Comments       Type = "comments"
	Images         Type = "images"
	Pages          Type = "pages"
	Unknown        Type = "unknown"
)

// AllTypes returns every queryable type in canonical order. All is not included.
func AllTypes() []Type {
	return []Type{Bookmarks, BlogPosts, MicroblogPosts, Comments, Images, Pages}
}

var typePaths = map[Type][]string{
	Bookmarks:      {"/bookmarks/*.goto"},
	BlogPosts:      {"/blog/*.md"},
	MicroblogPosts: {"/microblog/*.md"},
	Comments:       {"/comments/*.md"},
	Images:         {"/images/*.png", "/images/*.jpg", "/images/*.jpeg", "/images/*.gif"},
	Pages:          {"/pages/*.md", "/pages/*.html"},
}

// Paths returns the drive globs holding files of type t.
func Paths(t Type) []string {
	return typePaths[t]
}

var typePrefixes = []struct {
	prefix string
	t      Type
}{
	{"/blog/", BlogPosts},
	{"/pages/", Pages},
	{"/bookmarks/", Bookmarks},
	{"/microblog/", MicroblogPosts},
	{"/comments/", Comments},
	{"/images/", Images},
}

// Classify determines the type of the file at rawURL from its path.
// Unparseable URLs are treated as the drive root.
func Classify(rawURL string) Type {
	p := "/"
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}
	for _, tp := range typePrefixes {
		if strings.HasPrefix(p, tp.prefix) {
			return tp.t
		}
	}
	return Unknown
}

var imageExt = regexp.MustCompile(`\.(png|jpe?g|gif)$`)

func IsImage(rawURL string) bool {
	return imageExt.MatchString(rawURL)
}

// Aliases maps short CLI names to types.
var Aliases = map[string]Type{
	"all":       All,
	"bookmarks": Bookmarks,
	"bookmark":  Bookmarks,
	"blog":      BlogPosts,
	"posts":     BlogPosts,
	"micro":     MicroblogPosts,
	"microblog": MicroblogPosts,
	"comments":  Comments,
	"images":    Images,
	"pages":     Pages,
}

// ResolveAlias maps a CLI alias or full type name to a Type.
func ResolveAlias(alias string) (Type, error) {
	alias = strings.ToLower(strings.TrimSpace(alias))
	if t, ok := Aliases[alias]; ok {
		return t, nil
	}
	for _, t := range AllTypes() {
		if string(t) == alias {
			return t, nil
		}
	}
	valid := make([]string, 0, len(Aliases))
	for k := range Aliases {
		valid = append(valid, k)
	}
	sort.Strings(valid)
	return "", fmt.Errorf("unknown content type %q (valid: %s)", alias, strings.Join(valid, ", "))
}

// Title is the heading used for a feed of type t.
func Title(t Type) string {
	switch t {
	case Bookmarks:
		return "Bookmarks"
	case BlogPosts:
		return "Blog Posts"
	case MicroblogPosts:
		return "Posts"
	case Comments:
		return "Comments"
	case Images:
		return "Images"
	case Pages:
		return "Pages"
	case All:
		return "Everything"
	}
	return "Files"
}

// CreateLabel names the action that creates content of type t.
func CreateLabel(t Type) string {
	switch t {
	case Bookmarks:
		return "New Bookmark"
	case BlogPosts:
		return "New Blog Post"
	case MicroblogPosts:
		return "New Post"
	case Comments:
		return "New Comment"
	case Images:
		return "Upload Image"
	case Pages:
		return "New Page"
	}
	return "New"
}

// Action is the verb shown in activity feeds, e.g. "Alice bookmarked ...".
func Action(t Type) string {
	switch t {
	case Bookmarks:
		return "bookmarked"
	case BlogPosts:
		return "published"
	case MicroblogPosts:
		return ""
	case Pages:
		return "created"
	case Comments:
		return "commented on"
	}
	return "published"
}

// Icon is the font-awesome class for a type's thumbnail.
func Icon(t Type) string {
	switch t {
	case BlogPosts:
		return "fas fa-blog"
	case Bookmarks:
		return "far fa-star"
	case MicroblogPosts:
		return "fas fa-stream"
	case Comments:
		return "far fa-comment"
	}
	return "far fa-file-alt"
}
