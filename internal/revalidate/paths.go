package revalidate

// PathSet is an insertion-ordered set of site paths. It always holds "/".
type PathSet struct {
	paths []string
	seen  map[string]struct{}
}

func NewPathSet() *PathSet {
	s := &PathSet{seen: make(map[string]struct{})}
	s.Add("/")
	return s
}

// Add inserts p unless it is already present.
func (s *PathSet) Add(p string) {
	if _, ok := s.seen[p]; ok {
		return
	}
	s.seen[p] = struct{}{}
	s.paths = append(s.paths, p)
}

func (s *PathSet) Contains(p string) bool {
	_, ok := s.seen[p]
	return ok
}

// Paths returns a copy in insertion order.
func (s *PathSet) Paths() []string {
	return append([]string(nil), s.paths...)
}

func (s *PathSet) Len() int { return len(s.paths) }

// SelectPaths maps a changed document to the pages that show it. An empty
// slug means the event carried none.
//
//	any type        -> /
//	post            -> /, /blog
//	post with slug  -> /, /blog, /blog/{slug}
func SelectPaths(documentType, slug string) *PathSet {
	s := NewPathSet()
	if documentType == "post" {
		s.Add("/blog")
		if slug != "" {
			s.Add("/blog/" + slug)
		}
	}
	return s
}
