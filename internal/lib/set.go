package lib

type Set map[string]struct{}

func NewSet() Set {
	return make(Set)
}

func NewSetFromSlice(slice []string) Set {
	s := make(Set, len(slice))
	for _, v := range slice {
		s[v] = struct{}{}
	}
	return s
}

func (s Set) Add(value ...string) {
	for _, v := range value {
		s[v] = struct{}{}
	}
}

func (s Set) Contains(value string) bool {
	_, ok := s[value]
	return ok
}

func (s Set) Len() int {
	return len(s)
}
