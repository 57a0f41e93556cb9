package store

import "sort"

// Members returns the sorted id set stored under key.
func Members(s *Store, key string) []string {
	ids, _ := Value[[]string](s, key)
	return ids
}

// HasMember reports whether id is in the set under key.
func HasMember(s *Store, key, id string) bool {
	ids := Members(s, key)
	i := sort.SearchStrings(ids, id)
	return i < len(ids) && ids[i] == id
}

// AddMember inserts id into the sorted set under key. It reports whether the
// set changed; listeners only fire when it did.
func AddMember(s *Store, key, id string) bool {
	if id == "" {
		return false
	}
	current := Members(s, key)
	i := sort.SearchStrings(current, id)
	if i < len(current) && current[i] == id {
		return false
	}
	next := make([]string, 0, len(current)+1)
	next = append(next, current[:i]...)
	next = append(next, id)
	next = append(next, current[i:]...)
	s.Set(key, next)
	return true
}

// RemoveMember deletes id from the sorted set under key. It reports whether
// the set changed.
func RemoveMember(s *Store, key, id string) bool {
	current := Members(s, key)
	i := sort.SearchStrings(current, id)
	if i >= len(current) || current[i] != id {
		return false
	}
	next := make([]string, 0, len(current)-1)
	next = append(next, current[:i]...)
	next = append(next, current[i+1:]...)
	s.Set(key, next)
	return true
}
