package entities

// Entity is a minimal marker interface used as a generic constraint
// and for embedding in domain structs across the codebase.
type Entity interface{}
