package models

// Group is one membership entry from the identity collaborator. The upstream
// source is inconsistent about whether id or name carries the meaning, so
// both are kept and both are always checked.
type Group struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// User is the already-authenticated identity consumed from the identity
// collaborator. Token mechanics are not this service's concern.
type User struct {
	ID       int     `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Groups   []Group `json:"groups"`

	// DarkMode is a presentation preference cached alongside the session;
	// it must never influence classification or permission logic.
	DarkMode bool `json:"darkMode"`
}
