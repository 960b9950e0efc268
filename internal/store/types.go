package store

// Document is a stored JSON record keyed by collection path and id.
type Document struct {
	Collection string
	ID         string
	Data       []byte
	CreatedAt  int64
	UpdatedAt  int64
}

// Account is an email/password identity.
type Account struct {
	UID          string
	Email        string
	PasswordHash string
	CreatedAt    int64
}
