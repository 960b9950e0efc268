package store

import (
	"database/sql"
	"time"
)

// PutDocument inserts or replaces a document's data.
func (db *DB) PutDocument(collection, id string, data []byte) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		collection, id, string(data), now, now)
	return err
}

// GetDocument returns a single document, or nil if it does not exist.
func (db *DB) GetDocument(collection, id string) (*Document, error) {
	var d Document
	var data string
	err := db.QueryRow(`
		SELECT collection, id, data, created_at, updated_at
		FROM documents WHERE collection = ? AND id = ?`, collection, id).
		Scan(&d.Collection, &d.ID, &data, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.Data = []byte(data)
	return &d, nil
}

// ListDocuments returns every document in a collection ordered by id.
func (db *DB) ListDocuments(collection string) ([]Document, error) {
	rows, err := db.Query(`
		SELECT collection, id, data, created_at, updated_at
		FROM documents WHERE collection = ?
		ORDER BY id`, collection)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var docs []Document
	for rows.Next() {
		var d Document
		var data string
		if err := rows.Scan(&d.Collection, &d.ID, &data, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Data = []byte(data)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// PatchDocument applies merge to an existing document inside a transaction.
// It returns false without calling merge when the document does not exist.
func (db *DB) PatchDocument(collection, id string, merge func(old []byte) ([]byte, error)) (bool, error) {
	found := false
	err := db.withTx(func(tx *sql.Tx) error {
		var old string
		err := tx.QueryRow(`SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&old)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}

		data, err := merge([]byte(old))
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?`,
			string(data), time.Now().UnixMilli(), collection, id); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}
