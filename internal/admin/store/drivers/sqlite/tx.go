package sqlite

import "github.com/aussiebroadwan/backoffice/internal/admin/store"

// txStore binds the repositories to one *sql.Tx.
type txStore struct {
	q dbtx
}

func (t txStore) Principals() store.Principals   { return &principalsRepo{q: t.q} }
func (t txStore) Credentials() store.Credentials { return &credentialsRepo{q: t.q} }
func (t txStore) Challenges() store.Challenges   { return &challengesRepo{q: t.q} }
