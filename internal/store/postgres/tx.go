package postgres

import "makemodel/internal/store"

type tx struct {
	q querier
}

var _ store.Tx = (*tx)(nil)
