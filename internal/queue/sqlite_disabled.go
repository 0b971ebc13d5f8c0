//go:build !sqlite
// +build !sqlite

package queue

import (
	"errors"

	logx "github.com/partho5/CryptoXPoster/pkg/logx"
)

func openSQLiteStore(cfg StoreConfig, log logx.Logger) (Store, error) {
	_ = cfg
	_ = log
	return nil, errors.New("sqlite store not built: build with -tags sqlite")
}
