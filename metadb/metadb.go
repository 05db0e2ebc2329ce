// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metadb retrieves observation metadata, coarse channels and
// tile flags, from the observation metadata database.
package metadb // import "github.com/go-lpc/recombine/metadb"

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/go-lpc/recombine/vcs"
)

var (
	drvName = "mysql"
	timeout = 5 * time.Second
)

// DSN returns the data source name of the metadata database dbname
// served at addr (host:port).
func DSN(usr, pwd, addr, dbname string) string {
	cfg := mysql.NewConfig()
	cfg.User = usr
	cfg.Passwd = pwd
	cfg.Net = "tcp"
	cfg.Addr = addr
	cfg.DBName = dbname
	cfg.Timeout = timeout
	return cfg.FormatDSN()
}

// DB exposes convenience methods to retrieve observation metadata.
type DB struct {
	db  *sql.DB
	dsn string
}

// Open opens a connection to the metadata database described by dsn.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("metadb: could not open db: %w", err)
	}

	err = ping(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db: db, dsn: dsn}, nil
}

func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("metadb: could not ping db: %w", err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// Channels returns the coarse channels of an observation, in label order.
func (db *DB) Channels(ctx context.Context, obsid int64) ([]uint32, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rows, err := db.db.QueryContext(
		ctx,
		"SELECT channels FROM observations WHERE obsid=?",
		obsid,
	)
	if err != nil {
		return nil, fmt.Errorf("metadb: could not query channels of obs %d: %w", obsid, err)
	}
	defer rows.Close()

	var (
		found bool
		chans string
	)
	for rows.Next() {
		err = rows.Scan(&chans)
		if err != nil {
			return nil, fmt.Errorf("metadb: could not get channels of obs %d: %w", obsid, err)
		}
		found = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metadb: could not scan db for channels of obs %d: %w", obsid, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("metadb: context error while retrieving channels of obs %d: %w", obsid, err)
	}

	if !found {
		return nil, fmt.Errorf("metadb: no observation %d", obsid)
	}

	return vcs.ParseChannels(chans)
}

// Flags returns the tile exclusion flags of an observation.
// Tiles without a record are not flagged.
func (db *DB) Flags(ctx context.Context, obsid int64) (vcs.TileFlags, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var flags vcs.TileFlags
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT board, tile, flagged FROM tile_flags WHERE obsid=? ORDER BY board, tile",
		obsid,
	)
	if err != nil {
		return flags, fmt.Errorf("metadb: could not query tile flags of obs %d: %w", obsid, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			board, tile int
			flagged     bool
		)
		err = rows.Scan(&board, &tile, &flagged)
		if err != nil {
			return flags, fmt.Errorf("metadb: could not get tile flag of obs %d: %w", obsid, err)
		}
		if board < 0 || board >= vcs.NumBoards || tile < 0 || tile >= vcs.NumTiles {
			return flags, fmt.Errorf(
				"%w: invalid tile flag (board=%d, tile=%d) for obs %d",
				vcs.ErrConfig, board, tile, obsid,
			)
		}
		flags[board][tile] = flagged
	}

	if err := rows.Err(); err != nil {
		return flags, fmt.Errorf("metadb: could not scan db for tile flags of obs %d: %w", obsid, err)
	}

	if err := ctx.Err(); err != nil {
		return flags, fmt.Errorf("metadb: context error while retrieving tile flags of obs %d: %w", obsid, err)
	}

	return flags, nil
}

// Metadata returns the validated metadata of an observation.
func (db *DB) Metadata(ctx context.Context, obsid int64) (vcs.Metadata, error) {
	meta := vcs.Metadata{ObsID: obsid}

	chans, err := db.Channels(ctx, obsid)
	if err != nil {
		return meta, err
	}
	meta.Channels = chans

	flags, err := db.Flags(ctx, obsid)
	if err != nil {
		return meta, err
	}
	meta.Flags = make([]uint8, 0, vcs.NumBoards*vcs.NumTiles)
	for board := range flags {
		for _, v := range flags[board] {
			var f uint8
			if v {
				f = 1
			}
			meta.Flags = append(meta.Flags, f)
		}
	}

	err = meta.Validate()
	if err != nil {
		return meta, fmt.Errorf("metadb: invalid metadata for obs %d: %w", obsid, err)
	}

	return meta, nil
}
