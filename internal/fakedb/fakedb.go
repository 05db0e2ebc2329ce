// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakedb provides an in-memory database/sql driver, registered
// as "fakedb", serving canned result sets.
package fakedb // import "github.com/go-lpc/recombine/internal/fakedb"

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sync"
)

var query struct {
	mu   sync.Mutex
	rows []Rows
	args [][]driver.Value
	stmt []string
}

// Run runs f while the fake DB serves the provided result sets,
// one per query, in order.
func Run(ctx context.Context, rows []Rows, f func(ctx context.Context) error) error {
	query.mu.Lock()
	defer query.mu.Unlock()
	query.rows = rows
	query.args = nil
	query.stmt = nil

	return f(ctx)
}

// Args returns the arguments of the queries issued during the current Run.
func Args() [][]driver.Value {
	return query.args
}

// Queries returns the statements queried during the current Run.
func Queries() []string {
	return query.stmt
}

func init() {
	sql.Register("fakedb", &Driver{})
}

type Driver struct{}

// Open returns a new connection to the fake database.
func (drv *Driver) Open(name string) (driver.Conn, error) {
	return &Conn{}, nil
}

type Conn struct{}

// Prepare returns a prepared statement, bound to this connection.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return &Stmt{query: query}, nil
}

func (c *Conn) Close() error {
	return nil
}

func (c *Conn) Begin() (driver.Tx, error) {
	return nil, fmt.Errorf("fakedb: transactions not supported")
}

type Stmt struct {
	query string
}

func (stmt *Stmt) Close() error {
	return nil
}

// NumInput returns -1: arguments are not checked.
func (stmt *Stmt) NumInput() int {
	return -1
}

func (stmt *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	return nil, fmt.Errorf("fakedb: exec not supported")
}

// Query records the query and serves the next result set.
func (stmt *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	query.stmt = append(query.stmt, stmt.query)
	query.args = append(query.args, args)
	if len(query.rows) == 0 {
		return nil, fmt.Errorf("fakedb: no result set left for %q", stmt.query)
	}
	rows := query.rows[0]
	query.rows = query.rows[1:]
	return &rows, nil
}

// Rows is a canned result set.
type Rows struct {
	Names  []string
	Values [][]driver.Value
}

func (rows *Rows) Columns() []string {
	return rows.Names
}

func (rows *Rows) Close() error {
	return nil
}

// Next populates dest with the next row, or returns io.EOF.
func (rows *Rows) Next(dest []driver.Value) error {
	if len(rows.Values) == 0 {
		return io.EOF
	}
	copy(dest, rows.Values[0])
	rows.Values = rows.Values[1:]
	return nil
}

var (
	_ driver.Driver = (*Driver)(nil)
	_ driver.Conn   = (*Conn)(nil)
	_ driver.Stmt   = (*Stmt)(nil)
	_ driver.Rows   = (*Rows)(nil)
)
