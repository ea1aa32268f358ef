// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package cozodb

/*
#cgo LDFLAGS: -lcozo_c
#include <stdlib.h>
#include <stdbool.h>
#include <stdint.h>

extern char *cozo_open_db(const char *engine, const char *path, const char *options, int32_t *db_id);
extern bool cozo_close_db(int32_t id);
extern char *cozo_run_query(int32_t db_id, const char *script_raw, const char *params_raw, bool immutable_query);
extern char *cozo_backup(int32_t db_id, const char *out_file);
extern char *cozo_restore(int32_t db_id, const char *in_file);
extern void cozo_free_str(char *s);
*/
import "C"

import (
	"encoding/json"
	"fmt"
	"unsafe"
)

// Map is the parameter map passed to queries. Values must be
// JSON-serializable.
type Map = map[string]any

// NamedRows is the tabular result of a query.
type NamedRows struct {
	Headers []string `json:"headers"`
	Rows    [][]any  `json:"rows"`
	Took    float64  `json:"took,omitempty"`
}

// QueryError is a structured error returned by the CozoDB engine for a
// failed script, carrying the engine's human-readable display text.
type QueryError struct {
	Message string `json:"message"`
	Display string `json:"display"`
	Code    string `json:"code"`
}

func (e *QueryError) Error() string {
	if e.Display != "" {
		return e.Display
	}
	return e.Message
}

// CozoDB is a handle to an open database. The zero value is not usable;
// construct with New. A CozoDB is safe for concurrent use: the underlying
// engine serializes mutations internally.
type CozoDB struct {
	id C.int32_t
}

// New opens a database with the given storage engine ("mem", "sqlite"
// or "rocksdb") rooted at path. options is engine-specific and may be
// nil.
func New(engine, path string, options Map) (CozoDB, error) {
	if options == nil {
		options = Map{}
	}
	optJSON, err := json.Marshal(options)
	if err != nil {
		return CozoDB{}, fmt.Errorf("marshal options: %w", err)
	}

	cEngine := C.CString(engine)
	defer C.free(unsafe.Pointer(cEngine))
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	cOptions := C.CString(string(optJSON))
	defer C.free(unsafe.Pointer(cOptions))

	var id C.int32_t
	cErr := C.cozo_open_db(cEngine, cPath, cOptions, &id)
	if cErr != nil {
		defer C.cozo_free_str(cErr)
		return CozoDB{}, fmt.Errorf("open cozodb (%s): %s", engine, C.GoString(cErr))
	}
	return CozoDB{id: id}, nil
}

// Run executes a CozoScript program that may mutate the database.
func (db *CozoDB) Run(script string, params Map) (NamedRows, error) {
	return db.run(script, params, false)
}

// RunReadOnly executes a CozoScript program with mutation rejected at
// the engine level. Use for anything a caller could inject into.
func (db *CozoDB) RunReadOnly(script string, params Map) (NamedRows, error) {
	return db.run(script, params, true)
}

func (db *CozoDB) run(script string, params Map, immutable bool) (NamedRows, error) {
	if params == nil {
		params = Map{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return NamedRows{}, fmt.Errorf("marshal params: %w", err)
	}

	cScript := C.CString(script)
	defer C.free(unsafe.Pointer(cScript))
	cParams := C.CString(string(paramsJSON))
	defer C.free(unsafe.Pointer(cParams))

	cResult := C.cozo_run_query(db.id, cScript, cParams, C.bool(immutable))
	defer C.cozo_free_str(cResult)
	raw := C.GoString(cResult)

	var envelope struct {
		OK bool `json:"ok"`
		NamedRows
		QueryError
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return NamedRows{}, fmt.Errorf("decode query result: %w", err)
	}
	if !envelope.OK {
		return NamedRows{}, &QueryError{
			Message: envelope.Message,
			Display: envelope.Display,
			Code:    envelope.Code,
		}
	}
	return envelope.NamedRows, nil
}

// Close releases the database handle. Returns false if the handle was
// already closed.
func (db *CozoDB) Close() bool {
	return bool(C.cozo_close_db(db.id))
}

// Backup writes a full backup of the database to outFile.
func (db *CozoDB) Backup(outFile string) error {
	cPath := C.CString(outFile)
	defer C.free(unsafe.Pointer(cPath))
	return db.checkErr(C.cozo_backup(db.id, cPath))
}

// Restore loads a backup created by Backup into this (empty) database.
func (db *CozoDB) Restore(inFile string) error {
	cPath := C.CString(inFile)
	defer C.free(unsafe.Pointer(cPath))
	return db.checkErr(C.cozo_restore(db.id, cPath))
}

// checkErr decodes the {"ok": ...} envelope returned by the backup and
// restore entry points, which carry no rows.
func (db *CozoDB) checkErr(cResult *C.char) error {
	defer C.cozo_free_str(cResult)
	raw := C.GoString(cResult)

	var envelope struct {
		OK bool `json:"ok"`
		QueryError
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	if !envelope.OK {
		return &QueryError{
			Message: envelope.Message,
			Display: envelope.Display,
			Code:    envelope.Code,
		}
	}
	return nil
}
