// Copyright 2012 Julien Schmidt. All rights reserved.
// http://www.julienschmidt.com
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// Command chcli is a one-shot demo client: it opens a Session, runs a
// single query, and prints the syntax-highlighted query text followed by
// the result set as an aligned table.
package main

import (
	"flag"
	"fmt"
	"os"

	chnative "github.com/go-ch-driver/chnative"
	"github.com/go-ch-driver/chnative/highlight"
)

func main() {
	host := flag.String("host", "127.0.0.1", "server host")
	port := flag.Int("port", 9000, "server port")
	database := flag.String("database", "default", "default database")
	user := flag.String("user", "default", "user name")
	password := flag.String("password", "", "password")
	flag.Parse()

	query := flag.Arg(0)
	if query == "" {
		fmt.Fprintln(os.Stderr, "usage: chcli [flags] \"SELECT ...\"")
		os.Exit(2)
	}

	if err := run(*host, *port, *database, *user, *password, query); err != nil {
		fmt.Fprintln(os.Stderr, highlight.Error(err.Error()))
		os.Exit(1)
	}
}

func run(host string, port int, database, user, password, query string) error {
	opts := &chnative.Options{
		Host:                    host,
		Port:                    port,
		Database:                database,
		User:                    user,
		Password:                password,
		RethrowServerExceptions: true,
	}

	session, err := chnative.Open(opts)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer session.Close()

	fmt.Println(highlight.SQL(query))
	fmt.Println()

	sink := &chnative.CollectingSink{}
	if err := session.Execute(query, sink); err != nil {
		return fmt.Errorf("execute: %w", err)
	}

	printResults(sink)
	return nil
}

func printResults(sink *chnative.CollectingSink) {
	if len(sink.Blocks) == 0 {
		fmt.Println("(no rows)")
		return
	}

	header := sink.Blocks[0].ColumnNames()
	var rows [][]string
	for _, block := range sink.Blocks {
		for row := 0; row < block.Rows(); row++ {
			cells := make([]string, len(header))
			for i, name := range header {
				col, ok := block.Column(name)
				if !ok {
					continue
				}
				cells[i] = col.ValueString(row)
			}
			rows = append(rows, cells)
		}
	}

	fmt.Println(highlight.Table(header, rows))

	if p := sink.Profile; p != nil {
		fmt.Printf("\n%d rows, %d bytes, %d blocks\n", p.Rows, p.Bytes, p.Blocks)
	}
}
