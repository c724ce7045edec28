// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Command jidxdump prints summary statistics for a JSON index artifact.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/klauspost/compress/s2"

	jsonidx "github.com/yeshreddy7/pinot-clone"
	"github.com/yeshreddy7/pinot-clone/mmapfile"
)

func main() {
	jsonOut := flag.Bool("json", false, "print stats as JSON instead of text")
	s2Out := flag.String("s2", "", "also write an s2-compressed copy of the artifact to this path")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: jidxdump [-json] [-s2 path] <artifact>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	mapped, err := mmapfile.Open(path)
	if err != nil {
		fail(err)
	}
	defer mapped.Close()

	reader, err := jsonidx.New(mapped.Bytes(), jsonidx.WithLogger(slog.Default()))
	if err != nil {
		fail(err)
	}
	defer reader.Close()

	stats, err := reader.Stats()
	if err != nil {
		fail(err)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			fail(err)
		}
	} else {
		fmt.Println(stats.String())
	}

	if *s2Out != "" {
		if err := writeCompressed(mapped.Bytes(), *s2Out); err != nil {
			fail(err)
		}
		fmt.Fprintf(os.Stderr, "wrote s2-compressed copy to %s\n", *s2Out)
	}
}

// writeCompressed writes region to path as an s2 block stream, for
// archiving artifacts that are queried infrequently. The index itself
// is never read through this compressed form: decoding the wire format
// requires random access, which s2's streaming format doesn't offer.
func writeCompressed(region []byte, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := s2.NewWriter(f)
	defer w.Close()

	if _, err := io.Copy(w, bytes.NewReader(region)); err != nil {
		return err
	}
	return w.Close()
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "jidxdump:", err)
	os.Exit(1)
}
