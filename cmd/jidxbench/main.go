// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Command jidxbench drives concurrent MatchingDocIds queries against a
// JSON index artifact and reports throughput, mirroring the concurrency
// sweep pattern of kelindar/column's own benchmark harness.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kelindar/async"

	jsonidx "github.com/yeshreddy7/pinot-clone"
	"github.com/yeshreddy7/pinot-clone/mmapfile"
)

func main() {
	key := flag.String("key", "", "key path to query with an IsNotNull predicate")
	duration := flag.Duration("duration", time.Second, "how long to run each concurrency level")
	flag.Parse()

	if flag.NArg() != 1 || *key == "" {
		fmt.Fprintln(os.Stderr, "usage: jidxbench -key <path> <artifact>")
		os.Exit(2)
	}

	mapped, err := mmapfile.Open(flag.Arg(0))
	if err != nil {
		fail(err)
	}
	defer mapped.Close()

	reader, err := jsonidx.New(mapped.Bytes())
	if err != nil {
		fail(err)
	}
	defer reader.Close()

	filter := jsonidx.Leaf(jsonidx.Predicate{Kind: jsonidx.IsNotNull, Key: *key})

	fmt.Printf("%7v\t%17v\n", "PROCS", "QUERY RATE")
	for _, n := range []int{1, 2, 4, 8, 16, 32, 64} {
		rate := runLevel(reader, filter, n, *duration)
		fmt.Printf("%7v\t%17v\n", n, humanize.Comma(int64(rate))+" query/s")
	}
}

func runLevel(reader *jsonidx.Reader, filter jsonidx.FilterNode, n int, duration time.Duration) float64 {
	work := make(chan async.Task, n)
	pool := async.Consume(context.Background(), n, work)
	defer pool.Cancel()

	var queries int64
	var wg sync.WaitGroup
	start := time.Now()
	for time.Since(start) < duration {
		wg.Add(1)
		work <- async.NewTask(func(ctx context.Context) (interface{}, error) {
			defer wg.Done()
			_, err := reader.MatchingDocIds(ctx, filter)
			if err == nil {
				atomic.AddInt64(&queries, 1)
			}
			return nil, err
		})
	}
	wg.Wait()

	elapsed := time.Since(start)
	return float64(queries) / elapsed.Seconds()
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "jidxbench:", err)
	os.Exit(1)
}
