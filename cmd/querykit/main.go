// Command querykit seeds demo orders into Redis and queries them through
// the repository layer, either by scanning hashes or through a RediSearch
// index.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
