// Command wskdf is a weak, slow key derivation tool: it derives keys from
// short preimages with Argon2id and brute forces them back in parallel.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
