// Package main is the command-line front end: discover a wallet's NFTs,
// infer their purchase prices and render reports from the dump cache.
package main

func main() {
	Execute()
}
