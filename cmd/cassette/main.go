// cassette CLI - records and replays HTTP traffic for integration tests.
package main

import "github.com/getmockd/cassette/pkg/cli"

func main() {
	cli.Execute()
}
